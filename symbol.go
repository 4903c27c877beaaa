// Copyright (c) 2014, Kevin Walsh.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package datalog provides the runtime core of a Datalog engine: interned
// symbols, tagged values, fixed-arity tuples, a fact-intern table assigning
// stable IDs to first-class facts, and the per-predicate relation runtime
// (base/delta/next buffers plus hash indices) that the evaluator drives.
package datalog

import (
	"math/bits"

	"github.com/cespare/xxhash/v2"
)

// SymbolID is a dense, non-negative identifier assigned to an interned
// string on first use. intern is a total function from strings to IDs:
// lookup(intern(s)) always equals s.
type SymbolID int32

// InvalidSymbol is returned when a lookup fails; it is never produced by
// Intern.
const InvalidSymbol SymbolID = -1

// symbolSlot is one entry in the open-addressed table. An empty slot has
// id == InvalidSymbol.
type symbolSlot struct {
	hash uint64
	id   SymbolID
}

// SymbolTable interns strings to dense integer IDs and back. It is backed
// by an open-addressed hash table keyed on the string's hash, with string
// storage in a growable pool; strings are immutable once interned, so the
// pool never needs to move existing entries on growth.
//
// A host may instead own the symbol table entirely (spec.md §4.8
// register_symbol_table / §6.3 intern_symbol/lookup_symbol): SetHost
// installs host-supplied intern/lookup functions, and Intern/Lookup
// delegate to them instead of the built-in pool for the lifetime of the
// table.
type SymbolTable struct {
	pool  []string     // id -> string, insertion order
	slots []symbolSlot // open-addressed index, power-of-two length
	mask  uint64

	hostIntern func(s string) SymbolID
	hostLookup func(id SymbolID) (string, bool)
}

// NewSymbolTable returns an empty symbol table.
func NewSymbolTable() *SymbolTable {
	t := &SymbolTable{}
	t.growSlots(16)
	return t
}

func (t *SymbolTable) growSlots(minCap int) {
	newLen := 16
	for newLen < minCap {
		newLen <<= 1
	}
	old := t.slots
	t.slots = make([]symbolSlot, newLen)
	for i := range t.slots {
		t.slots[i].id = InvalidSymbol
	}
	t.mask = uint64(newLen - 1)
	for _, s := range old {
		if s.id == InvalidSymbol {
			continue
		}
		t.insertSlot(s.hash, s.id)
	}
}

func (t *SymbolTable) insertSlot(hash uint64, id SymbolID) {
	idx := hash & t.mask
	for t.slots[idx].id != InvalidSymbol {
		idx = (idx + 1) & t.mask
	}
	t.slots[idx] = symbolSlot{hash: hash, id: id}
}

func stringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// SetHost installs host-supplied intern/lookup functions, handing
// ownership of this table's contents to the host (spec.md §4.8
// register_symbol_table). Passing nil for both restores the built-in
// pool. The built-in pool is left untouched either way, so reverting to
// it later (by calling SetHost(nil, nil)) resumes from whatever it held
// before the host took over.
func (t *SymbolTable) SetHost(intern func(s string) SymbolID, lookup func(id SymbolID) (string, bool)) {
	t.hostIntern = intern
	t.hostLookup = lookup
}

// Intern returns the dense ID for s, assigning a fresh one on first use.
// Intern never fails: out-of-memory is the only failure mode and, per the
// allocator contract in §5, is fatal to the process rather than a value
// this API can return.
func (t *SymbolTable) Intern(s string) SymbolID {
	if t.hostIntern != nil {
		return t.hostIntern(s)
	}
	hash := stringHash(s)
	idx := hash & t.mask
	for {
		slot := t.slots[idx]
		if slot.id == InvalidSymbol {
			break
		}
		if slot.hash == hash && t.pool[slot.id] == s {
			return slot.id
		}
		idx = (idx + 1) & t.mask
	}
	id := SymbolID(len(t.pool))
	t.pool = append(t.pool, s)
	if len(t.pool)*2 > len(t.slots) {
		t.growSlots(len(t.slots) * 2)
	}
	t.insertSlot(hash, id)
	return id
}

// Lookup returns the string for id, and false if id was never interned by
// this table.
func (t *SymbolTable) Lookup(id SymbolID) (string, bool) {
	if t.hostLookup != nil {
		return t.hostLookup(id)
	}
	if id < 0 || int(id) >= len(t.pool) {
		return "", false
	}
	return t.pool[id], true
}

// Len returns the number of distinct interned strings.
func (t *SymbolTable) Len() int {
	return len(t.pool)
}

// nextPow2 rounds n up to the next power of two, with a minimum of 1.
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}
