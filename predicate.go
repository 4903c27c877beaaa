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

package datalog

import "fmt"

// PredicateID is a stable identifier for a predicate, assigned on first
// registration and never reused for the lifetime of the engine.
type PredicateID uint16

// InvalidPredicate is returned by lookups that fail.
const InvalidPredicate PredicateID = 0xFFFF

// ArgKind hints at the expected Kind of values in a predicate's argument
// position; it is advisory only, filled in from the `.pred` directive
// (spec.md §4.4) when present.
type ArgKind uint8

const (
	ArgUnknown ArgKind = iota
	ArgSymbol
	ArgInt
	ArgRange
)

// PredicateDef describes one predicate: its name, arity, whether it was
// explicitly declared via a `.pred` directive, whether it is the head of
// any rule (IDB), and which stratum the analyzer assigned it (C7).
type PredicateDef struct {
	ID       PredicateID
	Name     string
	Arity    int
	ArgKinds []ArgKind
	Declared bool
	IDB      bool
	Stratum  int
}

// PredicateTable maps predicate names to stable IDs and definitions. Names
// reference predicates lazily: Register is idempotent for repeated
// (name, arity) pairs and errors on an arity mismatch.
type PredicateTable struct {
	byName map[string]PredicateID
	defs   []*PredicateDef
}

// NewPredicateTable returns an empty predicate table.
func NewPredicateTable() *PredicateTable {
	return &PredicateTable{byName: make(map[string]PredicateID)}
}

// Register returns the ID for name/arity, creating a new predicate
// definition on first reference. A second registration with the same name
// but a different arity is an error; the predicate table is left
// unchanged.
func (t *PredicateTable) Register(name string, arity int) (PredicateID, error) {
	if id, ok := t.byName[name]; ok {
		def := t.defs[id]
		if def.Arity != arity {
			return InvalidPredicate, fmt.Errorf(
				"datalog: predicate %q redeclared with arity %d, previously %d",
				name, arity, def.Arity)
		}
		return id, nil
	}
	if len(t.defs) >= int(InvalidPredicate) {
		return InvalidPredicate, fmt.Errorf("datalog: too many predicates")
	}
	id := PredicateID(len(t.defs))
	def := &PredicateDef{ID: id, Name: name, Arity: arity}
	t.defs = append(t.defs, def)
	t.byName[name] = id
	return id, nil
}

// Declare marks a predicate as declared (via `.pred`) and records
// per-position argument kind hints; it registers the predicate if it does
// not exist yet.
func (t *PredicateTable) Declare(name string, arity int, kinds []ArgKind) (PredicateID, error) {
	id, err := t.Register(name, arity)
	if err != nil {
		return id, err
	}
	def := t.defs[id]
	def.Declared = true
	def.ArgKinds = kinds
	return id, nil
}

// MarkIDB flags a predicate as intensional: it appears as a rule head
// somewhere in the loaded program.
func (t *PredicateTable) MarkIDB(id PredicateID) {
	t.defs[id].IDB = true
}

// Lookup returns the ID registered for name, and false if none exists.
func (t *PredicateTable) Lookup(name string) (PredicateID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Def returns the definition for id, or nil if id is out of range.
func (t *PredicateTable) Def(id PredicateID) *PredicateDef {
	if int(id) < 0 || int(id) >= len(t.defs) {
		return nil
	}
	return t.defs[id]
}

// All returns every registered predicate definition, in registration
// order.
func (t *PredicateTable) All() []*PredicateDef {
	return t.defs
}

// Name returns the name registered for id, or "" if none.
func (t *PredicateTable) Name(id PredicateID) string {
	if def := t.Def(id); def != nil {
		return def.Name
	}
	return ""
}
