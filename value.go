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

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Kind tags a Value's payload.
type Kind uint8

const (
	KindSymbol Kind = iota
	KindInt
	KindRange
	KindFact
)

func (k Kind) String() string {
	switch k {
	case KindSymbol:
		return "symbol"
	case KindInt:
		return "int"
	case KindRange:
		return "range"
	case KindFact:
		return "fact"
	default:
		return "unknown"
	}
}

// MaxArity bounds the number of terms in any tuple or literal.
const MaxArity = 8

// Value is a tagged scalar: an interned symbol, a 64-bit signed integer, an
// opaque range identifier, or a fact ID referencing another tuple. Value is
// a plain comparable struct, so Go's == already implements the equality
// spec.md §3 requires (same kind, same payload); Equal is kept as an
// explicit method to match this codebase's style of naming invariants.
type Value struct {
	Kind Kind
	Sym  SymbolID
	Int  int64
	Rng  uint64
	Fact FactID
}

// SymVal returns a symbol value.
func SymVal(id SymbolID) Value { return Value{Kind: KindSymbol, Sym: id} }

// IntVal returns an integer value.
func IntVal(n int64) Value { return Value{Kind: KindInt, Int: n} }

// RangeVal returns an opaque range value.
func RangeVal(id uint64) Value { return Value{Kind: KindRange, Rng: id} }

// FactVal returns a fact value referencing another tuple by intern ID.
func FactVal(id FactID) Value { return Value{Kind: KindFact, Fact: id} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	return v == other
}

// Format renders a value using syms for symbol payloads; with a nil table
// or an unknown ID a symbol renders as $sym<N>.
func (v Value) Format(syms *SymbolTable) string {
	switch v.Kind {
	case KindSymbol:
		if syms != nil {
			if s, ok := syms.Lookup(v.Sym); ok {
				return s
			}
		}
		return fmt.Sprintf("$sym%d", v.Sym)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindRange:
		return fmt.Sprintf("$range%d", v.Rng)
	case KindFact:
		return fmt.Sprintf("$fact%d", v.Fact)
	default:
		return "?"
	}
}

// hash writes a stable, order-sensitive digest of v into d.
func (v Value) hash(d *xxhash.Digest) {
	var buf [9]byte
	buf[0] = byte(v.Kind)
	switch v.Kind {
	case KindSymbol:
		putUint64(buf[1:], uint64(v.Sym))
	case KindInt:
		putUint64(buf[1:], uint64(v.Int))
	case KindRange:
		putUint64(buf[1:], v.Rng)
	case KindFact:
		putUint64(buf[1:], uint64(v.Fact))
	}
	d.Write(buf[:])
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// Tuple is a fixed-arity ordered sequence of Values.
type Tuple []Value

// Equal reports whether two tuples have identical arity and values in the
// same order.
func (t Tuple) Equal(other Tuple) bool {
	if len(t) != len(other) {
		return false
	}
	for i := range t {
		if t[i] != other[i] {
			return false
		}
	}
	return true
}

// Hash returns a 64-bit digest that is order-sensitive and stable across
// runs with the same input, as spec.md §4.2 requires: it never depends on
// Go's randomized map seed, only on the tuple's own bytes.
func (t Tuple) Hash() uint64 {
	d := xxhash.New()
	for _, v := range t {
		v.hash(d)
	}
	return d.Sum64()
}

// Clone returns an independent copy of t.
func (t Tuple) Clone() Tuple {
	c := make(Tuple, len(t))
	copy(c, t)
	return c
}

func (t Tuple) Format(syms *SymbolTable) string {
	if len(t) == 0 {
		return "()"
	}
	s := "("
	for i, v := range t {
		if i > 0 {
			s += ", "
		}
		s += v.Format(syms)
	}
	return s + ")"
}
