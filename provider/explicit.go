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

package provider

import "github.com/dlforge/datalog"

// Explicit is the default provider kind: it stores tuples directly in a
// *datalog.Relation's base/delta/next buffers and indices (spec.md
// §4.5 "Explicit. Default. Backed by the relation runtime (C4).").
type Explicit struct {
	rel *datalog.Relation
}

// NewExplicit wraps rel as a Provider.
func NewExplicit(rel *datalog.Relation) *Explicit {
	return &Explicit{rel: rel}
}

// Relation returns the underlying relation runtime. The evaluator (C8)
// uses this to drive the base/delta/next semi-naive dance directly,
// since that bootstrap/promote lifecycle is a C4 concept outside the
// generic Provider surface.
func (p *Explicit) Relation() *datalog.Relation {
	return p.rel
}

func (p *Explicit) Add(tuple datalog.Tuple) (AddResult, error) {
	if p.rel.BaseInsertUnique(tuple) {
		return Added, nil
	}
	return NoChange, nil
}

func (p *Explicit) Contains(tuple datalog.Tuple) (bool, error) {
	if len(tuple) == 0 {
		for _, t := range p.rel.Base {
			if t.Equal(tuple) {
				return true, nil
			}
		}
		return false, nil
	}
	for _, idx := range p.rel.LookupArg0(tuple[0]) {
		if p.rel.Base[idx].Equal(tuple) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Explicit) Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error) {
	var rows []int
	switch keyPos {
	case 0:
		rows = p.rel.LookupArg0(key)
	case 1:
		rows = p.rel.LookupArg1(key)
	default:
		return nil, ErrUnsupported
	}
	out := make([]datalog.Tuple, len(rows))
	for i, idx := range rows {
		out[i] = p.rel.Base[idx]
	}
	return out, nil
}

func (p *Explicit) IterAll() ([]datalog.Tuple, error) {
	out := make([]datalog.Tuple, len(p.rel.Base))
	copy(out, p.rel.Base)
	return out, nil
}

func (p *Explicit) HasDelta() bool {
	return len(p.rel.Delta) > 0
}

func (p *Explicit) IterDelta() ([]datalog.Tuple, error) {
	out := make([]datalog.Tuple, len(p.rel.Delta))
	copy(out, p.rel.Delta)
	return out, nil
}

func (p *Explicit) AckDelta() {
	p.rel.Delta = nil
}

func (p *Explicit) Reset() error {
	p.rel.ClearDerived()
	return nil
}

func (p *Explicit) Destroy() {}
