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

import (
	"fmt"
	"sort"

	"github.com/dlforge/datalog"
)

// unionFind is a disjoint-set over dense non-negative int keys (symbol
// IDs), with path compression and union by rank.
type unionFind struct {
	parent []int32
	rank   []int32
}

func (u *unionFind) ensure(x int32) {
	for int32(len(u.parent)) <= x {
		u.parent = append(u.parent, int32(len(u.parent)))
		u.rank = append(u.rank, 0)
	}
}

func (u *unionFind) find(x int32) int32 {
	u.ensure(x)
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		next := u.parent[x]
		u.parent[x] = root
		x = next
	}
	return root
}

// union merges the classes of a and b, returning false if they were
// already in the same class.
func (u *unionFind) union(a, b int32) bool {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return false
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
	return true
}

// Eqrel is the equivalence-relation provider kind: a binary predicate
// backed by a union-find over symbol IDs (spec.md §4.5 "Equivalence
// (eqrel, binary)").
type Eqrel struct {
	uf      unionFind
	known   map[int32]bool // every symbol ID ever mentioned, for IterAll
	pending [][2]datalog.Value
}

// NewEqrel returns an empty equivalence-relation provider.
func NewEqrel() *Eqrel {
	return &Eqrel{known: make(map[int32]bool)}
}

func symOf(v datalog.Value) (int32, error) {
	if v.Kind != datalog.KindSymbol {
		return 0, fmt.Errorf("provider: eqrel arguments must be symbols, got %s", v.Kind)
	}
	return int32(v.Sym), nil
}

func (p *Eqrel) Add(tuple datalog.Tuple) (AddResult, error) {
	if len(tuple) != 2 {
		return NoChange, fmt.Errorf("provider: eqrel add expects arity 2, got %d", len(tuple))
	}
	a, err := symOf(tuple[0])
	if err != nil {
		return NoChange, err
	}
	b, err := symOf(tuple[1])
	if err != nil {
		return NoChange, err
	}
	p.known[a] = true
	p.known[b] = true
	if !p.uf.union(a, b) {
		return NoChange, nil
	}
	p.pending = append(p.pending, [2]datalog.Value{tuple[0], tuple[1]})
	return Added, nil
}

func (p *Eqrel) Contains(tuple datalog.Tuple) (bool, error) {
	if len(tuple) != 2 {
		return false, fmt.Errorf("provider: eqrel contains expects arity 2, got %d", len(tuple))
	}
	a, err := symOf(tuple[0])
	if err != nil {
		return false, err
	}
	b, err := symOf(tuple[1])
	if err != nil {
		return false, err
	}
	if !p.known[a] || !p.known[b] {
		return a == b, nil
	}
	return p.uf.find(a) == p.uf.find(b), nil
}

// classMembers returns every known symbol ID in key's class, ascending.
func (p *Eqrel) classMembers(key int32) []int32 {
	if !p.known[key] {
		return []int32{key}
	}
	root := p.uf.find(key)
	var members []int32
	for id := range p.known {
		if p.uf.find(id) == root {
			members = append(members, id)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

func (p *Eqrel) Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error) {
	if keyPos != 0 && keyPos != 1 {
		return nil, ErrUnsupported
	}
	k, err := symOf(key)
	if err != nil {
		return nil, err
	}
	var out []datalog.Tuple
	for _, m := range p.classMembers(k) {
		mv := datalog.SymVal(datalog.SymbolID(m))
		if keyPos == 0 {
			out = append(out, datalog.Tuple{key, mv})
		} else {
			out = append(out, datalog.Tuple{mv, key})
		}
	}
	return out, nil
}

func (p *Eqrel) IterAll() ([]datalog.Tuple, error) {
	roots := make(map[int32][]int32)
	for id := range p.known {
		r := p.uf.find(id)
		roots[r] = append(roots[r], id)
	}
	var rootIDs []int32
	for r := range roots {
		rootIDs = append(rootIDs, r)
	}
	sort.Slice(rootIDs, func(i, j int) bool { return rootIDs[i] < rootIDs[j] })

	var out []datalog.Tuple
	for _, r := range rootIDs {
		members := roots[r]
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for _, a := range members {
			for _, b := range members {
				out = append(out, datalog.Tuple{
					datalog.SymVal(datalog.SymbolID(a)),
					datalog.SymVal(datalog.SymbolID(b)),
				})
			}
		}
	}
	return out, nil
}

func (p *Eqrel) HasDelta() bool {
	return len(p.pending) > 0
}

func (p *Eqrel) IterDelta() ([]datalog.Tuple, error) {
	out := make([]datalog.Tuple, len(p.pending))
	for i, pr := range p.pending {
		out[i] = datalog.Tuple{pr[0], pr[1]}
	}
	return out, nil
}

func (p *Eqrel) AckDelta() {
	p.pending = nil
}

func (p *Eqrel) Reset() error {
	p.uf = unionFind{}
	p.known = make(map[int32]bool)
	p.pending = nil
	return nil
}

func (p *Eqrel) Destroy() {}
