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

// tupleSet is an open-addressed, power-of-two-capacity membership set
// keyed by tuple hash. Slots store 1+rowIndex into an owning tuple buffer;
// 0 means empty. It mirrors one of Relation's Base or Next buffers to give
// O(1) dedup, per spec.md §3/§4.3.
type tupleSet struct {
	slots []int32
	mask  uint64
}

func newTupleSet(capHint int) *tupleSet {
	n := nextPow2(capHint)
	if n < 16 {
		n = 16
	}
	return &tupleSet{slots: make([]int32, n), mask: uint64(n - 1)}
}

func (s *tupleSet) needsGrow(n int) bool {
	return uint64(n)*2 > uint64(len(s.slots))
}

// rehash rebuilds the slot table for the first n tuples of buf.
func (s *tupleSet) rehash(buf []Tuple, n int) {
	size := len(s.slots) * 2
	for uint64(n)*2 > uint64(size) {
		size *= 2
	}
	s.slots = make([]int32, size)
	s.mask = uint64(size - 1)
	for i := 0; i < n; i++ {
		idx := buf[i].Hash() & s.mask
		for s.slots[idx] != 0 {
			idx = (idx + 1) & s.mask
		}
		s.slots[idx] = int32(i + 1)
	}
}

// contains reports whether t is already a member, given the buffer it
// mirrors (only the first n entries of buf are considered live).
func (s *tupleSet) contains(buf []Tuple, n int, t Tuple) bool {
	h := t.Hash()
	idx := h & s.mask
	for {
		v := s.slots[idx]
		if v == 0 {
			return false
		}
		if int(v) <= n && buf[v-1].Equal(t) {
			return true
		}
		idx = (idx + 1) & s.mask
	}
}

// insert records buf[rowIdx] as a member; caller must have already
// verified it is not present via contains.
func (s *tupleSet) insert(buf []Tuple, rowIdx int) {
	if s.needsGrow(rowIdx + 1) {
		s.rehash(buf, rowIdx+1)
		return
	}
	h := buf[rowIdx].Hash()
	idx := h & s.mask
	for s.slots[idx] != 0 {
		idx = (idx + 1) & s.mask
	}
	s.slots[idx] = int32(rowIdx + 1)
}

func (s *tupleSet) reset() {
	for i := range s.slots {
		s.slots[i] = 0
	}
}

// Relation holds the runtime state for one predicate: the three tuple
// buffers semi-naive evaluation needs (base/delta/next, spec.md §3/§4.3)
// plus two optional single-column hash indices over base.
type Relation struct {
	Pred  PredicateID
	Arity int

	Base  []Tuple
	Delta []Tuple
	Next  []Tuple

	baseSet *tupleSet
	nextSet *tupleSet

	// arg0Index/arg1Index chain row indices into Base by the value at
	// that position, in insertion order, per spec.md §3's "chaining" and
	// "order is insertion order" requirements.
	arg0Index map[Value][]int
	arg1Index map[Value][]int

	alloc Allocator
}

// NewRelation returns an empty relation runtime for a predicate of the
// given arity.
func NewRelation(pred PredicateID, arity int, alloc Allocator) *Relation {
	if alloc == nil {
		alloc = DefaultAllocator{}
	}
	return &Relation{
		Pred:      pred,
		Arity:     arity,
		baseSet:   newTupleSet(16),
		nextSet:   newTupleSet(16),
		arg0Index: make(map[Value][]int),
		arg1Index: make(map[Value][]int),
		alloc:     alloc,
	}
}

func (r *Relation) indexInsert(rowIdx int, t Tuple) {
	if r.Arity >= 1 {
		r.arg0Index[t[0]] = append(r.arg0Index[t[0]], rowIdx)
	}
	if r.Arity >= 2 {
		r.arg1Index[t[1]] = append(r.arg1Index[t[1]], rowIdx)
	}
}

func (r *Relation) rebuildIndices() {
	r.arg0Index = make(map[Value][]int, len(r.Base))
	r.arg1Index = make(map[Value][]int, len(r.Base))
	for i, t := range r.Base {
		r.indexInsert(i, t)
	}
}

// BaseInsertUnique appends t to Base if it is not already present,
// updating the membership set and single-column indices. It reports
// whether t was newly added.
func (r *Relation) BaseInsertUnique(t Tuple) bool {
	if r.baseSet.contains(r.Base, len(r.Base), t) {
		return false
	}
	r.Base = r.alloc.GrowTuples(r.Base, len(r.Base)+1)
	r.Base = append(r.Base, t)
	rowIdx := len(r.Base) - 1
	r.baseSet.insert(r.Base, rowIdx)
	r.indexInsert(rowIdx, t)
	return true
}

// NextInsertUnique appends t to Next if it is not already present in Next
// (tuples already in Base are still added to Next; PromoteNext dedups
// against Base). It reports whether t was newly added to Next.
//
// This does not check baseSet, so Next and Base can transiently overlap
// during an iteration; testable property #3's "pairwise disjoint" wording
// is about the committed state PromoteNext produces, not mid-iteration
// staging, and checking baseSet here on every join-result insert would
// cost a lookup this dedup doesn't need.
func (r *Relation) NextInsertUnique(t Tuple) bool {
	if r.nextSet.contains(r.Next, len(r.Next), t) {
		return false
	}
	r.Next = r.alloc.GrowTuples(r.Next, len(r.Next)+1)
	r.Next = append(r.Next, t)
	r.nextSet.insert(r.Next, len(r.Next)-1)
	return true
}

// RelationSnapshot captures a relation's Base buffer together with the
// membership set and indices that describe it, so a later Restore can
// undo a PrepareDeltaFromBase/PromoteNext sequence that never committed
// (spec.md §7 "evaluate is all-or-nothing with respect to state").
type RelationSnapshot struct {
	base      []Tuple
	baseSet   *tupleSet
	arg0Index map[Value][]int
	arg1Index map[Value][]int
}

// Snapshot captures the relation's current Base view. Cheap: it only
// copies slice/map headers, since PrepareDeltaFromBase never mutates the
// buffer or indices it hands off, only replaces them.
func (r *Relation) Snapshot() RelationSnapshot {
	return RelationSnapshot{
		base:      r.Base,
		baseSet:   r.baseSet,
		arg0Index: r.arg0Index,
		arg1Index: r.arg1Index,
	}
}

// Restore resets Base, its membership set, and its indices to a prior
// Snapshot, and discards Delta/Next, undoing any PrepareDeltaFromBase or
// PromoteNext performed since the snapshot was taken.
func (r *Relation) Restore(s RelationSnapshot) {
	r.Base = s.base
	r.baseSet = s.baseSet
	r.arg0Index = s.arg0Index
	r.arg1Index = s.arg1Index
	r.Delta = nil
	r.Next = nil
	r.nextSet = newTupleSet(16)
}

// PrepareDeltaFromBase moves Base into Delta and empties Base (and its set
// and indices), so that EDB facts inserted before evaluation starts
// propagate on iteration 1 of semi-naive evaluation (spec.md §4.3/§4.7).
func (r *Relation) PrepareDeltaFromBase() {
	r.Delta = r.Base
	r.Base = nil
	r.baseSet = newTupleSet(16)
	r.arg0Index = make(map[Value][]int)
	r.arg1Index = make(map[Value][]int)
}

// PromoteNext merges Next into Base (deduping against Base), rebuilds the
// indices over the merged rows, reassigns Delta to exactly the tuples that
// were not already in Base, and empties Next.
func (r *Relation) PromoteNext() {
	var newDelta []Tuple
	for _, t := range r.Next {
		if r.BaseInsertUnique(t) {
			newDelta = append(newDelta, t)
		}
	}
	r.Delta = newDelta
	r.Next = nil
	r.nextSet = newTupleSet(16)
	// BaseInsertUnique already maintained arg0Index/arg1Index incrementally,
	// but spec.md §4.3 calls for a rebuild at this boundary; do so to keep
	// index state reproducible even if a provider mutated Base out of band.
	r.rebuildIndices()
}

// LookupArg0 returns the row indices in Base, in insertion order, whose
// first argument equals key.
func (r *Relation) LookupArg0(key Value) []int {
	return r.arg0Index[key]
}

// LookupArg1 returns the row indices in Base, in insertion order, whose
// second argument equals key.
func (r *Relation) LookupArg1(key Value) []int {
	return r.arg1Index[key]
}

// ClearDerived empties Base, Delta, and Next along with their sets and
// indices. Used by the engine facade to implement clear_derived_facts for
// IDB-marked predicates (spec.md §3 "Lifecycle").
func (r *Relation) ClearDerived() {
	r.Base = nil
	r.Delta = nil
	r.Next = nil
	r.baseSet = newTupleSet(16)
	r.nextSet = newTupleSet(16)
	r.arg0Index = make(map[Value][]int)
	r.arg1Index = make(map[Value][]int)
}
