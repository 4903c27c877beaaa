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

// Allocator centralizes the growth of the relation runtime's tuple
// buffers, standing in for the malloc/realloc/free-style callbacks
// spec.md §5 requires the core to route every allocation through, rather
// than calling the system allocator directly. Implementations backed by a
// custom arena or pool can swap in their own growth policy; DefaultAllocator
// rounds the requested capacity up to the next power of two.
type Allocator interface {
	// GrowTuples returns a buffer with capacity for at least minCap
	// tuples, with buf's existing contents preserved as a prefix.
	GrowTuples(buf []Tuple, minCap int) []Tuple
	// GrowInts returns a buffer with capacity for at least minCap ints,
	// with buf's existing contents preserved as a prefix. Used for index
	// row-id chains.
	GrowInts(buf []int, minCap int) []int
}

// DefaultAllocator grows a buffer to the next power-of-two capacity at or
// above minCap, copying its contents into a new slice.
type DefaultAllocator struct{}

func (DefaultAllocator) GrowTuples(buf []Tuple, minCap int) []Tuple {
	if cap(buf) >= minCap {
		return buf
	}
	next := make([]Tuple, len(buf), nextPow2(minCap))
	copy(next, buf)
	return next
}

func (DefaultAllocator) GrowInts(buf []int, minCap int) []int {
	if cap(buf) >= minCap {
		return buf
	}
	next := make([]int, len(buf), nextPow2(minCap))
	copy(next, buf)
	return next
}
