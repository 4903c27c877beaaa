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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFactInternStableAndInverse(t *testing.T) {
	ft := NewFactInternTable()
	id1 := ft.Intern(5, Tuple{SymVal(1), SymVal(2)})
	id2 := ft.Intern(5, Tuple{SymVal(1), SymVal(2)})
	require.Equal(t, id1, id2, "interning the same tuple twice must return the same id")

	id3 := ft.Intern(5, Tuple{SymVal(3), SymVal(4)})
	require.NotEqual(t, id1, id3)

	got, ok := ft.Lookup(id1)
	require.True(t, ok)
	require.True(t, got.Equal(Tuple{SymVal(1), SymVal(2)}))

	require.Equal(t, PredicateID(5), id1.Pred())
	require.Equal(t, PredicateID(5), id3.Pred())
}

func TestFactInternPerPredicateNamespace(t *testing.T) {
	ft := NewFactInternTable()
	idA := ft.Intern(1, Tuple{SymVal(9)})
	idB := ft.Intern(2, Tuple{SymVal(9)})
	require.NotEqual(t, idA, idB, "same tuple under different predicates must get distinct ids")
}

func TestFactInternLookupUnknown(t *testing.T) {
	ft := NewFactInternTable()
	_, ok := ft.Lookup(InvalidFactID)
	require.False(t, ok)
}
