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

func TestValueEqualityByKindAndPayload(t *testing.T) {
	require.True(t, SymVal(3).Equal(SymVal(3)))
	require.False(t, SymVal(3).Equal(SymVal(4)))
	require.False(t, SymVal(3).Equal(IntVal(3)), "symbol 3 and int 3 must not compare equal")
	require.True(t, IntVal(-7).Equal(IntVal(-7)))
	require.True(t, FactVal(42).Equal(FactVal(42)))
}

func TestTupleHashOrderSensitive(t *testing.T) {
	a := Tuple{SymVal(1), SymVal(2)}
	b := Tuple{SymVal(2), SymVal(1)}
	if a.Hash() == b.Hash() {
		t.Fatal("tuple hash must be order-sensitive")
	}
	c := Tuple{SymVal(1), SymVal(2)}
	if a.Hash() != c.Hash() {
		t.Fatal("tuple hash must be stable for identical tuples")
	}
}

func TestTupleEqual(t *testing.T) {
	a := Tuple{SymVal(1), IntVal(2)}
	b := Tuple{SymVal(1), IntVal(2)}
	c := Tuple{SymVal(1), IntVal(3)}
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.False(t, a.Equal(Tuple{SymVal(1)}))
}

func TestTupleCloneIndependent(t *testing.T) {
	a := Tuple{SymVal(1)}
	b := a.Clone()
	b[0] = SymVal(2)
	require.Equal(t, SymbolID(1), a[0].Sym)
}
