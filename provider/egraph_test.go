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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dlforge/datalog"
)

func TestEgraphCongruenceClosure(t *testing.T) {
	syms := datalog.NewSymbolTable()
	a, b, fa, fb := syms.Intern("a"), syms.Intern("b"), syms.Intern("fa"), syms.Intern("fb")

	ctx := NewEgraphContext()
	eq := NewTermEq(ctx)
	f, err := NewEnodeProvider(ctx, OpAPP, 1)
	require.NoError(t, err)

	// f(a) = fa, f(b) = fb, a = b  =>  fa = fb by congruence.
	_, err = f.Add(datalog.Tuple{datalog.SymVal(a), datalog.SymVal(fa)})
	require.NoError(t, err)
	_, err = f.Add(datalog.Tuple{datalog.SymVal(b), datalog.SymVal(fb)})
	require.NoError(t, err)

	ok, err := eq.Contains(datalog.Tuple{datalog.SymVal(fa), datalog.SymVal(fb)})
	require.NoError(t, err)
	require.False(t, ok, "fa and fb unrelated before a=b is asserted")

	_, err = eq.Add(datalog.Tuple{datalog.SymVal(a), datalog.SymVal(b)})
	require.NoError(t, err)

	ok, err = eq.Contains(datalog.Tuple{datalog.SymVal(fa), datalog.SymVal(fb)})
	require.NoError(t, err)
	require.True(t, ok, "congruence invariant: a=b and f(a),f(b) both defined implies f(a)=f(b)")
}

func TestEnodeProviderAddIdempotentAndContains(t *testing.T) {
	syms := datalog.NewSymbolTable()
	x, y, z := syms.Intern("x"), syms.Intern("y"), syms.Intern("z")
	ctx := NewEgraphContext()
	add, err := NewEnodeProvider(ctx, OpADD, 2)
	require.NoError(t, err)

	res, err := add.Add(datalog.Tuple{datalog.SymVal(x), datalog.SymVal(y), datalog.SymVal(z)})
	require.NoError(t, err)
	require.Equal(t, Added, res)

	res, err = add.Add(datalog.Tuple{datalog.SymVal(x), datalog.SymVal(y), datalog.SymVal(z)})
	require.NoError(t, err)
	require.Equal(t, NoChange, res)

	ok, err := add.Contains(datalog.Tuple{datalog.SymVal(x), datalog.SymVal(y), datalog.SymVal(z)})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestEgraphSharedResetExactlyOnce(t *testing.T) {
	syms := datalog.NewSymbolTable()
	a, b := syms.Intern("a"), syms.Intern("b")
	ctx := NewEgraphContext()
	eq := NewTermEq(ctx)
	f, err := NewEnodeProvider(ctx, OpAPP, 1)
	require.NoError(t, err)

	_, _ = eq.Add(datalog.Tuple{datalog.SymVal(a), datalog.SymVal(b)})

	ctx.BeginResetRound()
	require.NoError(t, eq.Reset())
	require.NoError(t, f.Reset()) // second Reset on the same round is a no-op

	ok, err := eq.Contains(datalog.Tuple{datalog.SymVal(a), datalog.SymVal(b)})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEnodeIterAllOrder(t *testing.T) {
	syms := datalog.NewSymbolTable()
	x1, y1, z1 := syms.Intern("x1"), syms.Intern("y1"), syms.Intern("z1")
	x2, y2, z2 := syms.Intern("x2"), syms.Intern("y2"), syms.Intern("z2")
	ctx := NewEgraphContext()
	add, err := NewEnodeProvider(ctx, OpADD, 2)
	require.NoError(t, err)

	_, _ = add.Add(datalog.Tuple{datalog.SymVal(x2), datalog.SymVal(y2), datalog.SymVal(z2)})
	_, _ = add.Add(datalog.Tuple{datalog.SymVal(x1), datalog.SymVal(y1), datalog.SymVal(z1)})

	all, err := add.IterAll()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.True(t, tupleLess(all[0], all[1]) || all[0].Equal(all[1]))
}
