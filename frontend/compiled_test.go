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

package frontend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	src := `
.pred edge(a:sym, b:sym).
edge(a, b).
edge(b, c).
path(X, Y) :- edge(X, Y).
path(X, Z) :- edge(X, Y), path(Y, Z).
blocked(X) :- path(X, _), not edge(X, X), item(X, N), N >= 3, contains(X, "z").
`
	prog, err := Parse("test", src)
	require.NoError(t, err)

	data, err := Serialize(prog)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), Magic))

	got, err := Deserialize(data)
	require.NoError(t, err)

	require.Equal(t, normalizeProgram(prog), normalizeProgram(got))
}

func TestDeserializeRejectsBadMagic(t *testing.T) {
	_, err := Deserialize([]byte("NOTRIGHT" + "garbage"))
	require.Error(t, err)
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	prog, err := Parse("test", "p(a).")
	require.NoError(t, err)
	data, err := Serialize(prog)
	require.NoError(t, err)

	_, err = Deserialize(data[:len(data)-2])
	require.Error(t, err)
}

func TestSerializeIsIndependentOfSourceText(t *testing.T) {
	// A program built directly (no association with any source text)
	// must still serialize and deserialize correctly: the compiled form
	// depends only on the AST, not on any parser state.
	prog := &Program{
		Preds: []*PredDecl{{Name: "p", Args: []PredArg{{Name: "X", Type: "sym"}}}},
		Clauses: []*Clause{
			{Head: &Literal{Kind: LitAtom, Pred: "p", Args: []Term{SymTerm("x", Position{})}}},
		},
	}
	data, err := Serialize(prog)
	require.NoError(t, err)
	got, err := Deserialize(data)
	require.NoError(t, err)
	require.Equal(t, normalizeProgram(prog), normalizeProgram(got))
}
