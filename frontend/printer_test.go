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
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPrintParseRoundTrip checks the parse ∘ print ∘ parse = parse
// invariant: printing a parsed program and re-parsing it yields a
// Program with the same semantic content.
func TestPrintParseRoundTrip(t *testing.T) {
	srcs := []string{
		`.pred edge(a:sym, b:sym).
edge(a, b).
path(X, Y) :- edge(X, Y).
path(X, Z) :- edge(X, Y), path(Y, Z).
`,
		`result(X) :- item(X, N), N > 0, not excluded(X), starts_with(X, "pre fix").`,
		`.clear_derived().
p(_, 42).
`,
	}
	for _, src := range srcs {
		prog1, err := Parse("a", src)
		require.NoError(t, err)

		printed := Print(prog1)
		prog2, err := Parse("b", printed)
		require.NoError(t, err)

		require.Equal(t, normalizeProgram(prog1), normalizeProgram(prog2))

		// printing the reparsed program again should be a fixed point
		require.Equal(t, printed, Print(prog2))
	}
}

// normalizeProgram strips Position fields, which legitimately differ
// between the original and reparsed program, before comparing.
func normalizeProgram(p *Program) *Program {
	out := &Program{ClearDerived: p.ClearDerived}
	for _, d := range p.Preds {
		nd := &PredDecl{Name: d.Name, Args: append([]PredArg(nil), d.Args...)}
		out.Preds = append(out.Preds, nd)
	}
	for _, c := range p.Clauses {
		nc := &Clause{Head: normalizeLiteral(c.Head)}
		for _, l := range c.Body {
			nc.Body = append(nc.Body, normalizeLiteral(l))
		}
		out.Clauses = append(out.Clauses, nc)
	}
	return out
}

func normalizeLiteral(l *Literal) *Literal {
	nl := &Literal{Kind: l.Kind, Neg: l.Neg, Pred: l.Pred, Op: l.Op, Fn: l.Fn}
	for _, a := range l.Args {
		nl.Args = append(nl.Args, normalizeTerm(a))
	}
	if l.Kind == LitCompare {
		nl.Left = normalizeTerm(l.Left)
		nl.Right = normalizeTerm(l.Right)
	}
	for _, a := range l.BuiltinArg {
		nl.BuiltinArg = append(nl.BuiltinArg, normalizeTerm(a))
	}
	return nl
}

func normalizeTerm(t Term) Term {
	return Term{Kind: t.Kind, Name: t.Name, Sym: t.Sym, Int: t.Int}
}

func TestIsBareIdent(t *testing.T) {
	cases := map[string]bool{
		"foo":   true,
		"_bar":  true,
		"Foo":   false,
		"":      false,
		"not":   false,
		"a-b":   false,
		"a b":   false,
		"foo42": true,
	}
	for s, want := range cases {
		require.Equal(t, want, isBareIdent(s), "isBareIdent(%q)", s)
	}
}
