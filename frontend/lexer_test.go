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

import "testing"

func lexAll(t *testing.T, src string) []token {
	l := newLexer("test", src)
	var toks []token
	for {
		tok := l.nextToken()
		if tok.typ == tokError {
			t.Fatalf("lex error at %d:%d: %s", tok.line, tok.col, tok.val)
		}
		if tok.typ == tokEOF {
			return toks
		}
		toks = append(toks, tok)
	}
}

func TestLexBasicClause(t *testing.T) {
	toks := lexAll(t, "ancestor(X, Z) :- ancestor(X, Y), ancestor(Y, Z).\n")
	want := []tokenType{
		tokIdent, tokLParen, tokVariable, tokComma, tokVariable, tokRParen,
		tokArrow,
		tokIdent, tokLParen, tokVariable, tokComma, tokVariable, tokRParen, tokComma,
		tokIdent, tokLParen, tokVariable, tokComma, tokVariable, tokRParen,
		tokDot,
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].typ != w {
			t.Fatalf("token %d: got %v, want %v", i, toks[i].typ, w)
		}
	}
}

func TestLexCommentsAndNestedBlockComments(t *testing.T) {
	toks := lexAll(t, "% line comment\nfoo(1). // another\n/* block /* nested */ still comment */ bar(2).")
	if len(toks) != 10 {
		t.Fatalf("got %d tokens, want 10: %v", len(toks), toks)
	}
}

func TestLexStrings(t *testing.T) {
	toks := lexAll(t, `p("hello\nworld", 'single').`)
	if toks[2].typ != tokString || toks[2].val != "hello\nworld" {
		t.Fatalf("bad string token: %+v", toks[2])
	}
	if toks[4].typ != tokString || toks[4].val != "single" {
		t.Fatalf("bad string token: %+v", toks[4])
	}
}

func TestLexIntegersAndRelops(t *testing.T) {
	toks := lexAll(t, "X > 3, Y <= -4, Z != 0, W <> 1, V >= 2.")
	typesWant := []tokenType{
		tokVariable, tokGt, tokInt, tokComma,
		tokVariable, tokLe, tokInt, tokComma,
		tokVariable, tokNe, tokInt, tokComma,
		tokVariable, tokNe, tokInt, tokComma,
		tokVariable, tokGe, tokInt,
		tokDot,
	}
	if len(toks) != len(typesWant) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(typesWant), toks)
	}
	for i, w := range typesWant {
		if toks[i].typ != w {
			t.Fatalf("token %d: got %v, want %v (%+v)", i, toks[i].typ, w, toks[i])
		}
	}
	if toks[6].val != "-4" {
		t.Fatalf("expected -4, got %q", toks[6].val)
	}
}

func TestLexWildcardAndNot(t *testing.T) {
	toks := lexAll(t, "p(X, _) :- q(X), not r(X).")
	foundWildcard, foundNot := false, false
	for _, tk := range toks {
		if tk.typ == tokWildcard {
			foundWildcard = true
		}
		if tk.typ == tokNot {
			foundNot = true
		}
	}
	if !foundWildcard || !foundNot {
		t.Fatalf("expected wildcard and not tokens: %v", toks)
	}
}

func TestLexDirectives(t *testing.T) {
	toks := lexAll(t, ".pred parent(a:sym, b:sym).\n.clear_derived().\n")
	if toks[0].typ != tokDirective || toks[0].val != "pred" {
		t.Fatalf("expected .pred directive, got %+v", toks[0])
	}
}

func TestLexUnterminatedStringErrors(t *testing.T) {
	l := newLexer("test", `p("oops).`)
	for {
		tok := l.nextToken()
		if tok.typ == tokError {
			return
		}
		if tok.typ == tokEOF {
			t.Fatal("expected a lex error for unterminated string")
		}
	}
}
