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
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// SyntaxError reports a single parse failure, with source name and
// location, per spec.md §7 ("Parse" error kind).
type SyntaxError struct {
	Source string
	Pos    Position
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%s: %s", e.Source, e.Pos, e.Msg)
}

type parser struct {
	source string
	lex    *lexer
	tok    token
	errs   *multierror.Error
}

// Parse lexes and parses src (named source, for error messages) into a
// Program. The parser recovers only at rule boundaries (the next '.'):
// a malformed clause is skipped and parsing resumes with the next item,
// so one call can report several syntax errors. A non-nil error is
// always a *multierror.Error whose Errors are *SyntaxError values.
func Parse(source, src string) (*Program, error) {
	p := &parser{source: source, lex: newLexer(source, src)}
	p.advance()
	prog := &Program{}
	for p.tok.typ != tokEOF {
		p.parseItem(prog)
	}
	if p.errs != nil {
		return prog, p.errs.ErrorOrNil()
	}
	return prog, nil
}

func (p *parser) advance() {
	p.tok = p.lex.nextToken()
	if p.tok.typ == tokError {
		p.fail(Position{p.tok.line, p.tok.col}, "%s", p.tok.val)
	}
}

func (p *parser) fail(pos Position, format string, args ...interface{}) {
	p.errs = multierror.Append(p.errs, &SyntaxError{
		Source: p.source,
		Pos:    pos,
		Msg:    fmt.Sprintf(format, args...),
	})
}

// recover skips tokens through the next '.' (or EOF), per spec.md §4.4
// ("The parser recovers only at rule boundaries").
func (p *parser) recover() {
	for p.tok.typ != tokEOF && p.tok.typ != tokDot {
		p.advance()
	}
	if p.tok.typ == tokDot {
		p.advance()
	}
}

func (p *parser) parseItem(prog *Program) {
	pos := Position{p.tok.line, p.tok.col}
	if p.tok.typ == tokDirective {
		p.parseDirective(prog)
		return
	}
	clause, ok := p.parseClause()
	if !ok {
		p.recover()
		return
	}
	if p.tok.typ != tokDot {
		p.fail(Position{p.tok.line, p.tok.col}, "expected '.' to end clause, got %s", p.tok)
		p.recover()
		return
	}
	p.advance() // consume '.'
	clause.Pos = pos
	prog.Clauses = append(prog.Clauses, clause)
}

func (p *parser) parseDirective(prog *Program) {
	pos := Position{p.tok.line, p.tok.col}
	name := p.tok.val
	p.advance()
	switch name {
	case "pred":
		decl, ok := p.parsePredDecl(pos)
		if !ok {
			p.recover()
			return
		}
		prog.Preds = append(prog.Preds, decl)
	case "clear_derived":
		if !p.expect(tokLParen, "(") {
			p.recover()
			return
		}
		if !p.expect(tokRParen, ")") {
			p.recover()
			return
		}
		prog.ClearDerived = true
	default:
		p.fail(pos, "unknown directive %q", name)
		p.recover()
		return
	}
	if p.tok.typ == tokDot {
		p.advance()
	} else {
		p.fail(Position{p.tok.line, p.tok.col}, "expected '.' after directive")
		p.recover()
	}
}

func (p *parser) parsePredDecl(pos Position) (*PredDecl, bool) {
	if p.tok.typ != tokIdent {
		p.fail(pos, "expected predicate name after .pred")
		return nil, false
	}
	decl := &PredDecl{Name: p.tok.val, Pos: pos}
	p.advance()
	if !p.expect(tokLParen, "(") {
		return nil, false
	}
	for p.tok.typ != tokRParen {
		if p.tok.typ != tokIdent && p.tok.typ != tokVariable {
			p.fail(Position{p.tok.line, p.tok.col}, "expected argument name")
			return nil, false
		}
		arg := PredArg{Name: p.tok.val}
		p.advance()
		if p.tok.typ == tokColon {
			p.advance()
			if p.tok.typ != tokIdent {
				p.fail(Position{p.tok.line, p.tok.col}, "expected argument type")
				return nil, false
			}
			arg.Type = p.tok.val
			p.advance()
		}
		decl.Args = append(decl.Args, arg)
		if p.tok.typ == tokComma {
			p.advance()
			continue
		}
		break
	}
	if !p.expect(tokRParen, ")") {
		return nil, false
	}
	return decl, true
}

func (p *parser) expect(typ tokenType, what string) bool {
	if p.tok.typ != typ {
		p.fail(Position{p.tok.line, p.tok.col}, "expected %q, got %s", what, p.tok)
		return false
	}
	p.advance()
	return true
}

// parseClause parses `head` or `head :- body`. The trailing '.' is left
// for the caller.
func (p *parser) parseClause() (*Clause, bool) {
	head, ok := p.parseAtomLiteral()
	if !ok {
		return nil, false
	}
	c := &Clause{Head: head}
	if p.tok.typ == tokArrow {
		p.advance()
		for {
			lit, ok := p.parseBodyLiteral()
			if !ok {
				return nil, false
			}
			c.Body = append(c.Body, lit)
			if p.tok.typ == tokComma {
				p.advance()
				continue
			}
			break
		}
	}
	return c, true
}

func (p *parser) parseAtomLiteral() (*Literal, bool) {
	pos := Position{p.tok.line, p.tok.col}
	if p.tok.typ != tokIdent {
		p.fail(pos, "expected predicate name, got %s", p.tok)
		return nil, false
	}
	name := p.tok.val
	p.advance()
	var args []Term
	if p.tok.typ == tokLParen {
		p.advance()
		for p.tok.typ != tokRParen {
			term, ok := p.parseTerm()
			if !ok {
				return nil, false
			}
			args = append(args, term)
			if p.tok.typ == tokComma {
				p.advance()
				continue
			}
			break
		}
		if !p.expect(tokRParen, ")") {
			return nil, false
		}
	}
	return &Literal{Kind: LitAtom, Pred: name, Args: args, Pos: pos}, true
}

func (p *parser) parseBodyLiteral() (*Literal, bool) {
	pos := Position{p.tok.line, p.tok.col}
	if p.tok.typ == tokNot {
		p.advance()
		lit, ok := p.parseAtomLiteral()
		if !ok {
			return nil, false
		}
		lit.Neg = true
		lit.Pos = pos
		return lit, true
	}
	if p.tok.typ == tokIdent {
		// Either a plain/builtin atom, or the start of `term op term`
		// where the term happens to be an identifier constant — resolved
		// by peeking: builtins are recognized by name, an identifier
		// followed by a comparison operator starts `term op term`, and
		// everything else is a regular atom.
		name := p.tok.val
		if isBuiltinName(name) {
			return p.parseBuiltin(pos, Builtin(name))
		}
		peek := *p.lex
		switch peek.nextToken().typ {
		case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe:
			// identifier constant on the left of a comparison
		default:
			return p.parseAtomLiteral()
		}
	}
	// Otherwise this must be `term op term`.
	left, ok := p.parseTerm()
	if !ok {
		return nil, false
	}
	op, ok := p.parseCompareOp()
	if !ok {
		return nil, false
	}
	right, ok := p.parseTerm()
	if !ok {
		return nil, false
	}
	return &Literal{Kind: LitCompare, Op: op, Left: left, Right: right, Pos: pos}, true
}

func isBuiltinName(name string) bool {
	switch Builtin(name) {
	case BuiltinMatch, BuiltinStartsWith, BuiltinEndsWith, BuiltinContains:
		return true
	default:
		return false
	}
}

func (p *parser) parseBuiltin(pos Position, fn Builtin) (*Literal, bool) {
	p.advance() // consume builtin name
	if !p.expect(tokLParen, "(") {
		return nil, false
	}
	var args []Term
	for p.tok.typ != tokRParen {
		term, ok := p.parseTerm()
		if !ok {
			return nil, false
		}
		args = append(args, term)
		if p.tok.typ == tokComma {
			p.advance()
			continue
		}
		break
	}
	if !p.expect(tokRParen, ")") {
		return nil, false
	}
	if len(args) != 2 {
		p.fail(pos, "builtin %s expects 2 arguments, got %d", fn, len(args))
		return nil, false
	}
	return &Literal{Kind: LitBuiltin, Fn: fn, BuiltinArg: args, Pos: pos}, true
}

func (p *parser) parseCompareOp() (CompareOp, bool) {
	pos := Position{p.tok.line, p.tok.col}
	switch p.tok.typ {
	case tokEq:
		p.advance()
		return OpEq, true
	case tokNe:
		p.advance()
		return OpNe, true
	case tokLt:
		p.advance()
		return OpLt, true
	case tokLe:
		p.advance()
		return OpLe, true
	case tokGt:
		p.advance()
		return OpGt, true
	case tokGe:
		p.advance()
		return OpGe, true
	default:
		p.fail(pos, "expected relational operator, got %s", p.tok)
		return 0, false
	}
}

func (p *parser) parseTerm() (Term, bool) {
	pos := Position{p.tok.line, p.tok.col}
	switch p.tok.typ {
	case tokVariable:
		name := p.tok.val
		p.advance()
		return VarTerm(name, pos), true
	case tokWildcard:
		p.advance()
		return WildcardTerm(pos), true
	case tokIdent:
		// Lowercase bare identifiers are symbol constants in term
		// position, per spec.md §4.4.
		s := p.tok.val
		p.advance()
		return SymTerm(s, pos), true
	case tokString:
		s := p.tok.val
		p.advance()
		return SymTerm(s, pos), true
	case tokInt:
		n, err := strconv.ParseInt(p.tok.val, 10, 64)
		if err != nil {
			p.fail(pos, "invalid integer literal %q", p.tok.val)
			return Term{}, false
		}
		p.advance()
		return IntTerm(n, pos), true
	default:
		p.fail(pos, "expected a term, got %s", p.tok)
		return Term{}, false
	}
}
