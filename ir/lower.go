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

package ir

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/frontend"
)

// varScope tracks variable-name -> slot assignment within one clause being
// lowered.
type varScope struct {
	names []string
	index map[string]int
}

func newVarScope() *varScope {
	return &varScope{index: make(map[string]int)}
}

func (s *varScope) slot(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	i := len(s.names)
	s.names = append(s.names, name)
	s.index[name] = i
	return i
}

// Lower resolves every predicate reference in prog against preds
// (registering new predicates and declared argument kinds as it goes),
// interns every constant via syms, and runs safety, range-restriction,
// and stratification analysis. preds and syms may be shared across
// multiple Lower calls (spec.md §4.8's incremental rule loading).
//
// On error, the returned *multierror.Error carries every *AnalysisError
// found; preds may have gained new predicate registrations and syms new
// interned symbols even when lowering fails overall, matching
// load_rules_from_string's documented "symbols already interned" partial
// effect.
func Lower(prog *frontend.Program, preds *datalog.PredicateTable, syms *datalog.SymbolTable) (*Program, error) {
	var errs *multierror.Error
	out := &Program{Preds: preds, ClearDerived: prog.ClearDerived}

	for _, decl := range prog.Preds {
		kinds := make([]datalog.ArgKind, len(decl.Args))
		for i, a := range decl.Args {
			kinds[i] = argKindOf(a.Type)
		}
		if _, err := preds.Declare(decl.Name, len(decl.Args), kinds); err != nil {
			errs = multierror.Append(errs, &AnalysisError{Pos: decl.Pos, Message: err.Error()})
		}
	}

	for _, c := range prog.Clauses {
		if len(c.Body) == 0 {
			fact, err := lowerFact(c, preds, syms)
			if err != nil {
				errs = multierror.Append(errs, err)
				continue
			}
			out.Facts = append(out.Facts, fact)
			continue
		}
		rule, err := lowerRule(c, preds, syms)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		preds.MarkIDB(rule.Head.Pred)
		out.Rules = append(out.Rules, rule)
	}

	if errs != nil {
		return out, errs.ErrorOrNil()
	}

	if err := checkSafety(out); err != nil {
		return out, err
	}
	numStrata, err := assignStrata(out, preds)
	if err != nil {
		return out, err
	}
	out.NumStrata = numStrata
	return out, nil
}

func argKindOf(t string) datalog.ArgKind {
	switch t {
	case "sym":
		return datalog.ArgSymbol
	case "int":
		return datalog.ArgInt
	case "range":
		return datalog.ArgRange
	default:
		return datalog.ArgUnknown
	}
}

func lowerFact(c *frontend.Clause, preds *datalog.PredicateTable, syms *datalog.SymbolTable) (*Fact, error) {
	head := c.Head
	id, err := preds.Register(head.Pred, len(head.Args))
	if err != nil {
		return nil, &AnalysisError{Pos: c.Pos, Rule: head.Pred, Message: err.Error()}
	}
	args := make([]datalog.Value, len(head.Args))
	for i, t := range head.Args {
		if t.Kind == frontend.TermVar || t.Kind == frontend.TermWildcard {
			return nil, &AnalysisError{
				Pos: c.Pos, Rule: head.Pred,
				Message: "fact arguments must be ground constants, not variables or wildcards",
			}
		}
		args[i] = lowerConstTerm(t, syms)
	}
	return &Fact{Pred: id, Args: args, Pos: c.Pos}, nil
}

func lowerRule(c *frontend.Clause, preds *datalog.PredicateTable, syms *datalog.SymbolTable) (*Rule, error) {
	scope := newVarScope()
	head := c.Head
	headID, err := preds.Register(head.Pred, len(head.Args))
	if err != nil {
		return nil, &AnalysisError{Pos: c.Pos, Rule: head.Pred, Message: err.Error()}
	}
	headArgs := make([]Term, len(head.Args))
	for i, t := range head.Args {
		headArgs[i] = lowerTerm(t, scope, syms)
	}
	rule := &Rule{
		Head:     &Literal{Kind: LitAtom, Pred: headID, Args: headArgs},
		HeadName: head.Pred,
		Pos:      c.Pos,
	}
	for _, bl := range c.Body {
		lit, err := lowerBodyLiteral(bl, scope, preds, syms, head.Pred, c.Pos)
		if err != nil {
			return nil, err
		}
		rule.Body = append(rule.Body, lit)
	}
	rule.VarNames = scope.names
	return rule, nil
}

func lowerBodyLiteral(bl *frontend.Literal, scope *varScope, preds *datalog.PredicateTable, syms *datalog.SymbolTable, headName string, pos frontend.Position) (*Literal, error) {
	switch bl.Kind {
	case frontend.LitAtom:
		id, err := preds.Register(bl.Pred, len(bl.Args))
		if err != nil {
			return nil, &AnalysisError{Pos: pos, Rule: headName, Message: err.Error()}
		}
		args := make([]Term, len(bl.Args))
		for i, t := range bl.Args {
			args[i] = lowerTerm(t, scope, syms)
		}
		return &Literal{Kind: LitAtom, Neg: bl.Neg, Pred: id, Args: args}, nil
	case frontend.LitCompare:
		return &Literal{
			Kind:  LitCompare,
			Op:    lowerCompareOp(bl.Op),
			Left:  lowerTerm(bl.Left, scope, syms),
			Right: lowerTerm(bl.Right, scope, syms),
		}, nil
	case frontend.LitBuiltin:
		args := make([]Term, len(bl.BuiltinArg))
		for i, t := range bl.BuiltinArg {
			args[i] = lowerTerm(t, scope, syms)
		}
		return &Literal{Kind: LitBuiltin, Fn: Builtin(bl.Fn), BuiltinArg: args}, nil
	default:
		return nil, &AnalysisError{Pos: pos, Rule: headName, Message: fmt.Sprintf("unknown literal kind %d", bl.Kind)}
	}
}

func lowerCompareOp(op frontend.CompareOp) CompareOp {
	switch op {
	case frontend.OpEq:
		return OpEq
	case frontend.OpNe:
		return OpNe
	case frontend.OpLt:
		return OpLt
	case frontend.OpLe:
		return OpLe
	case frontend.OpGt:
		return OpGt
	case frontend.OpGe:
		return OpGe
	default:
		return OpEq
	}
}

func lowerTerm(t frontend.Term, scope *varScope, syms *datalog.SymbolTable) Term {
	switch t.Kind {
	case frontend.TermVar:
		return Term{Kind: TermVar, Var: scope.slot(t.Name)}
	case frontend.TermWildcard:
		return Term{Kind: TermWildcard}
	default:
		return Term{Kind: TermConst, Const: lowerConstTerm(t, syms)}
	}
}

func lowerConstTerm(t frontend.Term, syms *datalog.SymbolTable) datalog.Value {
	switch t.Kind {
	case frontend.TermInt:
		return datalog.IntVal(t.Int)
	default: // TermSymbol
		return datalog.SymVal(syms.Intern(t.Sym))
	}
}
