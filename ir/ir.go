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

// Package ir lowers a parsed frontend.Program into predicate-resolved,
// analyzed IR (spec.md §4.6): safety and range-restriction checking,
// predicate dependency graph construction, strongly-connected-component
// stratification, and rejection of unstratifiable negation.
package ir

import (
	"fmt"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/frontend"
)

// TermKind classifies one argument of an IR literal.
type TermKind int

const (
	TermVar TermKind = iota
	TermConst
	TermWildcard
)

// Term is a lowered argument: a variable (by slot index within the owning
// rule), a ground constant Value, or a wildcard (never binds, never
// checked for safety).
type Term struct {
	Kind  TermKind
	Var   int // index into the owning Rule's variable name table, for TermVar
	Const datalog.Value
}

// CompareOp mirrors frontend.CompareOp, kept distinct so ir has no
// frontend-syntax dependency beyond the lowering pass itself.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

// Builtin mirrors frontend.Builtin.
type Builtin string

const (
	BuiltinMatch      Builtin = "match"
	BuiltinStartsWith Builtin = "starts_with"
	BuiltinEndsWith   Builtin = "ends_with"
	BuiltinContains   Builtin = "contains"
)

// LiteralKind classifies one body literal.
type LiteralKind int

const (
	LitAtom LiteralKind = iota
	LitCompare
	LitBuiltin
)

// Literal is one lowered body (or head) literal.
type Literal struct {
	Kind LiteralKind

	// LitAtom
	Neg  bool
	Pred datalog.PredicateID
	Args []Term

	// LitCompare
	Op          CompareOp
	Left, Right Term

	// LitBuiltin
	Fn         Builtin
	BuiltinArg []Term
}

// Rule is a lowered, predicate-resolved clause. Variables are named for
// diagnostics but referenced by dense index (VarNames) everywhere else.
type Rule struct {
	Head     *Literal
	Body     []*Literal
	VarNames []string // slot index -> source variable name
	HeadName string   // printable head predicate name, for diagnostics
	Pos      frontend.Position
}

// NumVars reports how many distinct variable slots this rule uses.
func (r *Rule) NumVars() int { return len(r.VarNames) }

// Program is the fully lowered, analyzed form of a frontend.Program: every
// predicate reference resolved to a stable PredicateID, every rule
// safety- and range-restriction-checked, and every predicate assigned a
// stratum.
type Program struct {
	Preds        *datalog.PredicateTable
	Rules        []*Rule
	Facts        []*Fact
	ClearDerived bool
	NumStrata    int
}

// Fact is a lowered ground fact (a Clause with an empty Body).
type Fact struct {
	Pred datalog.PredicateID
	Args []datalog.Value
	Pos  frontend.Position
}

// AnalysisError reports a single semantic or analysis failure, with the
// offending rule's source position, per spec.md §7.
type AnalysisError struct {
	Pos     frontend.Position
	Rule    string // printable head predicate name, for context
	Message string
}

func (e *AnalysisError) Error() string {
	if e.Rule != "" {
		return fmt.Sprintf("%s: rule %s: %s", e.Pos, e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Pos, e.Message)
}
