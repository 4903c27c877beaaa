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
	"strings"
)

// Print is a total function producing traditional Datalog syntax for prog,
// such that Parse(name, Print(prog)) is semantically identical to prog
// (spec.md §4.4's parse ∘ print ∘ parse = parse requirement). It never
// fails: a Program built directly (not via Parse) is always printable.
func Print(prog *Program) string {
	var sb strings.Builder
	for _, decl := range prog.Preds {
		printPredDecl(&sb, decl)
	}
	if prog.ClearDerived {
		sb.WriteString(".clear_derived().\n")
	}
	for _, c := range prog.Clauses {
		printClause(&sb, c)
	}
	return sb.String()
}

func printPredDecl(sb *strings.Builder, decl *PredDecl) {
	sb.WriteString(".pred ")
	sb.WriteString(decl.Name)
	sb.WriteByte('(')
	for i, arg := range decl.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.Name)
		if arg.Type != "" {
			sb.WriteByte(':')
			sb.WriteString(arg.Type)
		}
	}
	sb.WriteString(").\n")
}

func printClause(sb *strings.Builder, c *Clause) {
	printLiteral(sb, c.Head)
	if len(c.Body) > 0 {
		sb.WriteString(" :- ")
		for i, lit := range c.Body {
			if i > 0 {
				sb.WriteString(", ")
			}
			printLiteral(sb, lit)
		}
	}
	sb.WriteString(".\n")
}

func printLiteral(sb *strings.Builder, lit *Literal) {
	switch lit.Kind {
	case LitAtom:
		if lit.Neg {
			sb.WriteString("not ")
		}
		sb.WriteString(lit.Pred)
		if len(lit.Args) > 0 {
			sb.WriteByte('(')
			for i, t := range lit.Args {
				if i > 0 {
					sb.WriteString(", ")
				}
				printTerm(sb, t)
			}
			sb.WriteByte(')')
		}
	case LitCompare:
		printTerm(sb, lit.Left)
		sb.WriteByte(' ')
		sb.WriteString(lit.Op.String())
		sb.WriteByte(' ')
		printTerm(sb, lit.Right)
	case LitBuiltin:
		sb.WriteString(string(lit.Fn))
		sb.WriteByte('(')
		for i, t := range lit.BuiltinArg {
			if i > 0 {
				sb.WriteString(", ")
			}
			printTerm(sb, t)
		}
		sb.WriteByte(')')
	}
}

func printTerm(sb *strings.Builder, t Term) {
	switch t.Kind {
	case TermVar:
		sb.WriteString(t.Name)
	case TermWildcard:
		sb.WriteByte('_')
	case TermInt:
		sb.WriteString(strconv.FormatInt(t.Int, 10))
	case TermSymbol:
		if isBareIdent(t.Sym) {
			sb.WriteString(t.Sym)
		} else {
			fmt.Fprintf(sb, "%q", t.Sym)
		}
	}
}

// isBareIdent reports whether s can be printed as an unquoted identifier
// constant (lowercase-leading, lexer-safe) rather than a quoted string.
func isBareIdent(s string) bool {
	if s == "" || s == "_" {
		return false
	}
	r := s[0]
	if !((r >= 'a' && r <= 'z') || r == '_') {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_'
		if !ok {
			return false
		}
	}
	if s == "not" {
		return false
	}
	return true
}
