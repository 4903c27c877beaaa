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
	"github.com/hashicorp/go-multierror"
)

// checkSafety enforces spec.md §4.6: every variable in a rule's head,
// and every variable in a negative literal, comparison, or builtin, must
// also appear in some positive atom of the same rule's body (safety), and
// every head variable must appear in some positive body atom (range
// restriction — a stricter instance of the same check, checked together
// here since both conditions are "bound by a positive atom").
func checkSafety(prog *Program) error {
	var errs *multierror.Error
	for _, r := range prog.Rules {
		bound := boundVars(r)
		for _, v := range r.Head.Args {
			if v.Kind == TermVar && !bound[v.Var] {
				errs = multierror.Append(errs, &AnalysisError{
					Pos: r.Pos, Rule: headName(r),
					Message: "head variable " + r.VarNames[v.Var] + " is not range-restricted (not bound by a positive body atom)",
				})
			}
		}
		for _, lit := range r.Body {
			switch lit.Kind {
			case LitAtom:
				if !lit.Neg {
					continue
				}
				for _, a := range lit.Args {
					if a.Kind == TermVar && !bound[a.Var] {
						errs = multierror.Append(errs, &AnalysisError{
							Pos: r.Pos, Rule: headName(r),
							Message: "variable " + r.VarNames[a.Var] + " in negative literal is not bound by a positive body atom",
						})
					}
				}
			case LitCompare:
				checkGround(lit.Left, r, bound, &errs)
				checkGround(lit.Right, r, bound, &errs)
			case LitBuiltin:
				for _, a := range lit.BuiltinArg {
					checkGround(a, r, bound, &errs)
				}
			}
		}
	}
	if errs != nil {
		return errs.ErrorOrNil()
	}
	return nil
}

func checkGround(t Term, r *Rule, bound []bool, errs **multierror.Error) {
	if t.Kind == TermVar && !bound[t.Var] {
		*errs = multierror.Append(*errs, &AnalysisError{
			Pos: r.Pos, Rule: headName(r),
			Message: "variable " + r.VarNames[t.Var] + " is not bound by a positive body atom",
		})
	}
}

// boundVars returns, for each variable slot, whether it is bound by some
// positive atom anywhere in the rule's body.
func boundVars(r *Rule) []bool {
	bound := make([]bool, len(r.VarNames))
	for _, lit := range r.Body {
		if lit.Kind != LitAtom || lit.Neg {
			continue
		}
		for _, a := range lit.Args {
			if a.Kind == TermVar {
				bound[a.Var] = true
			}
		}
	}
	return bound
}

func headName(r *Rule) string {
	return r.HeadName
}
