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

package eval

import (
	"context"
	"fmt"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/ir"
)

// fireRule runs every Δ-rewritten variant of r for stratum s: one variant
// per positive in-stratum body atom, with that atom's occurrence read
// from delta and every other atom read from base (spec.md §4.7's
// semi-naive rewriting). A rule with no in-stratum positive atom (its
// body is fully satisfied by earlier strata) runs as a single
// base-only variant; NextInsertUnique/Provider.Add dedup make the
// repeated no-op evaluation harmless.
func (e *Evaluator) fireRule(ctx context.Context, r *ir.Rule, s int) error {
	var deltaPositions []int
	for i, lit := range r.Body {
		if lit.Kind == ir.LitAtom && !lit.Neg {
			if def := e.preds.Def(lit.Pred); def != nil && def.Stratum == s {
				deltaPositions = append(deltaPositions, i)
			}
		}
	}
	variants := deltaPositions
	if len(variants) == 0 {
		variants = []int{-1}
	}
	for _, dp := range variants {
		if err := e.runVariant(ctx, r, dp); err != nil {
			return err
		}
	}
	return nil
}

// runVariant executes one Δ-rewritten variant of r via a left-deep join:
// deltaPos names the body index that reads from delta (or -1, meaning
// every positive atom reads from base).
func (e *Evaluator) runVariant(ctx context.Context, r *ir.Rule, deltaPos int) error {
	env := make([]datalog.Value, r.NumVars())
	bound := make([]bool, r.NumVars())
	return e.walk(ctx, r, deltaPos, 0, env, bound)
}

func (e *Evaluator) walk(ctx context.Context, r *ir.Rule, deltaPos, i int, env []datalog.Value, bound []bool) error {
	if i == len(r.Body) {
		head := make(datalog.Tuple, len(r.Head.Args))
		for j, t := range r.Head.Args {
			head[j] = resolveTerm(t, env)
		}
		_, err := e.emit(r.Head.Pred, head)
		return err
	}

	lit := r.Body[i]
	switch lit.Kind {
	case ir.LitAtom:
		if lit.Neg {
			holds, err := e.negationHolds(lit, env, bound)
			if err != nil {
				return err
			}
			if holds {
				return nil
			}
			return e.walk(ctx, r, deltaPos, i+1, env, bound)
		}
		rows, err := e.sourceRows(lit.Pred, i == deltaPos, lit.Args, env, bound)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if err := e.checkCancel(ctx); err != nil {
				return err
			}
			touched, ok := tryBind(lit.Args, row, env, bound)
			if ok {
				if err := e.walk(ctx, r, deltaPos, i+1, env, bound); err != nil {
					undoBind(touched, bound)
					return err
				}
			}
			undoBind(touched, bound)
		}
		return nil

	case ir.LitCompare:
		a := resolveTerm(lit.Left, env)
		b := resolveTerm(lit.Right, env)
		if !compareValues(lit.Op, a, b) {
			return nil
		}
		return e.walk(ctx, r, deltaPos, i+1, env, bound)

	case ir.LitBuiltin:
		if len(lit.BuiltinArg) != 2 {
			return fmt.Errorf("datalog: eval: builtin %s expects 2 arguments", lit.Fn)
		}
		a := resolveTerm(lit.BuiltinArg[0], env).Format(e.syms)
		b := resolveTerm(lit.BuiltinArg[1], env).Format(e.syms)
		ok, err := evalBuiltin(lit.Fn, a, b, e.regexes)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return e.walk(ctx, r, deltaPos, i+1, env, bound)

	default:
		return fmt.Errorf("datalog: eval: unknown literal kind %d", lit.Kind)
	}
}

// checkCancel checks ctx for cancellation every CheckEveryN inner join
// steps (spec.md §5), not on every row, to keep the hot loop cheap.
func (e *Evaluator) checkCancel(ctx context.Context) error {
	e.joinSteps++
	if e.joinSteps%e.cfg.checkEveryN() != 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("datalog: eval: cancelled: %w", err)
	}
	return nil
}

// sourceRows returns the rows a positive body atom should join against:
// its predicate's delta when useDelta is set, otherwise its base view,
// preferring an indexed lookup on the first bound argument position.
func (e *Evaluator) sourceRows(pred datalog.PredicateID, useDelta bool, args []ir.Term, env []datalog.Value, bound []bool) ([]datalog.Tuple, error) {
	if useDelta {
		return e.currentDelta[pred], nil
	}
	for pos := 0; pos < len(args) && pos < 2; pos++ {
		key, ok := groundValue(args[pos], env, bound)
		if !ok {
			continue
		}
		rows, used, err := e.lookupIndexed(pred, key, pos)
		if err != nil {
			return nil, err
		}
		if used {
			return rows, nil
		}
	}
	return e.allRows(pred)
}

// negationHolds reports whether lit's (possibly partially wildcarded)
// pattern currently matches some tuple of its predicate's base view. A
// fully ground pattern (no wildcard) uses the provider's Contains fast
// path; a pattern with a wildcard position falls back to a scan, since
// wildcards are "don't care" positions a plain membership test cannot
// express.
func (e *Evaluator) negationHolds(lit *ir.Literal, env []datalog.Value, bound []bool) (bool, error) {
	ground := true
	for _, t := range lit.Args {
		if t.Kind == ir.TermWildcard {
			ground = false
			break
		}
	}
	if ground {
		tuple := make(datalog.Tuple, len(lit.Args))
		for i, t := range lit.Args {
			tuple[i] = resolveTerm(t, env)
		}
		return e.contains(lit.Pred, tuple)
	}
	rows, err := e.allRows(lit.Pred)
	if err != nil {
		return false, err
	}
	for _, row := range rows {
		if matchPattern(row, lit.Args, env) {
			return true, nil
		}
	}
	return false, nil
}

func matchPattern(row datalog.Tuple, args []ir.Term, env []datalog.Value) bool {
	for i, t := range args {
		switch t.Kind {
		case ir.TermWildcard:
			continue
		case ir.TermConst:
			if !row[i].Equal(t.Const) {
				return false
			}
		case ir.TermVar:
			if !row[i].Equal(env[t.Var]) {
				return false
			}
		}
	}
	return true
}

// groundValue resolves t to a Value usable as an index lookup key,
// reporting false for a wildcard or an as-yet-unbound variable.
func groundValue(t ir.Term, env []datalog.Value, bound []bool) (datalog.Value, bool) {
	switch t.Kind {
	case ir.TermConst:
		return t.Const, true
	case ir.TermVar:
		if bound[t.Var] {
			return env[t.Var], true
		}
	}
	return datalog.Value{}, false
}

func resolveTerm(t ir.Term, env []datalog.Value) datalog.Value {
	switch t.Kind {
	case ir.TermConst:
		return t.Const
	case ir.TermVar:
		return env[t.Var]
	default:
		return datalog.Value{}
	}
}

// tryBind matches row against args, binding any not-yet-bound variables
// into env/bound and checking already-bound variables and constants for
// equality. It returns the list of variable slots it newly bound (for
// the caller to undo on backtrack) and whether the match succeeded.
func tryBind(args []ir.Term, row datalog.Tuple, env []datalog.Value, bound []bool) ([]int, bool) {
	var touched []int
	for i, t := range args {
		switch t.Kind {
		case ir.TermWildcard:
			continue
		case ir.TermConst:
			if !row[i].Equal(t.Const) {
				return touched, false
			}
		case ir.TermVar:
			if bound[t.Var] {
				if !env[t.Var].Equal(row[i]) {
					return touched, false
				}
			} else {
				env[t.Var] = row[i]
				bound[t.Var] = true
				touched = append(touched, t.Var)
			}
		}
	}
	return touched, true
}

func undoBind(touched []int, bound []bool) {
	for _, v := range touched {
		bound[v] = false
	}
}
