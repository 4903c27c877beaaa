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

	"go.uber.org/zap"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/ir"
	"github.com/dlforge/datalog/provider"
)

// DefaultIterationCap is the safety ceiling on per-stratum iterations
// applied when Config.IterationCap is zero (spec.md §4.7 "Implementations
// should cap iterations at a safety ceiling and fail loudly if
// exceeded.").
const DefaultIterationCap = 1_000_000

// DefaultCheckEveryN is how many inner join steps the evaluator takes
// between cancellation checks when Config.CheckEveryN is zero (spec.md
// §5: "at every N-th inner join step (implementation-defined N ≥
// 1000)").
const DefaultCheckEveryN = 1000

// IterationHook is the host's end-of-iteration callback (spec.md §6.3).
// Returning changed=true forces at least one more iteration even if the
// evaluator observed no internal change. The host may insert facts
// during the call; for explicit-backed predicates of the stratum being
// evaluated those are added to that predicate's delta for the next
// iteration, and inserts into other predicates are read from their base.
type IterationHook func(stratum int) (changed bool, err error)

// Config configures one Evaluator run.
type Config struct {
	IterationCap   int
	CheckEveryN    int
	OnIterationEnd IterationHook
	Logger         *zap.Logger
}

func (c Config) iterationCap() int {
	if c.IterationCap <= 0 {
		return DefaultIterationCap
	}
	return c.IterationCap
}

func (c Config) checkEveryN() int {
	if c.CheckEveryN <= 0 {
		return DefaultCheckEveryN
	}
	return c.CheckEveryN
}

// StratumStats reports how many iterations one stratum took to reach its
// fixed point.
type StratumStats struct {
	Stratum    int
	Iterations int
}

// Result summarizes one Evaluator.Run call.
type Result struct {
	Strata []StratumStats
}

// Evaluator runs the per-stratum semi-naive fixed-point loop (C8) over an
// analyzed ir.Program, using relations and providers supplied by the
// engine facade.
type Evaluator struct {
	prog      *ir.Program
	preds     *datalog.PredicateTable
	syms      *datalog.SymbolTable
	relations map[datalog.PredicateID]*datalog.Relation
	providers map[datalog.PredicateID]provider.Provider
	cfg       Config

	regexes *regexCache

	currentDelta map[datalog.PredicateID][]datalog.Tuple
	baseBaseline map[datalog.PredicateID]int // explicit-only: len(Base) observed at last promote, for absorbing host mid-callback inserts

	joinSteps int
}

// New returns an Evaluator for prog. relations holds every predicate's
// raw C4 buffer set (used directly for explicit-backed predicates'
// next/promote dance); providers holds the Provider each predicate is
// currently backed by (defaulting to an Explicit wrapping the same
// relation — callers should ensure every predicate referenced in prog
// has an entry in both maps).
func New(prog *ir.Program, preds *datalog.PredicateTable, syms *datalog.SymbolTable, relations map[datalog.PredicateID]*datalog.Relation, providers map[datalog.PredicateID]provider.Provider, cfg Config) *Evaluator {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Evaluator{
		prog:         prog,
		preds:        preds,
		syms:         syms,
		relations:    relations,
		providers:    providers,
		cfg:          cfg,
		regexes:      newRegexCache(),
		currentDelta: make(map[datalog.PredicateID][]datalog.Tuple),
		baseBaseline: make(map[datalog.PredicateID]int),
	}
}

// Run executes every stratum in order, returning per-stratum iteration
// counts. Strata that already completed before a failure keep their
// committed output (later strata depend on it); the stratum that fails
// restores every explicit-backed predicate's Base to what it held before
// that stratum started, so a mid-evaluation error never leaves Base
// looking wiped out to the host (spec.md §7 "evaluate is all-or-nothing
// with respect to state").
func (e *Evaluator) Run(ctx context.Context) (*Result, error) {
	result := &Result{}
	for s := 0; s < e.prog.NumStrata; s++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("datalog: eval: cancelled before stratum %d: %w", s, err)
		}
		iterations, err := e.runStratum(ctx, s)
		if iterations > 0 || err != nil {
			result.Strata = append(result.Strata, StratumStats{Stratum: s, Iterations: iterations})
		}
		if err != nil {
			e.cfg.Logger.Warn("stratum failed", zap.Int("stratum", s), zap.Error(err))
			return result, err
		}
		if iterations > 0 {
			e.cfg.Logger.Info("stratum complete", zap.Int("stratum", s), zap.Int("iterations", iterations))
		}
	}
	return result, nil
}

func (e *Evaluator) runStratum(ctx context.Context, s int) (int, error) {
	var idbPreds []datalog.PredicateID
	for _, def := range e.preds.All() {
		if def.IDB && def.Stratum == s {
			idbPreds = append(idbPreds, def.ID)
		}
	}
	var rules []*ir.Rule
	for _, r := range e.prog.Rules {
		if def := e.preds.Def(r.Head.Pred); def != nil && def.Stratum == s {
			rules = append(rules, r)
		}
	}
	if len(idbPreds) == 0 && len(rules) == 0 {
		return 0, nil
	}

	// Snapshot every explicit-backed predicate's Base before bootstrapping,
	// so a failure anywhere in this stratum (cancellation, iteration-cap
	// overrun, a rule-firing error, or a failing host callback) can restore
	// it rather than leave it looking wiped out by PrepareDeltaFromBase.
	snapshots := make(map[datalog.PredicateID]datalog.RelationSnapshot, len(idbPreds))
	for _, pid := range idbPreds {
		if ex, ok := e.explicitOf(pid); ok {
			snapshots[pid] = ex.Relation().Snapshot()
		}
	}
	restore := func() {
		for pid, snap := range snapshots {
			if ex, ok := e.explicitOf(pid); ok {
				ex.Relation().Restore(snap)
			}
		}
	}

	for _, pid := range idbPreds {
		e.bootstrapDelta(pid)
	}

	iterations := 0
	for {
		if err := ctx.Err(); err != nil {
			restore()
			return iterations, fmt.Errorf("datalog: eval: cancelled during stratum %d: %w", s, err)
		}
		iterations++
		if iterations > e.cfg.iterationCap() {
			restore()
			return iterations, fmt.Errorf("datalog: eval: stratum %d exceeded iteration cap %d", s, e.cfg.iterationCap())
		}

		for _, r := range rules {
			if err := e.fireRule(ctx, r, s); err != nil {
				restore()
				return iterations, err
			}
		}

		anyDelta := false
		for _, pid := range idbPreds {
			e.promoteAndDrain(pid)
			if len(e.currentDelta[pid]) > 0 {
				anyDelta = true
			}
		}

		hostChanged := false
		if e.cfg.OnIterationEnd != nil {
			c, err := e.cfg.OnIterationEnd(s)
			if err != nil {
				restore()
				return iterations, fmt.Errorf("datalog: eval: host iteration callback: %w", err)
			}
			hostChanged = c
		}
		for _, pid := range idbPreds {
			if e.absorbHostInserts(pid) {
				anyDelta = true
			}
		}

		if !anyDelta && !hostChanged {
			return iterations, nil
		}
	}
}

// bootstrapDelta seeds pid's initial delta for stratum evaluation: for
// explicit-backed predicates this moves any pre-existing base tuples
// into delta (spec.md §4.3's "prepare_delta_from_base", bootstrapping
// facts inserted before evaluate() so they propagate on iteration 1);
// for custom providers, any pending tuples already queued from pre-load
// time are drained the same way every later iteration drains them.
func (e *Evaluator) bootstrapDelta(pid datalog.PredicateID) {
	if ex, ok := e.explicitOf(pid); ok {
		rel := ex.Relation()
		rel.PrepareDeltaFromBase()
		e.currentDelta[pid] = rel.Delta
		e.baseBaseline[pid] = len(rel.Base)
		return
	}
	e.drainProvider(pid)
}

func (e *Evaluator) promoteAndDrain(pid datalog.PredicateID) {
	if ex, ok := e.explicitOf(pid); ok {
		rel := ex.Relation()
		rel.PromoteNext()
		e.currentDelta[pid] = rel.Delta
		e.baseBaseline[pid] = len(rel.Base)
		return
	}
	e.drainProvider(pid)
}

func (e *Evaluator) drainProvider(pid datalog.PredicateID) {
	prov := e.providers[pid]
	if prov == nil || !prov.HasDelta() {
		e.currentDelta[pid] = nil
		return
	}
	d, err := prov.IterDelta()
	if err != nil {
		e.currentDelta[pid] = nil
		return
	}
	e.currentDelta[pid] = d
	prov.AckDelta()
}

// absorbHostInserts surfaces tuples a host callback inserted directly
// into an explicit-backed predicate's Base buffer mid-iteration (spec.md
// §6.3 "any insert into an in-stratum predicate counts as a change");
// it reports whether any new tuples were found.
func (e *Evaluator) absorbHostInserts(pid datalog.PredicateID) bool {
	ex, ok := e.explicitOf(pid)
	if !ok {
		return false
	}
	rel := ex.Relation()
	baseline := e.baseBaseline[pid]
	if len(rel.Base) <= baseline {
		return false
	}
	extra := append([]datalog.Tuple(nil), rel.Base[baseline:]...)
	e.currentDelta[pid] = append(e.currentDelta[pid], extra...)
	e.baseBaseline[pid] = len(rel.Base)
	return true
}

func (e *Evaluator) explicitOf(pid datalog.PredicateID) (*provider.Explicit, bool) {
	ex, ok := e.providers[pid].(*provider.Explicit)
	return ex, ok
}

// emit materializes a derived head tuple for pid: explicit-backed
// predicates stage it in Next (merged into Base at the next
// promote_next), custom providers are asserted into directly since they
// own their own delta bookkeeping.
func (e *Evaluator) emit(pid datalog.PredicateID, tuple datalog.Tuple) (bool, error) {
	if ex, ok := e.explicitOf(pid); ok {
		return ex.Relation().NextInsertUnique(tuple), nil
	}
	prov := e.providers[pid]
	if prov == nil {
		return false, fmt.Errorf("datalog: eval: no provider registered for predicate %s", e.preds.Name(pid))
	}
	res, err := prov.Add(tuple)
	if err != nil {
		return false, fmt.Errorf("datalog: eval: provider add for %s: %w", e.preds.Name(pid), err)
	}
	return res == provider.Added, nil
}

func (e *Evaluator) contains(pid datalog.PredicateID, tuple datalog.Tuple) (bool, error) {
	prov := e.providers[pid]
	if prov == nil {
		return false, fmt.Errorf("datalog: eval: no provider registered for predicate %s", e.preds.Name(pid))
	}
	ok, err := prov.Contains(tuple)
	if err != nil {
		return false, fmt.Errorf("datalog: eval: provider contains for %s: %w", e.preds.Name(pid), err)
	}
	return ok, nil
}

// allRows returns every currently-visible tuple for pid (its base view).
func (e *Evaluator) allRows(pid datalog.PredicateID) ([]datalog.Tuple, error) {
	if ex, ok := e.explicitOf(pid); ok {
		return ex.Relation().Base, nil
	}
	prov := e.providers[pid]
	if prov == nil {
		return nil, fmt.Errorf("datalog: eval: no provider registered for predicate %s", e.preds.Name(pid))
	}
	rows, err := prov.IterAll()
	if err != nil {
		return nil, fmt.Errorf("datalog: eval: provider iter_all for %s: %w", e.preds.Name(pid), err)
	}
	return rows, nil
}

// lookupIndexed attempts an indexed lookup of pid's base view on
// position pos, reporting used=false when no index/lookup is available
// so the caller falls back to a full scan.
func (e *Evaluator) lookupIndexed(pid datalog.PredicateID, key datalog.Value, pos int) (rows []datalog.Tuple, used bool, err error) {
	if ex, ok := e.explicitOf(pid); ok {
		rel := ex.Relation()
		var idxRows []int
		switch pos {
		case 0:
			idxRows = rel.LookupArg0(key)
		case 1:
			idxRows = rel.LookupArg1(key)
		default:
			return nil, false, nil
		}
		out := make([]datalog.Tuple, len(idxRows))
		for i, r := range idxRows {
			out[i] = rel.Base[r]
		}
		return out, true, nil
	}
	prov := e.providers[pid]
	if prov == nil {
		return nil, false, nil
	}
	rows, err = prov.Lookup(key, pos)
	if err == provider.ErrUnsupported {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, fmt.Errorf("datalog: eval: provider lookup for %s: %w", e.preds.Name(pid), err)
	}
	return rows, true, nil
}
