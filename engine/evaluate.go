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

package engine

import (
	"context"
	"fmt"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/eval"
)

// Stats summarizes the last Evaluate call (SPEC_FULL.md §3): total facts
// held across every relation (base plus derived), how many of those are
// derived (IDB), the number of strata evaluated, and the total number of
// semi-naive iterations spent across all of them.
type Stats struct {
	Facts      int
	Derived    int
	Iterations int
	Strata     int
}

// Evaluate runs the currently-loaded program to a fixed point, stratum by
// stratum, using semi-naive evaluation (spec.md §4.7). It is safe to call
// repeatedly; each call re-evaluates from the relations' current state,
// so a prior ClearDerivedFacts plus new facts re-derives everything.
func (e *Engine) Evaluate(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	hook := e.onIterEnd
	if hook != nil {
		// The host may call InsertFact from the hook, so the engine lock
		// is released for the duration of the call.
		inner := hook
		hook = func(stratum int) (bool, error) {
			e.mu.Unlock()
			defer e.mu.Lock()
			return inner(stratum)
		}
	}

	ev := eval.New(e.prog, e.preds, e.syms, e.relations, e.providers, eval.Config{
		IterationCap:   e.iterationCap,
		OnIterationEnd: hook,
		Logger:         e.logger,
	})
	result, err := ev.Run(ctx)
	if err != nil {
		return fmt.Errorf("datalog: engine: evaluate: %w", err)
	}
	e.lastStats = e.computeStats(result)
	return nil
}

func (e *Engine) computeStats(result *eval.Result) Stats {
	st := Stats{Strata: len(result.Strata)}
	for _, s := range result.Strata {
		st.Iterations += s.Iterations
	}
	for _, def := range e.preds.All() {
		rows, err := e.allRowsLocked(def.ID)
		if err != nil {
			continue
		}
		st.Facts += len(rows)
		if def.IDB {
			st.Derived += len(rows)
		}
	}
	return st
}

// Stats returns a snapshot of the most recent Evaluate call's outcome.
// Before the first call it reports all-zero.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastStats
}

// RelationView is a read-only snapshot of a predicate's current
// contents, for host inspection after Evaluate (spec.md §4.8
// get_relation_view).
type RelationView struct {
	Pred   datalog.PredicateID
	Name   string
	Arity  int
	Tuples []datalog.Tuple
}

// GetRelationView returns a snapshot of pred's relation, or an error if
// pred is unknown.
func (e *Engine) GetRelationView(pred datalog.PredicateID) (RelationView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def := e.preds.Def(pred)
	if def == nil {
		return RelationView{}, fmt.Errorf("datalog: engine: get_relation_view: unknown predicate %d", pred)
	}
	rows, err := e.allRowsLocked(pred)
	if err != nil {
		return RelationView{}, fmt.Errorf("datalog: engine: get_relation_view: %w", err)
	}
	return RelationView{Pred: pred, Name: def.Name, Arity: def.Arity, Tuples: rows}, nil
}

func (e *Engine) allRowsLocked(pred datalog.PredicateID) ([]datalog.Tuple, error) {
	prov, ok := e.providers[pred]
	if !ok {
		return nil, nil
	}
	return prov.IterAll()
}
