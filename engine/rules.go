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
	"fmt"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/frontend"
	"github.com/dlforge/datalog/ir"
	"github.com/dlforge/datalog/provider"
)

// LoadRulesFromString parses and analyzes src, replacing the engine's
// active rule set on success. Already-inserted base facts are untouched;
// any ground facts named directly in src are inserted additively. On
// error the engine's predicate/symbol tables may have grown (symbols
// and predicates referenced by the bad source are still interned, per
// spec.md §4.8 "leaves engine state unchanged except for symbols already
// interned"), but the active rule set and all relations are unchanged.
func (e *Engine) LoadRulesFromString(src string) error {
	fprog, err := frontend.Parse("engine", src)
	if err != nil {
		return fmt.Errorf("datalog: engine: load_rules_from_string: %w", err)
	}
	return e.loadProgram(fprog)
}

// LoadRulesFromAST analyzes an already-parsed frontend.Program (e.g. one
// produced by Deserialize from a compiled .dlc payload), with the same
// replace-rules/preserve-facts semantics as LoadRulesFromString.
func (e *Engine) LoadRulesFromAST(ast *frontend.Program) error {
	return e.loadProgram(ast)
}

func (e *Engine) loadProgram(fprog *frontend.Program) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	lowered, err := ir.Lower(fprog, e.preds, e.syms)
	if err != nil {
		return fmt.Errorf("datalog: engine: load rules: %w", err)
	}
	e.syncBacking()
	for _, f := range lowered.Facts {
		if _, err := e.providers[f.Pred].Add(datalog.Tuple(f.Args)); err != nil {
			return fmt.Errorf("datalog: engine: load rules: inserting fact for %s: %w", e.preds.Name(f.Pred), err)
		}
		e.facts.Intern(f.Pred, datalog.Tuple(f.Args))
		e.factsInserted = true
	}
	e.prog = lowered
	if lowered.ClearDerived {
		return e.clearDerivedFactsLocked()
	}
	return nil
}

// egraphSharer is implemented by provider kinds backed by a shared
// EgraphContext (provider.EnodeProvider, provider.TermEq), letting
// ClearDerivedFacts coordinate a single reset round across every
// provider sharing one context.
type egraphSharer interface {
	Context() *provider.EgraphContext
}

// ClearDerivedFacts empties every IDB-marked predicate's relation,
// leaving EDB facts untouched (spec.md §3/§4.8). Providers sharing an
// EgraphContext are reset exactly once per call even though several
// predicates reference the same context.
func (e *Engine) ClearDerivedFacts() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clearDerivedFactsLocked()
}

func (e *Engine) clearDerivedFactsLocked() error {
	seen := make(map[*provider.EgraphContext]bool)
	for _, def := range e.preds.All() {
		if !def.IDB {
			continue
		}
		if sharer, ok := e.providers[def.ID].(egraphSharer); ok {
			ctx := sharer.Context()
			if !seen[ctx] {
				ctx.BeginResetRound()
				seen[ctx] = true
			}
		}
	}
	for _, def := range e.preds.All() {
		if !def.IDB {
			continue
		}
		if err := e.providers[def.ID].Reset(); err != nil {
			return fmt.Errorf("datalog: engine: clear_derived_facts: predicate %s: %w", def.Name, err)
		}
	}
	return nil
}
