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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/provider"
)

func names(t *testing.T, e *Engine, v RelationView) [][]string {
	t.Helper()
	out := make([][]string, len(v.Tuples))
	for i, row := range v.Tuples {
		cols := make([]string, len(row))
		for j, val := range row {
			cols[j] = val.Format(e.syms)
		}
		out[i] = cols
	}
	return out
}

// S1: transitive closure over a small edge graph.
func TestEngineTransitiveClosure(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred edge(a:sym, b:sym).
.pred tc(a:sym, b:sym).

edge(a, b).
edge(b, c).
edge(c, d).

tc(X, Y) :- edge(X, Y).
tc(X, Z) :- edge(X, Y), tc(Y, Z).
`))
	require.NoError(t, e.Evaluate(context.Background()))

	tcID, ok := e.GetPredicateID("tc")
	require.True(t, ok)
	view, err := e.GetRelationView(tcID)
	require.NoError(t, err)
	require.Len(t, view.Tuples, 6) // ab ac ad bc bd cd

	stats := e.Stats()
	require.Equal(t, 3, stats.Facts-stats.Derived) // 3 edge facts
	require.Greater(t, stats.Iterations, 0)
}

// S2: stratified negation — a predicate computed in a later stratum from
// the complement of an earlier one.
func TestEngineStratifiedNegation(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred item(a:sym).
.pred excluded(a:sym).
.pred kept(a:sym).

item(x).
item(y).
item(z).
excluded(y).

kept(X) :- item(X), not excluded(X).
`))
	require.NoError(t, e.Evaluate(context.Background()))

	keptID, ok := e.GetPredicateID("kept")
	require.True(t, ok)
	view, err := e.GetRelationView(keptID)
	require.NoError(t, err)

	got := names(t, e, view)
	require.ElementsMatch(t, [][]string{{"x"}, {"z"}}, got)
}

// S3: swapping in a custom Eqrel provider for a predicate makes the
// evaluator read through IterAll instead of the default Explicit buffer.
func TestEngineEqrelProviderViaSetRelationProvider(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred sameas(a:sym, b:sym).
.pred linked(a:sym, b:sym).

linked(X, Y) :- sameas(X, Y).
`))

	eq := provider.NewEqrel()
	require.NoError(t, e.SetRelationProvider("sameas", eq))

	a := e.syms.Intern("a")
	b := e.syms.Intern("b")
	c := e.syms.Intern("c")
	_, err := eq.Add(datalog.Tuple{datalog.SymVal(a), datalog.SymVal(b)})
	require.NoError(t, err)
	_, err = eq.Add(datalog.Tuple{datalog.SymVal(b), datalog.SymVal(c)})
	require.NoError(t, err)

	require.NoError(t, e.Evaluate(context.Background()))

	linkedID, ok := e.GetPredicateID("linked")
	require.True(t, ok)
	view, err := e.GetRelationView(linkedID)
	require.NoError(t, err)

	found := false
	for _, row := range view.Tuples {
		if row[0].Equal(datalog.SymVal(a)) && row[1].Equal(datalog.SymVal(c)) {
			found = true
		}
	}
	require.True(t, found, "expected (a,c) to be linked via the shared equivalence class")
}

// S6: the host's end-of-iteration callback can insert facts that force
// additional semi-naive rounds.
func TestEngineHostCallbackForcesExtraRounds(t *testing.T) {
	var edgeID datalog.PredicateID
	calls := 0

	e := New()
	e.RegisterExternalCallback(func(stratum int) (bool, error) {
		calls++
		if calls == 1 {
			a := e.syms.Intern("c")
			b := e.syms.Intern("d")
			if _, err := e.InsertFact(edgeID, []datalog.Value{datalog.SymVal(a), datalog.SymVal(b)}); err != nil {
				return false, err
			}
			return true, nil
		}
		return false, nil
	})

	require.NoError(t, e.LoadRulesFromString(`
.pred edge(a:sym, b:sym).
.pred tc(a:sym, b:sym).

edge(a, b).
edge(b, c).

tc(X, Y) :- edge(X, Y).
tc(X, Z) :- edge(X, Y), tc(Y, Z).
`))
	var ok bool
	edgeID, ok = e.GetPredicateID("edge")
	require.True(t, ok)

	require.NoError(t, e.Evaluate(context.Background()))
	require.GreaterOrEqual(t, calls, 1)

	tcID, _ := e.GetPredicateID("tc")
	view, err := e.GetRelationView(tcID)
	require.NoError(t, err)

	found := false
	for _, row := range view.Tuples {
		if row[0].Equal(datalog.SymVal(e.syms.Intern("a"))) && row[1].Equal(datalog.SymVal(e.syms.Intern("d"))) {
			found = true
		}
	}
	require.True(t, found, "expected the host-injected edge(c,d) to extend tc to (a,d)")
}

func TestEngineRegisterPredicateIdempotentAndArityMismatch(t *testing.T) {
	e := New()
	id1, err := e.RegisterPredicate("p", 2, []ArgType{ArgTypeSymbol, ArgTypeSymbol})
	require.NoError(t, err)

	id2, err := e.RegisterPredicate("p", 2, []ArgType{ArgTypeSymbol, ArgTypeSymbol})
	require.NoError(t, err)
	require.Equal(t, id1, id2)

	_, err = e.RegisterPredicate("p", 3, nil)
	require.Error(t, err)
}

func TestEngineInsertFactValidatesArity(t *testing.T) {
	e := New()
	id, err := e.RegisterPredicate("p", 2, nil)
	require.NoError(t, err)

	sym := datalog.SymVal(e.syms.Intern("x"))
	_, err = e.InsertFact(id, []datalog.Value{sym})
	require.Error(t, err)

	_, err = e.InsertFact(id, []datalog.Value{sym, sym})
	require.NoError(t, err)

	_, err = e.InsertFact(datalog.InvalidPredicate, []datalog.Value{sym, sym})
	require.Error(t, err)
}

func TestEngineClearDerivedFactsPreservesBaseFacts(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred edge(a:sym, b:sym).
.pred tc(a:sym, b:sym).

edge(a, b).
edge(b, c).

tc(X, Y) :- edge(X, Y).
tc(X, Z) :- edge(X, Y), tc(Y, Z).
`))
	require.NoError(t, e.Evaluate(context.Background()))

	tcID, _ := e.GetPredicateID("tc")
	view, err := e.GetRelationView(tcID)
	require.NoError(t, err)
	require.NotEmpty(t, view.Tuples)

	require.NoError(t, e.ClearDerivedFacts())

	view, err = e.GetRelationView(tcID)
	require.NoError(t, err)
	require.Empty(t, view.Tuples, "clear_derived_facts must empty IDB relations")

	edgeID, _ := e.GetPredicateID("edge")
	edgeView, err := e.GetRelationView(edgeID)
	require.NoError(t, err)
	require.Len(t, edgeView.Tuples, 2, "clear_derived_facts must not touch EDB relations")
}

func TestEngineLoadRulesFromStringPreservesFactsAcrossReload(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred item(a:sym).
item(x).
item(y).
`))
	itemID, ok := e.GetPredicateID("item")
	require.True(t, ok)
	view, err := e.GetRelationView(itemID)
	require.NoError(t, err)
	require.Len(t, view.Tuples, 2)

	require.NoError(t, e.LoadRulesFromString(`
.pred item(a:sym).
.pred tagged(a:sym).
tagged(X) :- item(X).
`))
	view, err = e.GetRelationView(itemID)
	require.NoError(t, err)
	require.Len(t, view.Tuples, 2, "reloading rules must not drop previously inserted facts")

	require.NoError(t, e.Evaluate(context.Background()))
	taggedID, ok := e.GetPredicateID("tagged")
	require.True(t, ok)
	view, err = e.GetRelationView(taggedID)
	require.NoError(t, err)
	require.Len(t, view.Tuples, 2)
}

func TestEngineIterationCapFailsLoudly(t *testing.T) {
	e := New(WithIterationCap(1))
	require.NoError(t, e.LoadRulesFromString(`
.pred edge(a:sym, b:sym).
.pred tc(a:sym, b:sym).

edge(a, b).
edge(b, c).
edge(c, d).

tc(X, Y) :- edge(X, Y).
tc(X, Z) :- edge(X, Y), tc(Y, Z).
`))
	err := e.Evaluate(context.Background())
	require.Error(t, err)

	edgeID, _ := e.GetPredicateID("edge")
	edgeView, err := e.GetRelationView(edgeID)
	require.NoError(t, err)
	require.Len(t, edgeView.Tuples, 3, "a failed evaluate must leave base facts untouched")

	tcID, _ := e.GetPredicateID("tc")
	tcView, err := e.GetRelationView(tcID)
	require.NoError(t, err)
	require.Empty(t, tcView.Tuples, "tc never committed anything before the failure, so it must stay empty, not just non-nil")
}

// A failed Evaluate must not wipe out derived facts a prior, successful
// Evaluate already committed: bootstrapDelta moves a predicate's Base
// into Delta before the stratum's iteration loop even starts, so a
// failure partway through (here, a host callback erroring out) must
// restore Base rather than leave it looking cleared.
func TestEngineFailedEvaluateLeavesPreviouslyDerivedFactsInPlace(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred edge(a:sym, b:sym).
.pred tc(a:sym, b:sym).

edge(a, b).
edge(b, c).

tc(X, Y) :- edge(X, Y).
tc(X, Z) :- edge(X, Y), tc(Y, Z).
`))
	require.NoError(t, e.Evaluate(context.Background()))

	tcID, _ := e.GetPredicateID("tc")
	before, err := e.GetRelationView(tcID)
	require.NoError(t, err)
	require.NotEmpty(t, before.Tuples)

	e.RegisterExternalCallback(func(stratum int) (bool, error) {
		return false, fmt.Errorf("simulated host failure")
	})
	require.Error(t, e.Evaluate(context.Background()))

	after, err := e.GetRelationView(tcID)
	require.NoError(t, err)
	require.ElementsMatch(t, before.Tuples, after.Tuples,
		"a failed evaluate must leave previously-committed derived facts in place")
}

func TestEngineRegisterExternalFactSource(t *testing.T) {
	e := New()
	require.NoError(t, e.LoadRulesFromString(`
.pred host(a:sym).
.pred seen(a:sym).
seen(X) :- host(X).
`))

	x := datalog.SymVal(e.syms.Intern("x"))
	err := e.RegisterExternalFactSource("host", 1, provider.ExternalCallbacks{
		IterAll: func() ([]datalog.Tuple, error) {
			return []datalog.Tuple{{x}}, nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, e.Evaluate(context.Background()))
	seenID, _ := e.GetPredicateID("seen")
	view, err := e.GetRelationView(seenID)
	require.NoError(t, err)
	require.Len(t, view.Tuples, 1)
	require.True(t, view.Tuples[0][0].Equal(x))
}

// A host that wants to own symbol interning registers its own
// intern/lookup pair before inserting any facts (spec.md §4.8
// register_symbol_table, §6.3 intern_symbol/lookup_symbol); every
// subsequent Intern on the engine's symbol table routes through it.
func TestEngineRegisterSymbolTableDelegatesToHost(t *testing.T) {
	e := New()

	hostPool := map[string]datalog.SymbolID{"x": 100, "y": 101}
	hostNames := map[datalog.SymbolID]string{100: "x", 101: "y"}

	require.NoError(t, e.RegisterSymbolTable(
		func(s string) datalog.SymbolID {
			if id, ok := hostPool[s]; ok {
				return id
			}
			return datalog.InvalidSymbol
		},
		func(id datalog.SymbolID) (string, bool) {
			s, ok := hostNames[id]
			return s, ok
		},
	))

	id := e.syms.Intern("x")
	require.Equal(t, datalog.SymbolID(100), id)
	name, ok := e.syms.Lookup(id)
	require.True(t, ok)
	require.Equal(t, "x", name)
}

func TestEngineRegisterSymbolTableFailsAfterFactInsertion(t *testing.T) {
	e := New()
	id, err := e.RegisterPredicate("p", 1, nil)
	require.NoError(t, err)
	_, err = e.InsertFact(id, []datalog.Value{datalog.SymVal(e.syms.Intern("x"))})
	require.NoError(t, err)

	err = e.RegisterSymbolTable(
		func(s string) datalog.SymbolID { return datalog.InvalidSymbol },
		func(id datalog.SymbolID) (string, bool) { return "", false },
	)
	require.Error(t, err, "register_symbol_table must be rejected once a fact has been inserted")
}
