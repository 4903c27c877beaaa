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
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/dlforge/datalog"
)

// depEdge is one head -> body-predicate dependency, tagged with whether
// the body reference is negated.
type depEdge struct {
	to  datalog.PredicateID
	neg bool
}

// assignStrata builds the predicate dependency graph (nodes = predicates
// referenced anywhere in prog, edges = head -> body-predicate per rule),
// computes its strongly-connected components with Tarjan's algorithm,
// assigns each predicate a stratum equal to its component's position in
// the condensation's topological order, and rejects any rule whose
// negative body atom reaches into its own SCC ("unstratifiable", per
// spec.md §4.6). It returns the number of distinct strata.
func assignStrata(prog *Program, preds *datalog.PredicateTable) (int, error) {
	g := buildDependencyGraph(prog, preds)
	comps := tarjanSCC(g)

	compOf := make(map[datalog.PredicateID]int, len(g.nodes))
	for ci, comp := range comps {
		for _, n := range comp {
			compOf[n] = ci
		}
	}

	var errs *multierror.Error
	for _, r := range prog.Rules {
		headComp := compOf[r.Head.Pred]
		for _, lit := range r.Body {
			if lit.Kind != LitAtom || !lit.Neg {
				continue
			}
			if compOf[lit.Pred] == headComp {
				errs = multierror.Append(errs, &AnalysisError{
					Pos: r.Pos, Rule: r.HeadName,
					Message: "unstratifiable: negation on " + preds.Name(lit.Pred) + " which is mutually recursive with the rule's head",
				})
			}
		}
	}
	if errs != nil {
		return 0, errs.ErrorOrNil()
	}

	// Condensation order: comps is already produced in reverse
	// topological order by tarjanSCC (components finish in an order
	// where a component's dependencies finish before it does, i.e.
	// the classic Tarjan post-order). Assign strata by that order
	// directly so a predicate's stratum is always >= every predicate
	// it (positively or negatively) depends on.
	stratumOf := make([]int, len(comps))
	for i := range comps {
		stratumOf[i] = i
	}
	for pid, ci := range compOf {
		if def := preds.Def(pid); def != nil {
			def.Stratum = stratumOf[ci]
		}
	}
	return len(comps), nil
}

// dependencyGraph is an adjacency list over every predicate referenced by
// the program (declared, fact-only, or rule-head/body).
type dependencyGraph struct {
	nodes []datalog.PredicateID
	edges map[datalog.PredicateID][]depEdge
}

func buildDependencyGraph(prog *Program, preds *datalog.PredicateTable) *dependencyGraph {
	g := &dependencyGraph{edges: make(map[datalog.PredicateID][]depEdge)}
	seen := make(map[datalog.PredicateID]bool)
	addNode := func(id datalog.PredicateID) {
		if !seen[id] {
			seen[id] = true
			g.nodes = append(g.nodes, id)
		}
	}
	for _, def := range preds.All() {
		addNode(def.ID)
	}
	for _, r := range prog.Rules {
		addNode(r.Head.Pred)
		for _, lit := range r.Body {
			if lit.Kind != LitAtom {
				continue
			}
			addNode(lit.Pred)
			g.edges[r.Head.Pred] = append(g.edges[r.Head.Pred], depEdge{to: lit.Pred, neg: lit.Neg})
		}
	}
	// Sort nodes and edges for determinism: SCC discovery order must not
	// depend on map iteration order, per spec.md §4.7's reproducibility
	// requirement.
	sort.Slice(g.nodes, func(i, j int) bool { return g.nodes[i] < g.nodes[j] })
	for id := range g.edges {
		es := g.edges[id]
		sort.Slice(es, func(i, j int) bool { return es[i].to < es[j].to })
	}
	return g
}

// tarjanSCC computes strongly-connected components of g, returning them
// in an order where every component's outgoing dependencies appear
// earlier in the result (a topological order of the condensation with
// dependencies first, so their stratum indices come out ascending).
func tarjanSCC(g *dependencyGraph) [][]datalog.PredicateID {
	index := 0
	indexOf := make(map[datalog.PredicateID]int)
	lowlink := make(map[datalog.PredicateID]int)
	onStack := make(map[datalog.PredicateID]bool)
	var stack []datalog.PredicateID
	var order [][]datalog.PredicateID

	var strongconnect func(v datalog.PredicateID)
	strongconnect = func(v datalog.PredicateID) {
		indexOf[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range g.edges[v] {
			w := e.to
			if _, ok := indexOf[w]; !ok {
				strongconnect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indexOf[w] < lowlink[v] {
					lowlink[v] = indexOf[w]
				}
			}
		}

		if lowlink[v] == indexOf[v] {
			var comp []datalog.PredicateID
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Slice(comp, func(i, j int) bool { return comp[i] < comp[j] })
			order = append(order, comp)
		}
	}

	for _, v := range g.nodes {
		if _, ok := indexOf[v]; !ok {
			strongconnect(v)
		}
	}

	// Tarjan's algorithm naturally emits components in reverse
	// topological order (a component is finished, and appended, only
	// after every component it depends on has already finished): that
	// is precisely "dependencies first", which is the order this
	// function promises.
	return order
}
