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

// Package engine implements the C9 facade: lifecycle, predicate
// registration, fact insertion, rule loading, relation views, and the
// host callback contract, wiring C1-C8 into the single entry point a
// host program talks to.
package engine

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/eval"
	"github.com/dlforge/datalog/ir"
	"github.com/dlforge/datalog/provider"
)

// Engine is a single Datalog program instance: one symbol table, one
// predicate table, one relation/provider per predicate, and the
// currently-loaded, analyzed rule program. All public methods are
// non-reentrant (spec.md §5 "single-threaded cooperative"); callers must
// not invoke two Engine methods concurrently on the same Engine.
type Engine struct {
	mu sync.Mutex

	syms  *datalog.SymbolTable
	preds *datalog.PredicateTable
	facts *datalog.FactInternTable

	relations map[datalog.PredicateID]*datalog.Relation
	providers map[datalog.PredicateID]provider.Provider

	prog *ir.Program

	alloc        datalog.Allocator
	logger       *zap.Logger
	iterationCap int
	onIterEnd    eval.IterationHook

	factsInserted bool
	symHostSet    bool
	symIntern     func(s string) datalog.SymbolID
	symLookup     func(id datalog.SymbolID) (string, bool)

	lastStats Stats
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the structured logger used for per-stratum evaluation
// diagnostics. Passing nil (or omitting this option) uses zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithAllocator sets the allocator every relation's tuple buffers route
// their growth through (spec.md §5: "the core must never call system
// allocators directly").
func WithAllocator(a datalog.Allocator) Option {
	return func(e *Engine) { e.alloc = a }
}

// WithIterationCap overrides the per-stratum iteration safety ceiling
// (spec.md §4.7). Zero or negative means eval.DefaultIterationCap.
func WithIterationCap(n int) Option {
	return func(e *Engine) { e.iterationCap = n }
}

// WithExternalCallback registers the host's end-of-iteration hook
// (spec.md §6.3). It may also be set later via RegisterExternalCallback.
func WithExternalCallback(hook eval.IterationHook) Option {
	return func(e *Engine) { e.onIterEnd = hook }
}

// WithSymbolTable hands ownership of symbol interning to the host
// (spec.md §4.8 register_symbol_table / §6.3 intern_symbol/lookup_symbol),
// in place of calling RegisterSymbolTable after construction.
func WithSymbolTable(intern func(s string) datalog.SymbolID, lookup func(id datalog.SymbolID) (string, bool)) Option {
	return func(e *Engine) {
		e.symHostSet = true
		e.symIntern = intern
		e.symLookup = lookup
	}
}

// New returns an empty Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		syms:      datalog.NewSymbolTable(),
		preds:     datalog.NewPredicateTable(),
		facts:     datalog.NewFactInternTable(),
		relations: make(map[datalog.PredicateID]*datalog.Relation),
		providers: make(map[datalog.PredicateID]provider.Provider),
		prog:      &ir.Program{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.alloc == nil {
		e.alloc = datalog.DefaultAllocator{}
	}
	if e.symHostSet {
		e.syms.SetHost(e.symIntern, e.symLookup)
	}
	return e
}

// RegisterExternalCallback sets (or replaces) the host's end-of-iteration
// hook after construction.
func (e *Engine) RegisterExternalCallback(hook eval.IterationHook) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onIterEnd = hook
}

// ensureBacking creates a default Explicit-backed relation for id if one
// does not already exist. Called after every predicate reference (fact
// insertion, declaration, or rule lowering) since predicates are
// registered lazily (spec.md §3 "Lifecycle").
func (e *Engine) ensureBacking(id datalog.PredicateID) {
	if _, ok := e.relations[id]; ok {
		return
	}
	def := e.preds.Def(id)
	rel := datalog.NewRelation(id, def.Arity, e.alloc)
	e.relations[id] = rel
	e.providers[id] = provider.NewExplicit(rel)
}

func (e *Engine) syncBacking() {
	for _, def := range e.preds.All() {
		e.ensureBacking(def.ID)
	}
}
