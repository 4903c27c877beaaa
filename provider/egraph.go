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

package provider

import (
	"fmt"
	"sort"

	"github.com/dlforge/datalog"
)

// Opcode names an e-node's function symbol. Standard opcodes are
// reserved by spec.md §4.5; user-defined opcodes must start at
// UserOpcodeBase or above.
type Opcode int32

const (
	OpADD Opcode = iota
	OpSUB
	OpMUL
	OpDIV
	OpNEG
	OpAPP
	OpIF
	OpCONS
	OpTUPLE
)

// UserOpcodeBase is the first opcode value available to hosts defining
// their own function symbols.
const UserOpcodeBase Opcode = 1000

type eclassID int32

// nodeKey is a hash-consing key: an opcode applied to canonical child
// e-class IDs.
type nodeKey struct {
	op    Opcode
	arity int
	kids  [3]eclassID
}

// EgraphContext is the shared congruence-closure state backing every
// term_eq/enodeN provider over one engine: a union-find over e-classes
// plus a hash-consed table of e-nodes (spec.md §4.5 "E-graph (congruence
// closure)"). Multiple providers (one per opcode/arity, plus one
// term_eq) may share a single context so that asserting `f(a)=x` and
// separately `a=b` lets the context derive `f(b)=x` via congruence.
type EgraphContext struct {
	uf         unionFind
	valueClass map[datalog.Value]eclassID
	classValue map[eclassID][]datalog.Value
	hashcons   map[nodeKey]eclassID
	nextClass  int32

	resetPending bool
}

// NewEgraphContext returns an empty, shared e-graph context.
func NewEgraphContext() *EgraphContext {
	return &EgraphContext{
		valueClass: make(map[datalog.Value]eclassID),
		classValue: make(map[eclassID][]datalog.Value),
		hashcons:   make(map[nodeKey]eclassID),
	}
}

// BeginResetRound marks the context for a one-time reset: the next call
// to any sharing provider's Reset() actually clears the context; later
// calls within the same round are no-ops. The engine calls this once per
// clear_derived_facts invocation before resetting each provider that
// shares this context (SPEC_FULL.md's "resets exactly once" decision).
func (ctx *EgraphContext) BeginResetRound() {
	ctx.resetPending = true
}

func (ctx *EgraphContext) resetIfPending() {
	if !ctx.resetPending {
		return
	}
	ctx.resetPending = false
	ctx.uf = unionFind{}
	ctx.valueClass = make(map[datalog.Value]eclassID)
	ctx.classValue = make(map[eclassID][]datalog.Value)
	ctx.hashcons = make(map[nodeKey]eclassID)
	ctx.nextClass = 0
}

// classOf returns v's e-class, creating a new singleton class on first
// reference.
func (ctx *EgraphContext) classOf(v datalog.Value) eclassID {
	if c, ok := ctx.valueClass[v]; ok {
		return c
	}
	c := eclassID(ctx.nextClass)
	ctx.nextClass++
	ctx.uf.ensure(int32(c))
	ctx.valueClass[v] = c
	ctx.classValue[c] = append(ctx.classValue[c], v)
	return c
}

func (ctx *EgraphContext) find(c eclassID) eclassID {
	return eclassID(ctx.uf.find(int32(c)))
}

// union merges a and b's classes and restores congruence by repeatedly
// canonicalizing the hash-cons table until no more merges are triggered.
// This is a simplified (whole-table) repair rather than the
// parent-list-triggered incremental algorithm a production e-graph would
// use, traded for clarity; it is still correct; see spec.md §4.5's
// congruence invariant.
func (ctx *EgraphContext) union(a, b eclassID) bool {
	if !ctx.uf.union(int32(a), int32(b)) {
		return false
	}
	ctx.repair()
	return true
}

func (ctx *EgraphContext) canon(k nodeKey) nodeKey {
	ck := k
	for i := 0; i < k.arity; i++ {
		ck.kids[i] = ctx.find(k.kids[i])
	}
	return ck
}

func (ctx *EgraphContext) repair() {
	for {
		changed := false
		next := make(map[nodeKey]eclassID, len(ctx.hashcons))
		for k, cls := range ctx.hashcons {
			ck := ctx.canon(k)
			rcls := ctx.find(cls)
			if existing, ok := next[ck]; ok {
				if existing != rcls {
					ctx.uf.union(int32(existing), int32(rcls))
					changed = true
				}
			} else {
				next[ck] = rcls
			}
		}
		ctx.hashcons = next
		if !changed {
			return
		}
	}
}

// representative returns the smallest known Value (by Kind then payload)
// in cls's class, for deterministic enumeration.
func (ctx *EgraphContext) representative(cls eclassID) (datalog.Value, bool) {
	root := ctx.find(cls)
	var best datalog.Value
	found := false
	for c, vals := range ctx.classValue {
		if ctx.find(c) != root {
			continue
		}
		for _, v := range vals {
			if !found || valueLess(v, best) {
				best = v
				found = true
			}
		}
	}
	return best, found
}

func valueLess(a, b datalog.Value) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	switch a.Kind {
	case datalog.KindSymbol:
		return a.Sym < b.Sym
	case datalog.KindInt:
		return a.Int < b.Int
	case datalog.KindRange:
		return a.Rng < b.Rng
	default:
		return a.Fact < b.Fact
	}
}

// applyOp asserts that applying op to args yields result, unifying
// result's class with any previously hash-consed application of op to an
// equivalent argument list. It reports Added if this changed the
// context's state (a new e-node or a new congruence merge), NoChange if
// the fact was already implied.
func (ctx *EgraphContext) applyOp(op Opcode, args []datalog.Value, result datalog.Value) (AddResult, error) {
	if len(args) == 0 || len(args) > 3 {
		return NoChange, fmt.Errorf("provider: egraph arity must be 1-3, got %d", len(args))
	}
	var kids [3]eclassID
	for i, a := range args {
		kids[i] = ctx.find(ctx.classOf(a))
	}
	key := nodeKey{op: op, arity: len(args), kids: kids}
	resultClass := ctx.classOf(result)
	if existing, ok := ctx.hashcons[key]; ok {
		if ctx.find(existing) == ctx.find(resultClass) {
			return NoChange, nil
		}
		ctx.union(existing, resultClass)
		return Added, nil
	}
	ctx.hashcons[key] = ctx.find(resultClass)
	return Added, nil
}

// containsOp reports whether op(args...) = result is already implied,
// without asserting anything new.
func (ctx *EgraphContext) containsOp(op Opcode, args []datalog.Value, result datalog.Value) bool {
	var kids [3]eclassID
	for i, a := range args {
		c, ok := ctx.valueClass[a]
		if !ok {
			return false
		}
		kids[i] = ctx.find(c)
	}
	rc, ok := ctx.valueClass[result]
	if !ok {
		return false
	}
	key := nodeKey{op: op, arity: len(args), kids: kids}
	existing, ok := ctx.hashcons[key]
	if !ok {
		return false
	}
	return ctx.find(existing) == ctx.find(rc)
}

// EnodeProvider backs a predicate representing function application of a
// fixed opcode and arity, e.g. `add(X, Y, Z)` backed by OpADD/arity 2: a
// relation whose last column is the application's result class and whose
// other columns are the arguments (spec.md §4.5 "enode{1,2,3}").
type EnodeProvider struct {
	ctx   *EgraphContext
	op    Opcode
	arity int // argument count, excluding the trailing result column

	pending []datalog.Tuple
}

// NewEnodeProvider returns a provider for applications of op with the
// given argument arity (1, 2, or 3), sharing ctx with any other provider
// over the same e-graph.
func NewEnodeProvider(ctx *EgraphContext, op Opcode, arity int) (*EnodeProvider, error) {
	if arity < 1 || arity > 3 {
		return nil, fmt.Errorf("provider: enode arity must be 1-3, got %d", arity)
	}
	return &EnodeProvider{ctx: ctx, op: op, arity: arity}, nil
}

func (p *EnodeProvider) checkArity(tuple datalog.Tuple) error {
	if len(tuple) != p.arity+1 {
		return fmt.Errorf("provider: enode tuple must have arity %d (args+result), got %d", p.arity+1, len(tuple))
	}
	return nil
}

func (p *EnodeProvider) Add(tuple datalog.Tuple) (AddResult, error) {
	if err := p.checkArity(tuple); err != nil {
		return NoChange, err
	}
	res, err := p.ctx.applyOp(p.op, tuple[:p.arity], tuple[p.arity])
	if err != nil {
		return NoChange, err
	}
	if res == Added {
		p.pending = append(p.pending, append(datalog.Tuple(nil), tuple...))
	}
	return res, nil
}

func (p *EnodeProvider) Contains(tuple datalog.Tuple) (bool, error) {
	if err := p.checkArity(tuple); err != nil {
		return false, err
	}
	return p.ctx.containsOp(p.op, tuple[:p.arity], tuple[p.arity]), nil
}

func (p *EnodeProvider) Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error) {
	return nil, ErrUnsupported
}

func (p *EnodeProvider) IterAll() ([]datalog.Tuple, error) {
	var out []datalog.Tuple
	for k, cls := range p.ctx.hashcons {
		if k.op != p.op || k.arity != p.arity {
			continue
		}
		t := make(datalog.Tuple, p.arity+1)
		ok := true
		for i := 0; i < p.arity; i++ {
			v, found := p.ctx.representative(k.kids[i])
			if !found {
				ok = false
				break
			}
			t[i] = v
		}
		if !ok {
			continue
		}
		v, found := p.ctx.representative(cls)
		if !found {
			continue
		}
		t[p.arity] = v
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return tupleLess(out[i], out[j]) })
	return out, nil
}

func tupleLess(a, b datalog.Tuple) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return valueLess(a[i], b[i])
		}
	}
	return len(a) < len(b)
}

func (p *EnodeProvider) HasDelta() bool { return len(p.pending) > 0 }

func (p *EnodeProvider) IterDelta() ([]datalog.Tuple, error) {
	out := make([]datalog.Tuple, len(p.pending))
	copy(out, p.pending)
	return out, nil
}

func (p *EnodeProvider) AckDelta() { p.pending = nil }

func (p *EnodeProvider) Reset() error {
	p.ctx.resetIfPending()
	p.pending = nil
	return nil
}

func (p *EnodeProvider) Destroy() {}

// Context returns the shared e-graph context this provider reads and
// writes, so callers coordinating a reset across many sharing providers
// (engine.ClearDerivedFacts) can call BeginResetRound on it exactly
// once.
func (p *EnodeProvider) Context() *EgraphContext { return p.ctx }

// TermEq is the binary term-equivalence provider kind sharing an
// EgraphContext: `term_eq(a, b)` asserts a and b's e-classes are equal,
// triggering congruence closure over any e-nodes that reference them
// (spec.md §4.5 "term_eq (binary equivalence)").
type TermEq struct {
	ctx     *EgraphContext
	pending [][2]datalog.Value
}

// NewTermEq returns a term-equivalence provider sharing ctx.
func NewTermEq(ctx *EgraphContext) *TermEq {
	return &TermEq{ctx: ctx}
}

func (p *TermEq) Add(tuple datalog.Tuple) (AddResult, error) {
	if len(tuple) != 2 {
		return NoChange, fmt.Errorf("provider: term_eq expects arity 2, got %d", len(tuple))
	}
	ca := p.ctx.classOf(tuple[0])
	cb := p.ctx.classOf(tuple[1])
	if !p.ctx.union(ca, cb) {
		return NoChange, nil
	}
	p.pending = append(p.pending, [2]datalog.Value{tuple[0], tuple[1]})
	return Added, nil
}

func (p *TermEq) Contains(tuple datalog.Tuple) (bool, error) {
	if len(tuple) != 2 {
		return false, fmt.Errorf("provider: term_eq expects arity 2, got %d", len(tuple))
	}
	ca, ok1 := p.ctx.valueClass[tuple[0]]
	cb, ok2 := p.ctx.valueClass[tuple[1]]
	if !ok1 || !ok2 {
		return tuple[0] == tuple[1], nil
	}
	return p.ctx.find(ca) == p.ctx.find(cb), nil
}

func (p *TermEq) Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error) {
	if keyPos != 0 && keyPos != 1 {
		return nil, ErrUnsupported
	}
	cls, ok := p.ctx.valueClass[key]
	if !ok {
		return []datalog.Tuple{}, nil
	}
	root := p.ctx.find(cls)
	var members []datalog.Value
	for v, c := range p.ctx.valueClass {
		if p.ctx.find(c) == root {
			members = append(members, v)
		}
	}
	sort.Slice(members, func(i, j int) bool { return valueLess(members[i], members[j]) })
	out := make([]datalog.Tuple, len(members))
	for i, m := range members {
		if keyPos == 0 {
			out[i] = datalog.Tuple{key, m}
		} else {
			out[i] = datalog.Tuple{m, key}
		}
	}
	return out, nil
}

func (p *TermEq) IterAll() ([]datalog.Tuple, error) {
	roots := make(map[eclassID][]datalog.Value)
	for v, c := range p.ctx.valueClass {
		r := p.ctx.find(c)
		roots[r] = append(roots[r], v)
	}
	var rootIDs []eclassID
	for r := range roots {
		rootIDs = append(rootIDs, r)
	}
	sort.Slice(rootIDs, func(i, j int) bool { return rootIDs[i] < rootIDs[j] })

	var out []datalog.Tuple
	for _, r := range rootIDs {
		members := roots[r]
		sort.Slice(members, func(i, j int) bool { return valueLess(members[i], members[j]) })
		for _, a := range members {
			for _, b := range members {
				out = append(out, datalog.Tuple{a, b})
			}
		}
	}
	return out, nil
}

func (p *TermEq) HasDelta() bool { return len(p.pending) > 0 }

func (p *TermEq) IterDelta() ([]datalog.Tuple, error) {
	out := make([]datalog.Tuple, len(p.pending))
	for i, pr := range p.pending {
		out[i] = datalog.Tuple{pr[0], pr[1]}
	}
	return out, nil
}

func (p *TermEq) AckDelta() { p.pending = nil }

func (p *TermEq) Reset() error {
	p.ctx.resetIfPending()
	p.pending = nil
	return nil
}

func (p *TermEq) Destroy() {}

// Context returns the shared e-graph context this provider reads and
// writes; see EnodeProvider.Context.
func (p *TermEq) Context() *EgraphContext { return p.ctx }
