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

// Package eval implements the semi-naive per-stratum evaluator (C8):
// Δ-rewritten rule variants, left-deep index-preferred joins, negation
// and comparison filters, string builtins, and the external-facts hook.
package eval

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/dlforge/datalog"
	"github.com/dlforge/datalog/ir"
)

// match(pattern, s) compiles pattern as a POSIX extended regular
// expression (leftmost-longest semantics) via regexp.CompilePOSIX,
// spec.md §4.7's "implementation must document the supported subset".
// Compiled patterns are memoized per evaluator since the same literal
// pattern is typically evaluated once per join row across many
// iterations.
type regexCache struct {
	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

func newRegexCache() *regexCache {
	return &regexCache{cache: make(map[string]*regexp.Regexp)}
}

func (c *regexCache) compile(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if re, ok := c.cache[pattern]; ok {
		return re, nil
	}
	re, err := regexp.CompilePOSIX(pattern)
	if err != nil {
		return nil, fmt.Errorf("eval: match: bad pattern %q: %w", pattern, err)
	}
	c.cache[pattern] = re
	return re, nil
}

// evalBuiltin applies fn to its two symbol arguments (already resolved to
// strings via the symbol table) and reports whether the filter passes.
func evalBuiltin(fn ir.Builtin, a, b string, regexes *regexCache) (bool, error) {
	switch fn {
	case ir.BuiltinMatch:
		re, err := regexes.compile(a)
		if err != nil {
			return false, err
		}
		return re.MatchString(b), nil
	case ir.BuiltinStartsWith:
		return strings.HasPrefix(b, a), nil
	case ir.BuiltinEndsWith:
		return strings.HasSuffix(b, a), nil
	case ir.BuiltinContains:
		return strings.Contains(b, a), nil
	default:
		return false, fmt.Errorf("eval: unknown builtin %q", fn)
	}
}

// compareValues applies a relational operator to two ground Values.
// Symbols compare by interned ID, integers and ranges by payload;
// comparing values of different kinds is always unequal/ordered by kind,
// matching Value's total Kind-then-payload ordering used elsewhere
// (e.g. provider's deterministic enumeration).
func compareValues(op ir.CompareOp, a, b datalog.Value) bool {
	switch op {
	case ir.OpEq:
		return a.Equal(b)
	case ir.OpNe:
		return !a.Equal(b)
	}
	// Ordering: only meaningful within a kind; spec.md leaves
	// cross-kind ordering undefined, so fall back to Kind order to stay
	// total and reproducible.
	if a.Kind != b.Kind {
		lt := a.Kind < b.Kind
		switch op {
		case ir.OpLt:
			return lt
		case ir.OpLe:
			return lt
		case ir.OpGt:
			return !lt
		case ir.OpGe:
			return !lt
		}
		return false
	}
	var cmp int
	switch a.Kind {
	case datalog.KindInt:
		cmp = cmp64(a.Int, b.Int)
	case datalog.KindSymbol:
		cmp = cmp64(int64(a.Sym), int64(b.Sym))
	case datalog.KindRange:
		cmp = cmp64(int64(a.Rng), int64(b.Rng))
	default:
		cmp = cmp64(int64(a.Fact), int64(b.Fact))
	}
	switch op {
	case ir.OpLt:
		return cmp < 0
	case ir.OpLe:
		return cmp <= 0
	case ir.OpGt:
		return cmp > 0
	case ir.OpGe:
		return cmp >= 0
	default:
		return false
	}
}

func cmp64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
