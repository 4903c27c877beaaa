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
)

// ArgType names an argument-kind hint a host can pass to RegisterPredicate,
// mirroring the `.pred` directive's `sym`/`int`/`range` type tags
// (spec.md §4.4).
type ArgType string

const (
	ArgTypeSymbol  ArgType = "sym"
	ArgTypeInt     ArgType = "int"
	ArgTypeRange   ArgType = "range"
	ArgTypeUnknown ArgType = ""
)

func (a ArgType) toKind() datalog.ArgKind {
	switch a {
	case ArgTypeSymbol:
		return datalog.ArgSymbol
	case ArgTypeInt:
		return datalog.ArgInt
	case ArgTypeRange:
		return datalog.ArgRange
	default:
		return datalog.ArgUnknown
	}
}

// RegisterPredicate registers name/arity (idempotent for a repeated call
// with the same arity; an error on an arity mismatch, per spec.md §4.8)
// and creates its default Explicit-backed relation.
func (e *Engine) RegisterPredicate(name string, arity int, types []ArgType) (datalog.PredicateID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kinds := make([]datalog.ArgKind, len(types))
	for i, t := range types {
		kinds[i] = t.toKind()
	}
	id, err := e.preds.Declare(name, arity, kinds)
	if err != nil {
		return datalog.InvalidPredicate, fmt.Errorf("datalog: engine: register predicate %q: %w", name, err)
	}
	e.ensureBacking(id)
	return id, nil
}

// GetPredicateID returns the ID registered for name, or
// (InvalidPredicate, false) if name was never referenced.
func (e *Engine) GetPredicateID(name string) (datalog.PredicateID, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preds.Lookup(name)
}

// GetPredicateName returns the name registered for id, or "" if unknown.
func (e *Engine) GetPredicateName(id datalog.PredicateID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preds.Name(id)
}
