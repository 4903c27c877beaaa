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

// InsertFact inserts values as a tuple of pred's relation, if it is not
// already present, and returns its stable fact ID. Fails without
// mutating the relation if the predicate is unknown or arity mismatches
// (spec.md §4.8 / §7).
func (e *Engine) InsertFact(pred datalog.PredicateID, values []datalog.Value) (datalog.FactID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def := e.preds.Def(pred)
	if def == nil {
		return datalog.InvalidFactID, fmt.Errorf("datalog: engine: insert_fact: unknown predicate %d", pred)
	}
	if len(values) != def.Arity {
		return datalog.InvalidFactID, fmt.Errorf(
			"datalog: engine: insert_fact: %s expects arity %d, got %d", def.Name, def.Arity, len(values))
	}
	e.ensureBacking(pred)
	tuple := datalog.Tuple(values)
	if _, err := e.providers[pred].Add(tuple); err != nil {
		return datalog.InvalidFactID, fmt.Errorf("datalog: engine: insert_fact: %w", err)
	}
	e.factsInserted = true
	return e.facts.Intern(pred, tuple), nil
}

// LookupTuple returns the canonical tuple for id, and false if id is
// unknown.
func (e *Engine) LookupTuple(id datalog.FactID) (datalog.Tuple, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.facts.Lookup(id)
}
