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

	"github.com/dlforge/datalog/provider"
)

// SetRelationProvider replaces predName's relation backing with prov
// (the BYODS extension point, spec.md §6). predName must already be
// registered. The predicate's prior contents are discarded; the host is
// responsible for populating prov before the next Evaluate if it needs
// seed data.
func (e *Engine) SetRelationProvider(predName string, prov provider.Provider) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.preds.Lookup(predName)
	if !ok {
		return fmt.Errorf("datalog: engine: set_relation_provider: unknown predicate %q", predName)
	}
	if old, ok := e.providers[id]; ok {
		old.Destroy()
	}
	e.providers[id] = prov
	delete(e.relations, id)
	return nil
}

// RegisterExternalFactSource registers name/arity if not already known,
// then wires it to a read-only provider backed by cb (spec.md §6.4).
func (e *Engine) RegisterExternalFactSource(name string, arity int, cb provider.ExternalCallbacks) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.preds.Lookup(name)
	if !ok {
		var err error
		id, err = e.preds.Declare(name, arity, nil)
		if err != nil {
			return fmt.Errorf("datalog: engine: register_external_fact_source: %w", err)
		}
	} else if def := e.preds.Def(id); def.Arity != arity {
		return fmt.Errorf(
			"datalog: engine: register_external_fact_source: %s expects arity %d, got %d", name, def.Arity, arity)
	}
	if old, ok := e.providers[id]; ok {
		old.Destroy()
	}
	e.providers[id] = provider.NewExternal(cb)
	delete(e.relations, id)
	return nil
}
