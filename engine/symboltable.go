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

// RegisterSymbolTable hands ownership of symbol interning to the host
// (spec.md §4.8: "mandatory before any fact insertion" if the host wants
// to own the symbol table; otherwise the engine's built-in table is
// used). It fails if any fact has already been inserted, since symbols
// already interned through the engine's own table cannot be
// retroactively re-homed in the host's.
func (e *Engine) RegisterSymbolTable(intern func(s string) datalog.SymbolID, lookup func(id datalog.SymbolID) (string, bool)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.factsInserted {
		return fmt.Errorf("datalog: engine: register_symbol_table: must be called before any fact insertion")
	}
	e.syms.SetHost(intern, lookup)
	e.symHostSet = true
	e.symIntern = intern
	e.symLookup = lookup
	return nil
}
