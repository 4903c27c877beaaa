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

import "github.com/dlforge/datalog"

// ExternalCallbacks are the host-supplied function pointers behind an
// External provider (spec.md §6.4 "BYODS external relation source"): the
// host owns storage and iteration; the engine only ever reads through
// these callbacks. A nil callback means the corresponding optional
// operation is unsupported.
type ExternalCallbacks struct {
	IterAll    func() ([]datalog.Tuple, error)
	IterDelta  func() ([]datalog.Tuple, error)
	HasDelta   func() bool
	AckDelta   func()
	LookupArg0 func(key datalog.Value) ([]datalog.Tuple, error)
	LookupArg1 func(key datalog.Value) ([]datalog.Tuple, error)
}

// External adapts a host-owned data source into a Provider. It never
// accepts writes: Add always fails, since the host, not the engine, is
// the source of truth for these tuples (spec.md §6.4: "does not own
// storage but can iterate tuples from an external source").
type External struct {
	cb ExternalCallbacks
}

// NewExternal wraps cb as a read-only Provider. IterAll must be non-nil;
// every other callback is optional.
func NewExternal(cb ExternalCallbacks) *External {
	return &External{cb: cb}
}

func (p *External) Add(tuple datalog.Tuple) (AddResult, error) {
	return NoChange, providerError("provider: external relations do not accept writes from the engine")
}

func (p *External) Contains(tuple datalog.Tuple) (bool, error) {
	all, err := p.IterAll()
	if err != nil {
		return false, err
	}
	for _, t := range all {
		if t.Equal(tuple) {
			return true, nil
		}
	}
	return false, nil
}

func (p *External) Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error) {
	switch keyPos {
	case 0:
		if p.cb.LookupArg0 != nil {
			return p.cb.LookupArg0(key)
		}
	case 1:
		if p.cb.LookupArg1 != nil {
			return p.cb.LookupArg1(key)
		}
	}
	return nil, ErrUnsupported
}

func (p *External) IterAll() ([]datalog.Tuple, error) {
	if p.cb.IterAll == nil {
		return nil, ErrUnsupported
	}
	return p.cb.IterAll()
}

func (p *External) HasDelta() bool {
	if p.cb.HasDelta == nil {
		return false
	}
	return p.cb.HasDelta()
}

func (p *External) IterDelta() ([]datalog.Tuple, error) {
	if p.cb.IterDelta == nil {
		return nil, ErrUnsupported
	}
	return p.cb.IterDelta()
}

func (p *External) AckDelta() {
	if p.cb.AckDelta != nil {
		p.cb.AckDelta()
	}
}

// Reset is a no-op: the engine never owns an external source's storage,
// so clear_derived_facts cannot clear it (spec.md §6.4).
func (p *External) Reset() error { return nil }

func (p *External) Destroy() {}
