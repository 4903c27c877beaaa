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

// Package provider implements the Relation Provider ("Bring Your Own Data
// Structure") interface of spec.md §4.5: a pluggable backing store for a
// relation that exposes the same six read/write operations regardless of
// whether the relation is stored explicitly, as a union-find equivalence
// class, or as an e-graph congruence class.
package provider

import "github.com/dlforge/datalog"

// AddResult reports the outcome of Provider.Add.
type AddResult int

const (
	// Added means the tuple was not previously present and now is.
	Added AddResult = iota
	// NoChange means the tuple was already present.
	NoChange
)

// Provider is the interface every relation backing store implements.
// add/contains are mandatory; the rest are optional and a provider that
// does not support one returns ErrUnsupported.
type Provider interface {
	// Add inserts tuple, reporting whether it was newly added.
	Add(tuple datalog.Tuple) (AddResult, error)
	// Contains is a ground membership test.
	Contains(tuple datalog.Tuple) (bool, error)

	// Lookup enumerates tuples whose argument at keyPos equals key, in a
	// provider-defined but reproducible order. Returns ErrUnsupported if
	// the provider cannot do indexed lookup.
	Lookup(key datalog.Value, keyPos int) ([]datalog.Tuple, error)
	// IterAll enumerates every tuple currently in the relation.
	IterAll() ([]datalog.Tuple, error)

	// HasDelta reports whether any tuples were added since the last
	// AckDelta.
	HasDelta() bool
	// IterDelta enumerates tuples added since the last AckDelta.
	IterDelta() ([]datalog.Tuple, error)
	// AckDelta flips HasDelta back to false, acknowledging the tuples
	// IterDelta most recently returned as consumed.
	AckDelta()

	// Reset clears all tuples the provider stores for the relation it
	// backs, per SPEC_FULL.md's clear_derived semantics. A provider whose
	// storage is not exclusive to one relation (e.g. a shared e-graph
	// context) resets its shared state at most once per logical reset
	// round, tracked internally.
	Reset() error

	// Destroy releases any resources the provider holds. A no-op for
	// providers with nothing to release.
	Destroy()
}

// ErrUnsupported is returned by optional operations a provider kind does
// not implement.
var ErrUnsupported = providerError("operation not supported by this provider")

type providerError string

func (e providerError) Error() string { return string(e) }
