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

package datalog

import "testing"

func TestRegisterIdempotent(t *testing.T) {
	pt := NewPredicateTable()
	id1, err := pt.Register("edge", 2)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := pt.Register("edge", 2)
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatal("registering the same name/arity twice should return the same id")
	}
}

func TestRegisterArityMismatch(t *testing.T) {
	pt := NewPredicateTable()
	if _, err := pt.Register("edge", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := pt.Register("edge", 3); err == nil {
		t.Fatal("expected arity mismatch error")
	}
}

func TestLookupAndName(t *testing.T) {
	pt := NewPredicateTable()
	id, _ := pt.Register("path", 2)
	got, ok := pt.Lookup("path")
	if !ok || got != id {
		t.Fatal("Lookup did not return the registered id")
	}
	if pt.Name(id) != "path" {
		t.Fatalf("Name(%d) = %q, want path", id, pt.Name(id))
	}
	if _, ok := pt.Lookup("missing"); ok {
		t.Fatal("Lookup of unregistered name should fail")
	}
}
