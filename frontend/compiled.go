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

package frontend

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// Magic is the 8-byte prefix of every compiled (.dlc) rule file, per
// spec.md §4.4/§6.2.
const Magic = "RULRAST1"

// The compiled form is: Magic, followed by a raw DEFLATE stream (no zlib
// or gzip wrapper) whose inflation is a CBOR encoding of wireProgram. CBOR
// gives the tag-length-value framing spec.md §4.4 asks for (every field is
// self-describing: a type byte plus length for variable-sized items)
// without hand-rolling integer and string encoding; only the "which kind
// of term/literal is this" tag is specific to this format, carried as the
// Kind enum fields already on the AST.
//
// wireProgram mirrors Program field-for-field so deserialization never
// needs bespoke encode/decode methods per node type; every AST node type
// embeds plain exported fields already, so CBOR's struct-tag reflection
// round-trips them directly.
type wireProgram = Program

// Serialize encodes prog into the compiled binary form. Serialize never
// fails for a Program produced by Parse or built directly with exported
// constructors.
func Serialize(prog *Program) ([]byte, error) {
	payload, err := cbor.Marshal((*wireProgram)(prog))
	if err != nil {
		return nil, fmt.Errorf("frontend: serialize: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(Magic)
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("frontend: serialize: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("frontend: serialize: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("frontend: serialize: %w", err)
	}
	return buf.Bytes(), nil
}

// Deserialize decodes a compiled binary form produced by Serialize. It
// validates the magic prefix independently of any source text, per
// spec.md §4.4 ("keep deserialization independent of the source text").
func Deserialize(data []byte) (*Program, error) {
	if len(data) < len(Magic) || string(data[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("frontend: deserialize: missing or bad %q magic", Magic)
	}
	r := flate.NewReader(bytes.NewReader(data[len(Magic):]))
	defer r.Close()
	payload, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("frontend: deserialize: inflate: %w", err)
	}
	var prog wireProgram
	if err := cbor.Unmarshal(payload, &prog); err != nil {
		return nil, fmt.Errorf("frontend: deserialize: %w", err)
	}
	return (*Program)(&prog), nil
}
