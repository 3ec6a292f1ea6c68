// Copyright 2025 The cogkernel Authors
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

package primitive

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// CompiledSchema wraps a santhosh-tekuri/jsonschema/v6 schema compiled
// from a kernschema.JSONSchema document, the same way goa-ai compiles
// and reuses JSON Schema documents for tool-argument validation.
type CompiledSchema struct {
	schema *jsonschema.Schema
}

// CompileSchema compiles doc.Document into a reusable validator.
// AddResource takes an already-decoded JSON value, not raw bytes, so a
// map[string]interface{} document passes straight through.
func CompileSchema(doc *kernschema.JSONSchema) (*CompiledSchema, error) {
	compiler := jsonschema.NewCompiler()
	url := "mem://" + doc.Name
	if err := compiler.AddResource(url, doc.Document); err != nil {
		return nil, fmt.Errorf("add schema resource %q: %w", doc.Name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", doc.Name, err)
	}
	return &CompiledSchema{schema: schema}, nil
}

// Validate runs the four-gate pipeline of spec.md §4.2.4 against raw
// input decoded as JSON: syntax, structure, types, bounds. It
// short-circuits at the first failing gate. On success, out is
// populated via mapstructure so the returned value is coerced to the
// expected typed record (the invariant: a successful validation result
// is indistinguishable from the input except for that coercion).
func Validate(raw []byte, schema *CompiledSchema, out interface{}) *kernschema.ErrorEnvelope {
	// Gate 1: syntax — is it parseable?
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return packageValidationError(kernschema.ErrInput, "syntax", fmt.Sprintf("not parseable: %v", err))
	}

	// Gate 2+3: structure and types — schema validation covers both,
	// since jsonschema reports missing/extra keys and type mismatches
	// through the same error tree.
	if schema != nil {
		if err := schema.schema.Validate(decoded); err != nil {
			return packageValidationError(kernschema.ErrInput, "structure_or_types", err.Error())
		}
	}

	// Gate 4: bounds — numeric/length limits, enforced separately since
	// jsonschema's own bounds keywords (minimum/maxLength/...) are part
	// of gate 2/3's document, but callers may also supply a bounds
	// check not expressible in JSON Schema (e.g. cross-field limits).
	if err := checkBounds(decoded); err != nil {
		return packageValidationError(kernschema.ErrInput, "bounds", err.Error())
	}

	if out != nil {
		if err := mapstructure.Decode(decoded, out); err != nil {
			return packageValidationError(kernschema.ErrInput, "types", fmt.Sprintf("coercion failed: %v", err))
		}
	}
	return nil
}

// checkBounds enforces limits not expressed in the schema document
// itself. It is intentionally permissive by default; callers compose
// additional bounds via BoundsFunc.
var BoundsFunc func(decoded interface{}) error

func checkBounds(decoded interface{}) error {
	if BoundsFunc == nil {
		return nil
	}
	return BoundsFunc(decoded)
}

func packageValidationError(kind kernschema.ErrorKind, gate, message string) *kernschema.ErrorEnvelope {
	return kernschema.NewErrorEnvelope(kind, "", fmt.Sprintf("validation failed at gate %q: %s", gate, message), nil)
}
