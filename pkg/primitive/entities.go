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
	"regexp"
	"strings"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// nounPhraseRE is a coarse candidate-span tokenizer: runs of
// capitalized or digit-bearing tokens, good enough to find spans worth
// testing against a typed schema without a full POS tagger.
var nounPhraseRE = regexp.MustCompile(`[A-Z][\w.-]*(?:\s+[A-Z][\w.-]*)*|\d[\d,.:/-]*\d|\d+`)

// EntitySchema declares the typed entities callers expect back;
// unmatched candidate spans are discarded per spec.md §4.2.3.
type EntitySchema struct {
	Types []string
	// Match decides whether a candidate span belongs to typ. Callers
	// supply domain-specific matchers (regex, gazetteer lookup, etc.).
	Match func(typ, span string) bool
}

// ExtractEntities tokenizes text, generates candidate noun-phrase
// spans, and keeps only spans the schema recognizes.
func ExtractEntities(text string, schema EntitySchema) []kernschema.Entity {
	var entities []kernschema.Entity
	for _, loc := range nounPhraseRE.FindAllStringIndex(text, -1) {
		span := strings.TrimSpace(text[loc[0]:loc[1]])
		if span == "" {
			continue
		}
		for _, typ := range schema.Types {
			if schema.Match(typ, span) {
				entities = append(entities, kernschema.Entity{
					Type: typ, Value: span, Start: loc[0], End: loc[1],
				})
				break // first matching type wins; spans are not multi-typed
			}
		}
	}
	return entities
}
