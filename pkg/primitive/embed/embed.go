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

// Package embed provides the embed_text interface spec.md §6 describes,
// grounded on hector's pkg/embedder.Embedder interface.
package embed

import "context"

// Embedder produces a fixed-dimension vector embedding from text. The
// core caches results in L3 keyed by content hash of the text (spec.md
// §6) rather than relying on an embedder's own cache.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	Model() string
}
