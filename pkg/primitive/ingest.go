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

// Package primitive implements the deterministic, bounded-latency
// text/data transforms of spec.md §4.2, grounded on hector's
// pkg/context/{extraction,chunking,metadata} and pkg/embedder packages.
package primitive

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/azzindani/cogkernel/pkg/kerncache"
	"github.com/azzindani/cogkernel/pkg/kernid"
	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/primitive/embed"
)

// Modality tags a raw input the way hector's extraction registry tags
// files by extension/MIME rather than by an explicit enum.
type Modality string

const (
	ModalityText     Modality = "text"
	ModalityAudio    Modality = "audio"
	ModalityImage    Modality = "image"
	ModalityVideo    Modality = "video"
	ModalityDocument Modality = "document"
)

// RawInput is the tagged raw input spec.md §4.2.1 describes.
type RawInput struct {
	Modality Modality
	Text     string // set when Modality == ModalityText
	Path     string // set for audio/image/video/document
	SizeHint int64
}

// DocumentDecomposer performs the actual layout/keyframe/audio demux work
// on demand. It is a minimal interface, not a concrete tool-host type, so
// that pkg/primitive never imports pkg/execute/toolhost — the same
// import-cycle avoidance hector's extraction.ToolCaller interface uses.
type DocumentDecomposer interface {
	Decompose(ctx context.Context, modality string, path string) (text string, embedding []float32, err error)
}

// Ingester implements ingest (spec.md §4.2.1).
type Ingester struct {
	embedder   embed.Embedder
	decomposer DocumentDecomposer
	cache      *kerncache.Hierarchy
}

// NewIngester constructs an Ingester. cache may be nil, in which case
// every Ingest call re-embeds its text; when set, embeddings are cached
// at L3 keyed by a content hash of the embedder's model and the text
// (spec.md §4.1, §6: "the core caches results in L3 keyed by content
// hash of the text").
func NewIngester(embedder embed.Embedder, decomposer DocumentDecomposer, cache *kerncache.Hierarchy) *Ingester {
	return &Ingester{embedder: embedder, decomposer: decomposer, cache: cache}
}

func (ig *Ingester) embed(ctx context.Context, text string) ([]float32, error) {
	var key string
	if ig.cache != nil {
		key = kernid.GenerateCacheKey("embed:"+ig.embedder.Model(), []byte(text))
		if entry, ok := ig.cache.ReadCache(ctx, key, kernschema.L3); ok {
			var vec []float32
			if err := json.Unmarshal(entry.Value, &vec); err == nil {
				return vec, nil
			}
		}
	}

	vec, err := ig.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if ig.cache != nil {
		if value, err := json.Marshal(vec); err == nil {
			ig.cache.WriteCache(ctx, key, value, kernschema.L3, 0)
		}
	}
	return vec, nil
}

// Ingest routes large binary inputs to an immediate FileHandle bypass and
// defers cognitive decomposition; pure text is embedded synchronously.
// The returned Decompose closure is nil for text inputs, since there is
// nothing left to decompose.
func (ig *Ingester) Ingest(ctx context.Context, raw RawInput) (*kernschema.CognitiveContext, func(context.Context) (*kernschema.CognitiveContext, error), error) {
	traceID := uuid.New().String()

	if raw.Modality == ModalityText {
		cc := &kernschema.CognitiveContext{
			TraceID:    traceID,
			Text:       raw.Text,
			ObservedAt: time.Now().UTC(),
		}
		if ig.embedder != nil {
			vec, err := ig.embed(ctx, raw.Text)
			if err != nil {
				// Embedding failure does not fail ingest; the context is
				// still usable for classification/entity work.
				cc.DecomposeErr = fmt.Sprintf("embed: %v", err)
			} else {
				cc.Embedding = vec
			}
		}
		return cc, nil, nil
	}

	fh := kernschema.NewFileHandle(uuid.New().String(), raw.Path, string(raw.Modality), raw.SizeHint)
	cc := &kernschema.CognitiveContext{
		TraceID:    traceID,
		Files:      []*kernschema.FileHandle{fh},
		ObservedAt: time.Now().UTC(),
	}

	if ig.decomposer == nil {
		cc.DecomposeErr = "no decomposer configured; bypass result only"
		return cc, nil, nil
	}

	decompose := func(dctx context.Context) (*kernschema.CognitiveContext, error) {
		text, vec, err := ig.decomposer.Decompose(dctx, string(raw.Modality), raw.Path)
		if err != nil {
			return &kernschema.CognitiveContext{
				TraceID:     traceID,
				Files:       []*kernschema.FileHandle{fh},
				ObservedAt:  time.Now().UTC(),
				DecomposeErr: fmt.Sprintf("decompose failed: %v; higher tiers may call an external tool instead", err),
			}, err
		}
		return &kernschema.CognitiveContext{
			TraceID:    traceID,
			Text:       text,
			Files:      []*kernschema.FileHandle{fh},
			Embedding:  vec,
			ObservedAt: time.Now().UTC(),
		}, nil
	}

	return cc, decompose, nil
}

// classifyExtension is a convenience most callers use to pick a modality
// from a file path before constructing a RawInput.
func classifyExtension(path string) Modality {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".wav", ".flac", ".m4a":
		return ModalityAudio
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ModalityImage
	case ".mp4", ".mov", ".mkv", ".avi":
		return ModalityVideo
	case ".pdf", ".docx", ".xlsx":
		return ModalityDocument
	default:
		return ModalityText
	}
}
