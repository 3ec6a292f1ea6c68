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

package engine

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"

	"github.com/azzindani/cogkernel/pkg/kernschema"
	"github.com/azzindani/cogkernel/pkg/primitive/embed"
)

// Gap is a missing variable: a required input whose source is absent
// from WorldState (spec.md §4.3.2).
type Gap struct {
	Name        string
	Description string
	Channel     StrategyChannel
}

// StrategyChannel routes an investigation query to one of the three
// channels spec.md §4.3.2 names.
type StrategyChannel string

const (
	ChannelLocalRAG    StrategyChannel = "local_rag"
	ChannelExternalWeb StrategyChannel = "external_web"
	ChannelFilesystem  StrategyChannel = "filesystem"
)

// ExplorationTask is consumable by T3 as a prepended sub-task. Finding
// is the investigation result gathered eagerly by ExploreGaps (empty if
// the channel could not resolve the gap, in which case the compiled
// sub-task node will retry against the same channel at dispatch time).
type ExplorationTask struct {
	Gap     Gap
	Query   string
	Channel StrategyChannel
	Finding string
	SubTask *kernschema.SubTask
}

// WebSearcher and FilesystemScanner are injected so this package does
// not embed an HTTP client or filesystem walker directly — the same
// "external tool, not kernel-resident code" separation ingest.go's
// DocumentDecomposer uses.
type WebSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

type FilesystemScanner interface {
	Scan(ctx context.Context, query string) (string, error)
}

// Curiosity implements explore_gaps (spec.md §4.3.2). Its local RAG
// channel is a chromem-go in-process collection — no external vector
// server, the same embedded-store pattern hector's RAG package offers
// as one of several swappable backends.
type Curiosity struct {
	collection *chromem.Collection
	embedder   embed.Embedder
	web        WebSearcher
	fs         FilesystemScanner
}

func NewCuriosity(collection *chromem.Collection, embedder embed.Embedder, web WebSearcher, fs FilesystemScanner) *Curiosity {
	return &Curiosity{collection: collection, embedder: embedder, web: web, fs: fs}
}

// ExploreGaps formulates an investigation query per gap and routes each
// to its declared strategy channel. It does not detect gaps itself: it
// works only on the gaps the caller passes in.
func (c *Curiosity) ExploreGaps(ctx context.Context, gaps []Gap) ([]ExplorationTask, error) {
	tasks := make([]ExplorationTask, 0, len(gaps))
	for _, g := range gaps {
		query := fmt.Sprintf("find information to resolve missing variable %q: %s", g.Name, g.Description)

		finding, err := c.investigate(ctx, g.Channel, query)
		if err != nil {
			finding = "" // investigation failure still yields a sub-task; the node itself will retry/fail
		}

		tasks = append(tasks, ExplorationTask{
			Gap:     g,
			Query:   query,
			Channel: g.Channel,
			Finding: finding,
			SubTask: &kernschema.SubTask{
				ID:            "explore:" + g.Name,
				Description:   query,
				RequiredSkill: string(g.Channel),
				Retry:         kernschema.DefaultRetryPolicy(),
				OutputSchema: &kernschema.JSONSchema{
					Name:     g.Name + "_result",
					Document: map[string]interface{}{"type": "string"},
				},
			},
		})
	}
	return tasks, nil
}

func (c *Curiosity) investigate(ctx context.Context, channel StrategyChannel, query string) (string, error) {
	switch channel {
	case ChannelLocalRAG:
		if c.collection == nil || c.embedder == nil {
			return "", fmt.Errorf("no local RAG collection configured")
		}
		vec, err := c.embedder.Embed(ctx, query)
		if err != nil {
			return "", fmt.Errorf("embed query: %w", err)
		}
		results, err := c.collection.QueryEmbedding(ctx, vec, 3, nil, nil)
		if err != nil {
			return "", fmt.Errorf("chromem-go query: %w", err)
		}
		if len(results) == 0 {
			return "", nil
		}
		return results[0].Content, nil
	case ChannelExternalWeb:
		if c.web == nil {
			return "", fmt.Errorf("no web searcher configured")
		}
		return c.web.Search(ctx, query)
	case ChannelFilesystem:
		if c.fs == nil {
			return "", fmt.Errorf("no filesystem scanner configured")
		}
		return c.fs.Scan(ctx, query)
	default:
		return "", fmt.Errorf("unknown strategy channel %q", channel)
	}
}
