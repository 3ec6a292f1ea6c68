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

package toolhost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPConfig points the host at a single stdio MCP server subprocess.
type MCPConfig struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// MCPHost is a ToolHost backed by an MCP stdio server, connected lazily
// on first use (spec.md §6: "the core must not hard-depend on any one
// tool transport").
type MCPHost struct {
	cfg    MCPConfig
	logger *slog.Logger

	mu        sync.Mutex
	client    *client.Client
	connected bool
	longRunning map[string]bool
	approval    map[string]bool
}

// NewMCPHost constructs a lazily-connecting MCP tool host.
func NewMCPHost(cfg MCPConfig, logger *slog.Logger) *MCPHost {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPHost{cfg: cfg, logger: logger, longRunning: map[string]bool{}, approval: map[string]bool{}}
}

func (h *MCPHost) connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected {
		return nil
	}

	env := make([]string, 0, len(h.cfg.Env))
	for k, v := range h.cfg.Env {
		env = append(env, k+"="+v)
	}

	c, err := client.NewStdioMCPClient(h.cfg.Command, env, h.cfg.Args...)
	if err != nil {
		return fmt.Errorf("create mcp client: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "cogkernel", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := c.Initialize(ctx, initReq); err != nil {
		c.Close()
		return fmt.Errorf("initialize mcp client: %w", err)
	}

	h.client = c
	h.connected = true
	h.logger.Info("connected to mcp tool host", "name", h.cfg.Name, "command", h.cfg.Command)
	return nil
}

// List returns the capability descriptors the connected server
// advertises, connecting on first call.
func (h *MCPHost) List(ctx context.Context) ([]Descriptor, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	c := h.client
	h.mu.Unlock()

	resp, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list mcp tools: %w", err)
	}

	descriptors := make([]Descriptor, 0, len(resp.Tools))
	for _, t := range resp.Tools {
		schema := convertSchema(t.InputSchema)
		descriptors = append(descriptors, Descriptor{
			Name: t.Name, Description: t.Description, Schema: schema,
			IsLongRunning: h.longRunning[t.Name], RequiresApproval: h.approval[t.Name],
		})
	}
	return descriptors, nil
}

// Call invokes a named tool synchronously. A transport-level failure
// returns a plain error; callers wrap it into an ErrTransient envelope
// per spec.md §7 so the node's retry policy applies.
func (h *MCPHost) Call(ctx context.Context, name string, args map[string]interface{}) (*Result, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}

	h.mu.Lock()
	c := h.client
	h.mu.Unlock()

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	resp, err := c.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("mcp call %q: %w", name, err)
	}

	payload, err := parseToolResult(resp)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: payload}, nil
}

// Close releases the underlying MCP subprocess.
func (h *MCPHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil
	}
	err := h.client.Close()
	h.connected = false
	return err
}

func parseToolResult(resp *mcp.CallToolResult) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	if resp.IsError {
		for _, content := range resp.Content {
			if tc, ok := content.(mcp.TextContent); ok {
				result["error"] = tc.Text
				return result, nil
			}
		}
		result["error"] = "unknown mcp tool error"
		return result, nil
	}

	var texts []string
	for _, content := range resp.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}
	switch len(texts) {
	case 0:
	case 1:
		result["result"] = texts[0]
	default:
		result["results"] = texts
	}
	return result, nil
}

// convertSchema round-trips the MCP schema through JSON rather than
// reading its Go struct fields directly, since the wire shape (object,
// properties, required) is the only part this host relies on.
func convertSchema(s mcp.ToolInputSchema) map[string]interface{} {
	data, err := json.Marshal(s)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]interface{}{"type": "object"}
	}
	return out
}
