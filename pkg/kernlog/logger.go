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

// Package kernlog builds the kernel's structured logger. Every tier logs
// through log/slog with trace_id/agent_id/tier fields; third-party noise
// is suppressed below DEBUG the same way hector's pkg/logger keeps tool
// SDK chatter out of normal operation.
package kernlog

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

const kernelPackagePrefix = "github.com/azzindani/cogkernel"

// Config controls logger construction.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // simple, verbose
	Output *os.File
}

// ParseLevel converts a string log level to slog.Level. Unknown values
// fall back to warn rather than erroring, matching the teacher's
// tolerant-default behavior for an operator-facing flag.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// filteringHandler hides logs emitted by third-party dependencies
// (redis, mcp-go, chromem-go, ...) unless the level is DEBUG, so normal
// operation reads as kernel tier activity, not library internals.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || isKernelFrame(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func isKernelFrame(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	// CallersFrames expands inlined calls, so the first frame is the
	// logging call site even when the slog method was inlined into it.
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	return strings.Contains(frame.Function, kernelPackagePrefix)
}

// New builds a slog.Logger per cfg. Output defaults to os.Stderr; an
// empty or unrecognized level falls back to warn (see ParseLevel).
func New(cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.String() == "WARNING" {
				return slog.String(slog.LevelKey, "WARN")
			}
			return a
		},
	}

	var base slog.Handler
	if cfg.Format == "verbose" {
		base = slog.NewTextHandler(out, opts)
	} else {
		base = slog.NewJSONHandler(out, opts)
	}

	return slog.New(&filteringHandler{handler: base, minLevel: level})
}

// WithTrace returns a logger annotated with the tier, trace id, and agent
// id every kernel log line carries, per SPEC_FULL.md's ambient logging
// contract.
func WithTrace(l *slog.Logger, tier, traceID, agentID string) *slog.Logger {
	return l.With("tier", tier, "trace_id", traceID, "agent_id", agentID)
}
