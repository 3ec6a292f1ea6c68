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

// Package kernel wires T0 through T5 into a single runnable agent and
// loads its configuration.
package kernel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// loadDotEnvFiles loads .env.local then .env into the process
// environment, local-dev-only conveniences for populating the
// KERNEL_*/VAULT_URL/EMBED_URL/TOOL_HOST_URL variables applyEnvOverrides
// reads, grounded on the teacher's config.LoadEnvFiles. A missing file
// is not an error; already-set environment variables are never
// overwritten, matching godotenv.Load's own semantics.
func loadDotEnvFiles() error {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// Config is the complete, resolved runtime configuration for one
// kernel process (spec.md §6 environment-variable table).
type Config struct {
	VaultURL    string `mapstructure:"vault_url"`
	EmbedURL    string `mapstructure:"embed_url"`
	ToolHostURL string `mapstructure:"tool_host_url"`

	ModelName string `mapstructure:"model_name"`
	ProfileID string `mapstructure:"profile_id"`

	MaxEvents         int     `mapstructure:"max_events"`
	FocusCap          int     `mapstructure:"focus_cap"`
	CacheL2TTLSeconds int     `mapstructure:"cache_l2_ttl_s"`
	CacheL3TTLSeconds int     `mapstructure:"cache_l3_ttl_s"`
	CacheL4TTLSeconds int     `mapstructure:"cache_l4_ttl_s"`
	CancelGraceMs     int     `mapstructure:"cancel_grace_ms"`
	PhaseBudgetMs     int     `mapstructure:"phase_budget_ms"`
	PressureHighPct    float64 `mapstructure:"pressure_high_pct"`
	PressureCheckMs    int     `mapstructure:"pressure_check_ms"`
	PressureEvictBytes int64   `mapstructure:"pressure_evict_bytes"`
	MemoryCeilingBytes uint64  `mapstructure:"memory_ceiling_bytes"`

	SoftTokens int   `mapstructure:"soft_tokens"`
	HardTokens int   `mapstructure:"hard_tokens"`
	SoftWallMs int64 `mapstructure:"soft_wall_ms"`
	HardWallMs int64 `mapstructure:"hard_wall_ms"`
	SoftBytes  int64 `mapstructure:"soft_bytes"`
	HardBytes  int64 `mapstructure:"hard_bytes"`
}

// SetDefaults fills every field spec.md §6 marks optional.
func (c *Config) SetDefaults() {
	if c.MaxEvents == 0 {
		c.MaxEvents = 128
	}
	if c.FocusCap == 0 {
		c.FocusCap = 7
	}
	if c.CacheL2TTLSeconds == 0 {
		c.CacheL2TTLSeconds = 300
	}
	if c.CacheL3TTLSeconds == 0 {
		c.CacheL3TTLSeconds = 3600
	}
	if c.CacheL4TTLSeconds == 0 {
		c.CacheL4TTLSeconds = 30
	}
	if c.CancelGraceMs == 0 {
		c.CancelGraceMs = 2000
	}
	if c.PhaseBudgetMs == 0 {
		c.PhaseBudgetMs = 50
	}
	if c.PressureHighPct == 0 {
		c.PressureHighPct = 85
	}
	if c.PressureCheckMs == 0 {
		c.PressureCheckMs = 10000
	}
	if c.PressureEvictBytes == 0 {
		c.PressureEvictBytes = 64 * 1024 * 1024
	}
	if c.ModelName == "" {
		c.ModelName = "gpt-4"
	}
}

// Validate enforces spec.md §6's required-variable list, returning an
// error that maps to exit code 64 ("configuration error") at the
// caller.
func (c *Config) Validate() error {
	var missing []string
	if c.VaultURL == "" {
		missing = append(missing, "vault_url")
	}
	if c.EmbedURL == "" {
		missing = append(missing, "embed_url")
	}
	if c.ToolHostURL == "" {
		missing = append(missing, "tool_host_url")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v", missing)
	}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references anywhere in a parsed config
// tree with the corresponding environment variable, recursing through
// maps and slices.
func expandEnvVars(v interface{}) interface{} {
	switch val := v.(type) {
	case string:
		return envVarPattern.ReplaceAllStringFunc(val, func(match string) string {
			name := envVarPattern.FindStringSubmatch(match)[1]
			if resolved, ok := os.LookupEnv(name); ok {
				return resolved
			}
			return match
		})
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, e := range val {
			out[k] = expandEnvVars(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, e := range val {
			out[i] = expandEnvVars(e)
		}
		return out
	default:
		return v
	}
}

func parseBytes(data []byte) (map[string]interface{}, error) {
	var result map[string]interface{}
	if err := yaml.Unmarshal(data, &result); err == nil {
		return result, nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse as YAML or JSON: %w", err)
	}
	return result, nil
}

// Loader reads Config from a YAML/JSON file, overlays environment
// variables onto KERNEL_*/VAULT_URL/EMBED_URL/TOOL_HOST_URL-named
// fields, and can watch the file for hot reload (spec.md §6; grounded
// on the teacher's pkg/config Loader + FileProvider).
type Loader struct {
	path     string
	onChange func(*Config)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOnChange registers a callback invoked with the freshly reloaded
// Config whenever Watch observes a file change.
func WithOnChange(fn func(*Config)) LoaderOption {
	return func(l *Loader) { l.onChange = fn }
}

// NewLoader builds a Loader reading from the given file path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{path: path}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads, parses, env-overlays, defaults, and validates the
// configuration file.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnvFiles(); err != nil {
		return nil, fmt.Errorf("load dotenv files: %w", err)
	}

	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", l.path, err)
	}

	raw, err := parseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	expanded := expandEnvVars(raw)

	cfg := &Config{}
	if err := mapstructure.Decode(expanded, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyEnvOverrides(cfg)
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides gives the KERNEL_*/VAULT_URL/EMBED_URL/TOOL_HOST_URL
// environment variables final say over whatever the file specified,
// per spec.md §6's environment-variable table.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VAULT_URL"); v != "" {
		cfg.VaultURL = v
	}
	if v := os.Getenv("EMBED_URL"); v != "" {
		cfg.EmbedURL = v
	}
	if v := os.Getenv("TOOL_HOST_URL"); v != "" {
		cfg.ToolHostURL = v
	}
	if v := os.Getenv("KERNEL_MAX_EVENTS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.MaxEvents)
	}
	if v := os.Getenv("KERNEL_FOCUS_CAP"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.FocusCap)
	}
	if v := os.Getenv("KERNEL_CACHE_L2_TTL_S"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.CacheL2TTLSeconds)
	}
	if v := os.Getenv("KERNEL_CACHE_L3_TTL_S"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.CacheL3TTLSeconds)
	}
	if v := os.Getenv("KERNEL_CACHE_L4_TTL_S"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.CacheL4TTLSeconds)
	}
	if v := os.Getenv("KERNEL_CANCEL_GRACE_MS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.CancelGraceMs)
	}
	if v := os.Getenv("KERNEL_PHASE_BUDGET_MS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.PhaseBudgetMs)
	}
	if v := os.Getenv("KERNEL_PRESSURE_HIGH_PCT"); v != "" {
		fmt.Sscanf(v, "%f", &cfg.PressureHighPct)
	}
	if v := os.Getenv("KERNEL_PRESSURE_CHECK_MS"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.PressureCheckMs)
	}
	if v := os.Getenv("KERNEL_PRESSURE_EVICT_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.PressureEvictBytes)
	}
}

// Watch starts an fsnotify watch on the config file's directory,
// reloading and invoking onChange on every write/create event,
// debounced to coalesce rapid successive writes. Blocks until ctx is
// canceled.
func (l *Loader) Watch(ctx context.Context) error {
	l.mu.Lock()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("create file watcher: %w", err)
	}
	l.watcher = watcher
	l.mu.Unlock()

	dir := filepath.Dir(l.path)
	base := filepath.Base(l.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	var debounce *time.Timer
	const delay = 100 * time.Millisecond
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			watcher.Close()
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(delay, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			}
		case <-reload:
			cfg, err := l.Load(ctx)
			if err != nil {
				slog.Error("failed to reload configuration", "err", err)
				continue
			}
			if l.onChange != nil {
				l.onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config watcher error", "err", err)
		}
	}
}

// Close releases the loader's watcher, if one was started.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}
