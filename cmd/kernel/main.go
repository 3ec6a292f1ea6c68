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

// Command kernel runs one autonomous agent process.
//
// Usage:
//
//	kernel run --config kernel.yaml --profile-id default
//	kernel validate --config kernel.yaml
//	kernel version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/sashabaranov/go-openai"

	"github.com/azzindani/cogkernel/pkg/execute/toolhost"
	"github.com/azzindani/cogkernel/pkg/kernel"
	"github.com/azzindani/cogkernel/pkg/kernlog"
	"github.com/azzindani/cogkernel/pkg/lifecycle/vault"
	"github.com/azzindani/cogkernel/pkg/primitive/embed"
)

// exit codes per spec.md §6.
const (
	exitOK            = 0
	exitConfigError   = 64
	exitVaultDown     = 65
	exitEmbedDown     = 66
	exitInterrupted   = 130
)

// CLI defines the command-line interface (grounded on the teacher's
// own kong.CLI shape in cmd/hector/main.go).
type CLI struct {
	Run      RunCmd      `cmd:"" help:"Run one agent process to completion."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`

	Config    string `short:"c" help:"Path to config file." type:"path" default:"kernel.yaml"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFormat string `help:"Log format (simple, verbose)." default:"simple"`
}

// VersionCmd prints the build version.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Printf("cogkernel version %s\n", version)
	return nil
}

// ValidateCmd checks that a config file parses and satisfies required
// fields, without connecting to any backend.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	loader := kernel.NewLoader(cli.Config)
	if _, err := loader.Load(context.Background()); err != nil {
		return fmt.Errorf("config invalid: %w", err)
	}
	fmt.Println("configuration OK")
	return nil
}

// RunCmd loads configuration, wires the kernel, runs genesis, and
// drives the lifecycle loop until the agent reaches a terminal state.
type RunCmd struct {
	ProfileID string `help:"Cognitive profile id to load at genesis." default:"default"`
}

func (c *RunCmd) Run(cli *CLI) error {
	logger := kernlog.New(kernlog.Config{Level: cli.LogLevel, Format: cli.LogFormat})

	cfg, err := kernel.NewLoader(cli.Config).Load(context.Background())
	if err != nil {
		logger.Error("configuration error", "err", err)
		os.Exit(exitConfigError)
	}

	v, err := vault.NewRedisVault(vault.RedisConfig{URL: cfg.VaultURL})
	if err != nil {
		logger.Error("vault unreachable", "err", err)
		os.Exit(exitVaultDown)
	}
	defer v.Close()

	client := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
	embedder := embed.NewOpenAIEmbedder(client, openai.AdaEmbeddingV2, 1536)
	if _, err := embedder.Embed(context.Background(), "healthcheck"); err != nil {
		logger.Error("embedding backend unreachable", "err", err)
		os.Exit(exitEmbedDown)
	}

	toolHost := toolhost.NewMCPHost(toolhost.MCPConfig{
		Name:    "kernel-tools",
		Command: cfg.ToolHostURL,
	}, logger)
	defer toolHost.Close()

	k, err := kernel.New(cfg, kernel.Deps{
		Vault:    v,
		Embedder: embedder,
		ToolHost: toolHost,
	})
	if err != nil {
		logger.Error("kernel assembly failed", "err", err)
		os.Exit(exitConfigError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if _, err := k.Genesis(ctx, c.ProfileID, nil); err != nil {
		logger.Error("genesis failed", "err", err)
		return err
	}

	summary, err := k.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("interrupted")
			os.Exit(exitInterrupted)
		}
		logger.Error("run failed", "err", err)
		return err
	}

	if summary != nil {
		logger.Info("epoch closed", "agent_id", summary.AgentID, "epoch_id", summary.EpochID)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("kernel"),
		kong.Description("Run one autonomous agent process."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigError)
	}
}
