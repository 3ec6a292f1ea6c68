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

package vault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis-backed Vault.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

// RedisVault is a Vault implementation over Redis: namespace/id pairs
// become a single key, register_agent records agentID -> profileID as a
// field of the single "agents" hash, outside the namespace:id keys that
// Get and Put use.
type RedisVault struct {
	client *redis.Client
}

// NewRedisVault connects to Redis and verifies reachability, matching
// spec.md §6's exit-code contract ("65 Vault unreachable at start").
func NewRedisVault(cfg RedisConfig) (*RedisVault, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse vault url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opts.DB = cfg.DB
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("vault unreachable: %w", err)
	}

	return &RedisVault{client: client}, nil
}

// Get fetches the byte blob stored at namespace/id, or ErrNotFound.
func (v *RedisVault) Get(ctx context.Context, namespace, id string) ([]byte, error) {
	data, err := v.client.Get(ctx, vaultKey(namespace, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("vault get %s/%s: %w", namespace, id, err)
	}
	return data, nil
}

// Put writes the canonical byte blob at namespace/id with no
// expiration — Vault records are durable by design (spec.md §6).
func (v *RedisVault) Put(ctx context.Context, namespace, id string, data []byte) error {
	if err := v.client.Set(ctx, vaultKey(namespace, id), data, 0).Err(); err != nil {
		return fmt.Errorf("vault put %s/%s: %w", namespace, id, err)
	}
	return nil
}

// RegisterAgent records that agentID is backed by profileID, the only
// write genesis performs before constructing the IdentityContext.
func (v *RedisVault) RegisterAgent(ctx context.Context, agentID, profileID string) error {
	if err := v.client.HSet(ctx, "agents", agentID, profileID).Err(); err != nil {
		return fmt.Errorf("register agent %s: %w", agentID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (v *RedisVault) Close() error {
	return v.client.Close()
}

func vaultKey(namespace, id string) string {
	return namespace + ":" + id
}
