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

package kerncache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// RedisSharedStore backs L2/L3 with Redis so multiple kernel processes
// can share the "process-shared" cache levels spec.md §5 describes,
// grounded the same way the Vault adapter uses redis/go-redis/v9
// (DESIGN.md).
type RedisSharedStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSharedStore wraps an existing client. prefix namespaces keys
// (e.g. "kerncache:l3:") so multiple cache levels can share one Redis
// instance without colliding.
func NewRedisSharedStore(client *redis.Client, prefix string) *RedisSharedStore {
	return &RedisSharedStore{client: client, prefix: prefix}
}

func (s *RedisSharedStore) fullKey(key string) string {
	return s.prefix + key
}

// Get implements SharedStore.
func (s *RedisSharedStore) Get(ctx context.Context, key string) (*kernschema.CacheEntry, error) {
	raw, err := s.client.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil // miss, not an error — caller treats nil,nil as "not found"
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %q: %w", key, err)
	}

	var entry kernschema.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode cache entry %q: %w", key, err)
	}
	return &entry, nil
}

// Set implements SharedStore. Writes serialize at the Redis connection
// level; Redis also expires the key server-side once the TTL elapses, a
// belt-and-suspenders complement to CacheEntry.Expired's own check.
func (s *RedisSharedStore) Set(ctx context.Context, key string, entry *kernschema.CacheEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.fullKey(key), raw, entry.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Delete implements SharedStore.
func (s *RedisSharedStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}
