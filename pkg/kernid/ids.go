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

// Package kernid generates the two identifier flavors the kernel relies on:
// random instance ids for agents/epochs/DAGs/nodes/events, and deterministic
// content hashes for cache keys and computation dedup.
package kernid

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// NewInstanceID returns a random 128-bit identifier for an agent, epoch,
// DAG, node, cache entry, or observation event.
func NewInstanceID() string {
	return uuid.New().String()
}

// ContentHash computes a deterministic hash over (namespace, payload) so
// that argument reordering and whitespace never cause a miss. Payload is
// canonicalized before hashing: if it is valid JSON, its keys are sorted
// recursively; otherwise it is hashed as-is.
func ContentHash(namespace string, payload []byte) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0}) // separator: prevents "ns"+"x" colliding with "n"+"sx"
	h.Write(canonicalize(payload))
	return hex.EncodeToString(h.Sum(nil))
}

// GenerateCacheKey is the cache hierarchy's sole key constructor (§4.1).
// Identical inputs under different namespaces never alias because the
// namespace is folded into the hash, not concatenated with the payload.
func GenerateCacheKey(namespace string, payload []byte) string {
	return ContentHash(namespace, payload)
}

// canonicalize returns a byte-stable form of payload. For JSON payloads
// this means recursively sorting object keys and re-marshaling without
// extraneous whitespace; for anything else it returns payload unchanged.
func canonicalize(payload []byte) []byte {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return payload
	}
	sorted := sortKeys(v)
	out, err := json.Marshal(sorted)
	if err != nil {
		return payload
	}
	return out
}

func sortKeys(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, orderedEntry{Key: k, Value: sortKeys(t[k])})
		}
		return ordered
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = sortKeys(e)
		}
		return out
	default:
		return t
	}
}

// orderedMap marshals as a JSON object with keys in insertion order,
// which sortKeys has already sorted lexicographically.
type orderedMap []orderedEntry

type orderedEntry struct {
	Key   string
	Value interface{}
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	buf := []byte{'{'}
	for i, e := range m {
		if i > 0 {
			buf = append(buf, ',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf = append(buf, k...)
		buf = append(buf, ':')
		buf = append(buf, v...)
	}
	buf = append(buf, '}')
	return buf, nil
}
