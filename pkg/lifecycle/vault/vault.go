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

// Package vault defines the durable-storage boundary the kernel calls
// across genesis, interrupt handling, and epoch close (spec.md §6
// "Vault service"). The core never depends on a concrete backend.
package vault

import "context"

// Vault is the three-operation contract the core consumes: get/put a
// namespaced byte blob, and register a new agent. Bytes are always the
// canonical serialization of the schemas in kernschema (spec.md §6).
type Vault interface {
	Get(ctx context.Context, namespace, id string) ([]byte, error)
	Put(ctx context.Context, namespace, id string, data []byte) error
	RegisterAgent(ctx context.Context, agentID, profileID string) error
}

// ErrNotFound is returned by Get when the namespace/id pair has no
// stored value, distinguishing "absent" from a transport failure.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "vault: key not found" }
