package kerncache

import (
	"context"

	"github.com/azzindani/cogkernel/pkg/kernschema"
)

// SharedStore backs the process-shared L2/L3 levels described in
// spec.md §5: "writes serialize on that level, reads proceed in
// parallel. Entries are immutable once written; invalidation removes
// them." When nil, the Hierarchy falls back to a process-local map.
type SharedStore interface {
	Get(ctx context.Context, key string) (*kernschema.CacheEntry, error)
	Set(ctx context.Context, key string, entry *kernschema.CacheEntry) error
	Delete(ctx context.Context, key string) error
}
