package kernschema

import "time"

// CacheLevel identifies one of the four cache hierarchy tiers (spec.md
// §4.1).
type CacheLevel int

const (
	L1 CacheLevel = iota + 1
	L2
	L3
	L4
)

// String renders the level the way log lines and metrics want it.
func (l CacheLevel) String() string {
	switch l {
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L3:
		return "L3"
	case L4:
		return "L4"
	default:
		return "L?"
	}
}

// CacheEntry is a value plus the bookkeeping spec.md §3 names: level,
// write timestamp, TTL, hit counter, byte-size estimate, and the
// content-hash key it was stored under.
type CacheEntry struct {
	Key       string
	Level     CacheLevel
	Value     []byte
	WrittenAt time.Time
	TTL       time.Duration
	Hits      int64
	SizeBytes int64
}

// Expired reports whether the entry's TTL has elapsed as of now.
func (e *CacheEntry) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false // TTL-only levels with TTL=0 mean "no expiry", not "already expired"
	}
	return now.After(e.WrittenAt.Add(e.TTL))
}
