package kernschema

import (
	"sync/atomic"
	"time"
)

// FileHandle is a refcounted pointer to an on-disk artifact. The core
// never loads the referenced bytes into memory and never mutates the
// file; when the refcount drops to zero the handle is released and the
// file's retention becomes an external concern (spec.md §3, Glossary).
type FileHandle struct {
	ID       string
	Path     string
	Modality string // audio, image, video, document
	SizeHint int64

	refs *int32
}

// NewFileHandle creates a FileHandle with an initial refcount of 1.
func NewFileHandle(id, path, modality string, sizeHint int64) *FileHandle {
	r := int32(1)
	return &FileHandle{ID: id, Path: path, Modality: modality, SizeHint: sizeHint, refs: &r}
}

// Retain increments the refcount and returns the same handle.
func (h *FileHandle) Retain() *FileHandle {
	atomic.AddInt32(h.refs, 1)
	return h
}

// Release decrements the refcount. It returns true when the count reaches
// zero, signaling the handle itself (not the file) may be discarded.
func (h *FileHandle) Release() bool {
	return atomic.AddInt32(h.refs, -1) <= 0
}

// RefCount reports the current refcount, primarily for tests.
func (h *FileHandle) RefCount() int32 {
	return atomic.LoadInt32(h.refs)
}

// CognitiveContext is the single message type carried through the tiers
// (spec.md §3). Contexts are immutable once observed; enrichment produces
// a new context tagged with the same TraceID.
type CognitiveContext struct {
	TraceID     string
	Text        string
	Files       []*FileHandle
	Embedding   []float32
	Metadata    ContextMetadata
	ObservedAt  time.Time
	DecomposeErr string // set when modality decomposition failed (§4.2.1)
}

// ContextMetadata bundles the primitive labels T1 attaches to a context.
type ContextMetadata struct {
	Intent        string
	IntentScore   float64
	Sentiment     float64
	Urgency       float64
	Entities      []Entity
	TimeRange     *TimeRange
	Place         string
	Classification *ClassificationResult
}

// Entity is a typed, schema-matched span extracted from text.
type Entity struct {
	Type  string
	Value string
	Start int
	End   int
}

// TimeRange is an absolute UTC span resolved from a relative expression.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Enrich returns a copy of ctx with metadata merged in, preserving
// TraceID and immutability of the receiver (spec.md §3: "Contexts are
// immutable once observed; enrichment produces a new context tagged with
// the same trace id").
func (c *CognitiveContext) Enrich(fn func(*ContextMetadata)) *CognitiveContext {
	out := *c
	fn(&out.Metadata)
	return &out
}

// Canonical implements Canonical.
func (c *CognitiveContext) Canonical() ([]byte, error) {
	return MarshalCanonical(struct {
		TraceID  string
		Text     string
		Metadata ContextMetadata
	}{c.TraceID, c.Text, c.Metadata})
}
