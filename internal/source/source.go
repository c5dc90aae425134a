// Package source defines the INGEST boundary (SPEC_FULL.md §4.7): sources
// are iterators of raw triple batches driving INGEST, never consulted by
// the hot path directly. Concrete adapters wrap the teacher's external
// collaborators — an in-memory feed for tests, an eBPF kernel-tap reader,
// and a Pub/Sub subscription.
package source

import (
	"context"

	"github.com/knhk/core/internal/triple"
)

// Batch is one unit of work INGEST hands to TRANSFORM.
type Batch struct {
	Events   []triple.RawEvent
	TenantID string
}

// Source is the external collaborator INGEST drains. Next blocks until a
// batch is available, the source is exhausted (io.EOF-style via ok=false),
// or ctx is cancelled.
type Source interface {
	Next(ctx context.Context) (Batch, bool, error)
	Close() error
}

// MemorySource replays a fixed, pre-loaded sequence of batches — the
// in-memory/test source SPEC_FULL.md §4.7 calls for.
type MemorySource struct {
	batches []Batch
	pos     int
}

// NewMemorySource constructs a Source over a fixed slice of batches.
func NewMemorySource(batches []Batch) *MemorySource {
	return &MemorySource{batches: batches}
}

func (s *MemorySource) Next(ctx context.Context) (Batch, bool, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, false, err
	}
	if s.pos >= len(s.batches) {
		return Batch{}, false, nil
	}
	b := s.batches[s.pos]
	s.pos++
	return b, true, nil
}

func (s *MemorySource) Close() error { return nil }
