// Package sink defines the EMIT boundary (SPEC_FULL.md §4.7): sinks are the
// mirror image of internal/source — external collaborators that accept
// finished assertions/receipts flowing out of the A-ring, never consulted by
// the hot path directly.
package sink

import (
	"context"
	"sync"

	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/triple"
)

// Record is one emitted unit: the asserted triples plus the receipt the
// cycle produced for them.
type Record struct {
	Triples  []triple.Triple
	Receipt  *receipt.Receipt
	TenantID string
}

// Sink is the external collaborator EMIT writes to. Write must not block
// the tick budget; implementations that talk to slow external systems
// should buffer internally and apply backpressure through ctx.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// MemorySink accumulates records in-process — the in-memory/test sink
// SPEC_FULL.md §4.7 calls for, mirroring source.MemorySource.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Records returns a snapshot of everything written so far.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// Count reports how many records have been written.
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
