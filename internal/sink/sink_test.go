package sink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/triple"
)

func TestMemorySinkAccumulatesRecords(t *testing.T) {
	s := NewMemorySink()
	rec := Record{
		Triples:  []triple.Triple{{S: 1, P: 2, O: 3}},
		Receipt:  &receipt.Receipt{Parked: false},
		TenantID: "tenant-a",
	}
	require.NoError(t, s.Write(context.Background(), rec))
	require.NoError(t, s.Write(context.Background(), rec))

	assert.Equal(t, 2, s.Count())
	got := s.Records()
	assert.Equal(t, "tenant-a", got[0].TenantID)
	assert.Len(t, got[0].Triples, 1)
}

func TestMemorySinkRespectsCancelledContext(t *testing.T) {
	s := NewMemorySink()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Write(ctx, Record{})
	assert.Error(t, err)
	assert.Equal(t, 0, s.Count())
}
