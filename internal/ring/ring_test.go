package ring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/errs"
	"github.com/knhk/core/internal/triple"
)

func run(n int) []triple.Triple {
	out := make([]triple.Triple, n)
	for i := range out {
		out[i] = triple.Triple{S: uint64(i), P: uint64(i + 1), O: uint64(i + 2)}
	}
	return out
}

func TestEnqueueDequeueRoundTrip(t *testing.T) {
	r := New(8)
	require.NoError(t, r.Enqueue(0, 42, run(3)))

	s, ok := r.Dequeue(0)
	require.True(t, ok)
	assert.Equal(t, uint64(42), s.CycleID)
	assert.Equal(t, 3, s.Len)
	assert.Equal(t, run(3), s.Triples())

	r.Release(0)
	assert.Equal(t, Empty, r.Slot(0).Load())
}

func TestDequeueNonReadyReturnsEmpty(t *testing.T) {
	r := New(8)
	_, ok := r.Dequeue(0)
	assert.False(t, ok)
}

func TestEnqueueIntoNonEmptySlotIsRingBusy(t *testing.T) {
	r := New(8)
	require.NoError(t, r.Enqueue(0, 1, run(1)))

	err := r.Enqueue(0, 2, run(1))
	require.Error(t, err)
	var ce *errs.CoreError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "RingBusy", ce.Tag)
}

func TestCommitOverLengthRunRejected(t *testing.T) {
	r := New(8)
	err := r.Enqueue(0, 1, run(9))
	require.Error(t, err)
	var ce *errs.CoreError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "RunOverlength", ce.Tag)

	// A failed commit leaves the slot stuck in Writing, not Empty — the
	// caller owns recovery (a fatal-shard condition in practice, since it
	// means a producer violated the K-lane contract after already winning
	// the Empty→Writing race).
	assert.Equal(t, Writing, r.Slot(0).Load())
}

func TestPendingCountNeverExceedsDepth(t *testing.T) {
	r := New(4)
	for tick := uint64(0); tick < 4; tick++ {
		require.NoError(t, r.Enqueue(tick, tick, run(1)))
	}
	assert.Equal(t, 4, r.PendingCount())
	assert.LessOrEqual(t, r.PendingCount(), r.Depth())

	err := r.Enqueue(4, 4, run(1)) // wraps to slot 0, still Ready
	require.Error(t, err)
	assert.Equal(t, 4, r.PendingCount())
}

func TestIndexWrapsModuloDepth(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Enqueue(0, 1, run(1)))
	err := r.Enqueue(4, 2, run(1))
	require.Error(t, err, "tick 4 maps to the same slot as tick 0")
}

func TestReleaseAllowsReuseOnNextWrap(t *testing.T) {
	r := New(4)
	require.NoError(t, r.Enqueue(0, 1, run(2)))
	s, ok := r.Dequeue(0)
	require.True(t, ok)
	_ = s
	r.Release(0)

	require.NoError(t, r.Enqueue(4, 2, run(1)))
	s, ok = r.Dequeue(4)
	require.True(t, ok)
	assert.Equal(t, uint64(2), s.CycleID)
}

func TestNewPanicsOnNonPowerOfTwoDepth(t *testing.T) {
	assert.Panics(t, func() { New(3) })
	assert.Panics(t, func() { New(0) })
}
