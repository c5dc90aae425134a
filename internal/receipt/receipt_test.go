package receipt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/pattern"
)

func sampleReceipt(id byte, tick uint32) Receipt {
	r := Receipt{CycleID: 1, ShardID: 2, HookFingerprint: 0xABCD, TickSpan: tick, LanesTouched: 1, PatternTag: pattern.Sequence}
	r.ReceiptID[0] = id
	return r
}

func TestReceiptMarshalRoundTrip(t *testing.T) {
	r := sampleReceipt(7, 3)
	r.ErrorTag = "BudgetViolation"
	r.Parked = true

	data := r.Marshal()
	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, r.ReceiptID, got.ReceiptID)
	assert.Equal(t, r.CycleID, got.CycleID)
	assert.Equal(t, r.ShardID, got.ShardID)
	assert.Equal(t, r.HookFingerprint, got.HookFingerprint)
	assert.Equal(t, r.TickSpan, got.TickSpan)
	assert.Equal(t, r.LanesTouched, got.LanesTouched)
	assert.Equal(t, r.PatternTag, got.PatternTag)
	assert.Equal(t, r.Parked, got.Parked)
	assert.Equal(t, r.ErrorTag, got.ErrorTag)
}

func TestUnmarshalTooShort(t *testing.T) {
	_, err := Unmarshal([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	a, b, c := sampleReceipt(1, 1), sampleReceipt(2, 2), sampleReceipt(3, 1)

	root1 := Merge([]Receipt{a, b, c})
	root2 := Merge([]Receipt{c, a, b})
	root3 := Merge([]Receipt{b, c, a})

	assert.Equal(t, root1, root2)
	assert.Equal(t, root1, root3)
}

func TestMergeIsIdempotentOnDuplicateIDs(t *testing.T) {
	a := sampleReceipt(1, 1)
	b := sampleReceipt(2, 2)

	rootOnce := Merge([]Receipt{a, b})
	rootDup := Merge([]Receipt{a, a, b})

	assert.Equal(t, rootOnce, rootDup)
}

func TestChainAdvanceIsDeterministicUnderReorder(t *testing.T) {
	receipts := []Receipt{sampleReceipt(1, 1), sampleReceipt(2, 1), sampleReceipt(3, 1)}
	reordered := []Receipt{receipts[2], receipts[0], receipts[1]}

	c1 := NewChain()
	head1 := c1.Advance(receipts)

	c2 := NewChain()
	head2 := c2.Advance(reordered)

	assert.Equal(t, head1, head2)
}

func TestChainAdvanceChainsAcrossCycles(t *testing.T) {
	c := NewChain()
	head1 := c.Advance([]Receipt{sampleReceipt(1, 1)})
	head2 := c.Advance([]Receipt{sampleReceipt(2, 1)})
	assert.NotEqual(t, head1, head2, "distinct cycles must produce distinct heads")

	// Replaying the same two cycles from genesis again reproduces both heads.
	replay := NewChain()
	replayHead1 := replay.Advance([]Receipt{sampleReceipt(1, 1)})
	replayHead2 := replay.Advance([]Receipt{sampleReceipt(2, 1)})
	assert.Equal(t, head1, replayHead1)
	assert.Equal(t, head2, replayHead2)
}

func TestChainRestoreSeedsHead(t *testing.T) {
	c1 := NewChain()
	head := c1.Advance([]Receipt{sampleReceipt(1, 1)})

	c2 := NewChain()
	c2.Restore(head)
	assert.Equal(t, head, c2.Head())
}
