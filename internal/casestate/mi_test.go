package casestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/pattern"
)

func TestMISyncAllRequiresEveryInstance(t *testing.T) {
	g := NewMI("case-1", 3, 0, pattern.SyncAll)

	synced, err := g.Complete(0)
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, Running, g.Status())

	synced, _ = g.Complete(1)
	assert.False(t, synced)
	synced, _ = g.Complete(2)
	assert.True(t, synced)
	assert.Equal(t, Synced, g.Status())
}

func TestMIBoundExceededOnOutOfRangeInstance(t *testing.T) {
	g := NewMI("case-1", 2, 0, pattern.SyncAll)
	_, err := g.Complete(5)
	require.Error(t, err)
}

func TestMICancelPreventsFurtherSync(t *testing.T) {
	g := NewMI("case-1", 2, 0, pattern.SyncAll)
	g.Cancel()
	assert.Equal(t, Cancelled, g.Status())

	synced, err := g.Complete(0)
	require.NoError(t, err)
	assert.False(t, synced)
}

func TestMINOfMFiresAtThreshold(t *testing.T) {
	g := NewMI("case-1", 5, 2, pattern.SyncNOfM)
	synced, _ := g.Complete(0)
	assert.False(t, synced)
	synced, _ = g.Complete(1)
	assert.True(t, synced)
	assert.Equal(t, 2, g.CompletedCount())
}

func TestMIDuplicateCompletionIsIdempotent(t *testing.T) {
	g := NewMI("case-1", 3, 0, pattern.SyncAll)
	_, _ = g.Complete(0)
	synced, err := g.Complete(0)
	require.NoError(t, err)
	assert.False(t, synced)
	assert.Equal(t, 1, g.CompletedCount())
}
