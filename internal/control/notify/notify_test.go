package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/receipt"
)

func TestNotifyParkedAndViolationDoNotPanicWithoutConsoles(t *testing.T) {
	n := New()
	defer n.Close()

	assert.NotPanics(t, func() {
		n.NotifyParked(fiber.ParkedRecord{Reason: "timeout", ShardID: 1, Tick: 4, CycleID: 9})
	})
	assert.NotPanics(t, func() {
		n.NotifyViolation(receipt.Receipt{ErrorTag: "PatternBudgetExceeded", CycleID: 9, ShardID: 1})
	})
	assert.NotPanics(t, func() {
		n.NotifyViolation(receipt.Receipt{})
	})
}

func TestWatchReturnsWhenChannelCloses(t *testing.T) {
	n := New()
	defer n.Close()

	ch := make(chan *receipt.Receipt)
	done := make(chan struct{})
	finished := make(chan struct{})

	go func() {
		n.Watch(ch, done)
		close(finished)
	}()

	close(ch)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return after channel close")
	}
}
