package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/triple"
)

type nopWarm struct{}

func (nopWarm) Park(fiber.ParkedRecord) {}

func newTestShard(t *testing.T, id uint32) (*fiber.Fiber, *hookregistry.Registry) {
	t.Helper()
	reg := hookregistry.New()
	engine := muengine.New()
	delta := ring.New(4)
	asserted := ring.New(4)
	tick := uint64(0)
	meter := func() uint64 { tick++; return tick }
	return fiber.New(id, delta, asserted, reg, engine, nopWarm{}, meter), reg
}

func TestSchedulerWakesEachShardEveryBeat(t *testing.T) {
	f0, reg0 := newTestShard(t, 0)
	f1, reg1 := newTestShard(t, 1)

	predicate := uint64(100)
	require.NoError(t, must(reg0.Register(predicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{})))
	require.NoError(t, must(reg1.Register(predicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{})))

	run := []triple.Triple{{S: 1, P: predicate, O: 2}}
	require.NoError(t, f0.Delta.Enqueue(0, 1, run))
	require.NoError(t, f1.Delta.Enqueue(0, 1, run))

	s := New([]*fiber.Fiber{f0, f1}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Start(ctx)

	var got []interface{}
	deadline := time.After(500 * time.Millisecond)
	for len(got) < 2 {
		select {
		case rec := <-s.Receipts():
			if rec != nil {
				got = append(got, rec)
			}
		case <-deadline:
			t.Fatal("timed out waiting for both shards to produce a receipt")
		}
	}
	cancel()
	assert.Len(t, got, 2)
}

func TestSchedulerStopDrainsPendingSlots(t *testing.T) {
	f0, reg0 := newTestShard(t, 0)
	predicate := uint64(55)
	require.NoError(t, must(reg0.Register(predicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{})))

	run := []triple.Triple{{S: 1, P: predicate, O: 2}}
	// Enqueue into a slot far enough in the future that the beat clock,
	// running briefly, never naturally reaches it — only the drain pass
	// on Stop should pick it up.
	require.NoError(t, f0.Delta.Enqueue(3, 1, run))

	s := New([]*fiber.Fiber{f0}, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	s.Stop()
	<-done

	var drained bool
	for rec := range s.Receipts() {
		if rec != nil {
			drained = true
		}
	}
	assert.True(t, drained, "the slot enqueued ahead of the clock must be drained on Stop")
}

func must(id string, err error) error { return err }
