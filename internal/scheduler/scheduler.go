// Package scheduler implements the Beat Scheduler: a shared tick clock that
// wakes every shard's fiber on each beat, each through its own channel, so
// each shard stays single-threaded-cooperative while shards run
// concurrently with one another (SPEC_FULL.md §4.5).
//
// Grounded on the teacher's internal/ghostpool/pool_manager.go maintainPool
// ticker loop for the beat clock's cadence, and internal/fabric/hub.go's
// per-destination delivery idiom (one channel per addressee, not a single
// global broadcast) for "signal the fiber for the matching shard".
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/receipt"
)

// EpochBeats is the number of beats in one epoch — the Chatman Constant
// again (§4.5). The scheduler uses it only to size the receipt channel to
// one epoch's worth of receipts per shard.
const EpochBeats = 8

// shardWorker pairs one fiber with its private wake channel.
type shardWorker struct {
	f    *fiber.Fiber
	wake chan struct{}
}

// Scheduler drives the tick clock for a fixed set of shards.
type Scheduler struct {
	beat     time.Duration
	workers  []*shardWorker
	tick     atomic.Uint64
	receipts chan *receipt.Receipt
	logger   *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Scheduler over fibers, beating every beat.
func New(fibers []*fiber.Fiber, beat time.Duration) *Scheduler {
	s := &Scheduler{
		beat:     beat,
		receipts: make(chan *receipt.Receipt, len(fibers)*EpochBeats),
		logger:   slog.Default().With("component", "scheduler"),
		stopCh:   make(chan struct{}),
	}
	for _, f := range fibers {
		s.workers = append(s.workers, &shardWorker{f: f, wake: make(chan struct{}, 1)})
	}
	return s
}

// Receipts returns the channel every shard's per-tick receipt is delivered
// on. It is closed once Stop has finished draining. The caller (EMIT) is
// responsible for consuming it.
func (s *Scheduler) Receipts() <-chan *receipt.Receipt { return s.receipts }

// Tick returns the scheduler's current tick count.
func (s *Scheduler) Tick() uint64 { return s.tick.Load() }

// Start launches one goroutine per shard plus the beat clock itself, and
// blocks until ctx is cancelled or Stop is called from another goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	for _, w := range s.workers {
		s.wg.Add(1)
		go s.runShard(ctx, w)
	}
	s.runClock(ctx)
}

// runClock advances the tick counter every beat and wakes every shard. A
// shard's wake channel is buffered 1; a redundant wake while one is already
// pending is simply dropped, since the shard will observe the latest tick
// count on its next read regardless (§4.5: the scheduler, not the shard,
// owns tick identity).
func (s *Scheduler) runClock(ctx context.Context) {
	ticker := time.NewTicker(s.beat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick.Add(1)
			for _, w := range s.workers {
				select {
				case w.wake <- struct{}{}:
				default:
				}
			}
		}
	}
}

// runShard is one shard's cooperative loop: wait for a beat, run exactly
// one Tick, forward any receipt, repeat. A shard never runs more than one
// Tick concurrently with itself (§4.5: "single-threaded cooperative within
// an epoch").
func (s *Scheduler) runShard(ctx context.Context, w *shardWorker) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-w.wake:
			rec, err := w.f.Tick(s.tick.Load())
			if err != nil {
				s.logger.Error("fiber tick fatal", "shard", w.f.ShardID, "error", err)
				continue
			}
			if rec != nil {
				select {
				case s.receipts <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Stop halts the beat clock, waits for every shard goroutine to exit, then
// drains each shard's Δ-ring before closing the receipt channel — ensuring
// every accepted Δ has produced a receipt or a parked-work record before
// the scheduler reports itself stopped (§4.5: "Shutdown drains Ready slots
// before stopping").
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.drainAll()
	close(s.receipts)
}

// drainAll runs each shard, single-threaded, over every slot index in its
// ring once more. By this point no shard goroutine is still running, so it
// is safe for Stop's caller to drive Tick directly rather than through the
// wake channel.
func (s *Scheduler) drainAll() {
	base := s.tick.Load()
	for _, w := range s.workers {
		depth := uint64(w.f.Delta.Depth())
		for i := uint64(0); i < depth; i++ {
			rec, err := w.f.Tick(base + i)
			if err != nil {
				s.logger.Error("drain tick fatal", "shard", w.f.ShardID, "error", err)
				continue
			}
			if rec == nil {
				continue
			}
			select {
			case s.receipts <- rec:
			default:
				s.logger.Warn("receipt dropped during drain: channel full", "shard", w.f.ShardID)
			}
		}
	}
}
