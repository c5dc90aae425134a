// Package warmpath services work a fiber could not finish inside the
// Chatman Constant (SPEC_FULL.md §4.4, §5: "the core never awaits it").
// Parked records are handed off to a background container pool that
// re-runs the stalled computation outside the tick budget; if the pool is
// saturated, records overflow onto a durable task queue instead of being
// dropped.
//
// Grounded on the teacher's internal/ghostpool/pool_manager.go PoolManager:
// the same available/active container bookkeeping and
// acquire-scrub-release lifecycle, generalized from "sandbox a Ghost
// session" to "resolve one parked workflow run out of band".
package warmpath

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/docker/docker/client"

	"github.com/knhk/core/internal/fiber"
)

// Worker is a recyclable container used to resolve one parked record.
type Worker struct {
	ID       string
	LastUsed time.Time
}

// Resolver performs the actual out-of-band work for a parked record inside
// a checked-out Worker. Pool never interprets the record itself — that is
// domain logic the caller supplies.
type Resolver func(ctx context.Context, w *Worker, rec fiber.ParkedRecord) error

// Overflow is where records go when the container pool is saturated — the
// Cloud Tasks queue in production, an in-memory slice in tests.
type Overflow interface {
	Enqueue(ctx context.Context, rec fiber.ParkedRecord) error
}

// Pool implements fiber.WarmPath over a fixed container inventory.
type Pool struct {
	mu        sync.Mutex
	available chan *Worker
	active    map[string]*Worker

	resolver Resolver
	overflow Overflow
	docker   *client.Client

	logger *slog.Logger
}

// NewPool pre-allocates capacity Workers and starts servicing parked
// records with resolver. overflow may be nil, in which case a saturated
// pool simply drops the record with a logged warning — acceptable only
// for tests, never for a production deployment (§5 calls for an overflow
// queue).
func NewPool(capacity int, resolver Resolver, overflow Overflow) *Pool {
	p := &Pool{
		available: make(chan *Worker, capacity),
		active:    make(map[string]*Worker, capacity),
		resolver:  resolver,
		overflow:  overflow,
		logger:    slog.Default().With("component", "warmpath"),
	}
	for i := 0; i < capacity; i++ {
		p.available <- &Worker{ID: fmt.Sprintf("warm-%d", i)}
	}
	return p
}

// WithDockerClient attaches a real Docker client used by resolvers that
// need to exec into a container-backed worker. Optional: the pool itself
// never calls Docker directly, only resolver does.
func (p *Pool) WithDockerClient(c *client.Client) *Pool {
	p.docker = c
	return p
}

// Docker returns the attached client, or nil if none was configured.
func (p *Pool) Docker() *client.Client { return p.docker }

// Park implements fiber.WarmPath. It never blocks the caller: if a worker
// is immediately available it's checked out and serviced in a new
// goroutine; otherwise the record is sent to the overflow queue (or
// dropped, if none is configured).
func (p *Pool) Park(rec fiber.ParkedRecord) {
	select {
	case w := <-p.available:
		p.mu.Lock()
		p.active[w.ID] = w
		p.mu.Unlock()
		w.LastUsed = time.Now()
		go p.service(w, rec)
	default:
		p.spillToOverflow(rec)
	}
}

func (p *Pool) service(w *Worker, rec fiber.ParkedRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.resolver(ctx, w, rec); err != nil {
		p.logger.Warn("warm path resolver failed", "worker", w.ID, "reason", rec.Reason, "error", err)
	}

	p.mu.Lock()
	delete(p.active, w.ID)
	p.mu.Unlock()
	p.available <- w
}

func (p *Pool) spillToOverflow(rec fiber.ParkedRecord) {
	if p.overflow == nil {
		p.logger.Warn("warm pool saturated and no overflow configured, dropping parked record",
			"reason", rec.Reason, "shard", rec.ShardID, "tick", rec.Tick)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.overflow.Enqueue(ctx, rec); err != nil {
		p.logger.Error("overflow enqueue failed, dropping parked record", "error", err, "reason", rec.Reason)
	}
}

// Stats reports checked-out vs idle worker counts for telemetry.
func (p *Pool) Stats() (checkedOut, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active), len(p.available)
}
