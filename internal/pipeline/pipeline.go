// Package pipeline wires the five streaming stages — INGEST, TRANSFORM,
// LOAD, REFLEX, EMIT — into a single runnable orchestrator (SPEC_FULL.md
// §4.7). INGEST/TRANSFORM/EMIT are plain goroutine loops; LOAD/REFLEX are
// the hot path and never leave the fiber/ring/scheduler machinery those
// packages already define.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knhk/core/internal/ontology"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/scheduler"
	"github.com/knhk/core/internal/sink"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/triple"
)

// ShardFor maps a predicate fingerprint to a shard index. Sharding by
// predicate keeps every hook's traffic single-threaded through one fiber,
// matching §4.4's "disjoint partition of predicates" requirement.
func ShardFor(predicate uint64, numShards uint32) uint32 {
	return uint32(predicate % uint64(numShards))
}

// Shard is one fiber's slice of the pipeline: its Δ-ring (LOAD's write
// target) and A-ring (EMIT's read source).
type Shard struct {
	Delta    *ring.Ring
	Asserted *ring.Ring
}

// Pipeline owns the full stage set and the shared collaborators LOAD/EMIT
// consult: the ontology validator, the per-shard rings, the chain, and the
// configured sinks.
type Pipeline struct {
	Sources   []source.Source
	Validator ontology.Validator
	Shards    []Shard
	Scheduler *scheduler.Scheduler
	Sinks     []sink.Sink
	Chain     *receipt.Chain

	logger *slog.Logger

	ingressTick func() uint64
}

// Config bundles the collaborators needed to construct a Pipeline.
type Config struct {
	Sources     []source.Source
	Validator   ontology.Validator
	Shards      []Shard
	Scheduler   *scheduler.Scheduler
	Sinks       []sink.Sink
	Chain       *receipt.Chain
	IngressTick func() uint64 // tick to stamp newly LOADed Δ-slots with
}

// New constructs a Pipeline from its collaborators. Validator defaults to
// ontology.AllowAll when nil.
func New(cfg Config) *Pipeline {
	v := cfg.Validator
	if v == nil {
		v = ontology.AllowAll{}
	}
	return &Pipeline{
		Sources:     cfg.Sources,
		Validator:   v,
		Shards:      cfg.Shards,
		Scheduler:   cfg.Scheduler,
		Sinks:       cfg.Sinks,
		Chain:       cfg.Chain,
		logger:      slog.Default().With("component", "pipeline"),
		ingressTick: cfg.IngressTick,
	}
}

// RunIngest drains every source into TRANSFORM/LOAD until ctx is cancelled
// or every source is exhausted. Not hot-path: it may block, allocate, and
// retry freely.
func (p *Pipeline) RunIngest(ctx context.Context, cycleID uint64) error {
	for _, src := range p.Sources {
		for {
			batch, ok, err := src.Next(ctx)
			if err != nil {
				return fmt.Errorf("pipeline: ingest: %w", err)
			}
			if !ok {
				break
			}
			triples, rejected := p.Transform(batch)
			if rejected > 0 {
				p.logger.Warn("transform rejected malformed events", "count", rejected, "tenant", batch.TenantID)
			}
			if err := p.Load(cycleID, triples); err != nil {
				return fmt.Errorf("pipeline: load: %w", err)
			}
		}
	}
	return nil
}

// Transform fingerprints and validates one batch's raw events, returning
// the canonical triples that passed the ontology check and a count of
// rejects.
func (p *Pipeline) Transform(batch source.Batch) ([]triple.Triple, int) {
	out := make([]triple.Triple, 0, len(batch.Events))
	rejected := 0
	for _, ev := range batch.Events {
		t := triple.Canonicalize(ev)
		if !p.Validator.Validate(t) {
			rejected++
			continue
		}
		out = append(out, t)
	}
	return out, rejected
}

// Load groups canonical triples by predicate into runs of at most K lanes
// and enqueues each run into the owning shard's Δ-ring at the current
// ingress tick. Hot-path per §4.7, but callable outside a fiber's own tick
// since it only ever writes, never dispatches a kernel.
func (p *Pipeline) Load(cycleID uint64, triples []triple.Triple) error {
	if len(p.Shards) == 0 {
		return fmt.Errorf("pipeline: load: no shards configured")
	}
	byPredicate := make(map[uint64][]triple.Triple)
	order := make([]uint64, 0, len(triples))
	for _, t := range triples {
		if _, seen := byPredicate[t.P]; !seen {
			order = append(order, t.P)
		}
		byPredicate[t.P] = append(byPredicate[t.P], t)
	}

	tick := uint64(0)
	if p.ingressTick != nil {
		tick = p.ingressTick()
	}

	for _, predicate := range order {
		run := byPredicate[predicate]
		for len(run) > 0 {
			n := len(run)
			if n > pattern.MaxLanes {
				n = pattern.MaxLanes
			}
			chunk := run[:n]
			run = run[n:]

			shardIdx := ShardFor(predicate, uint32(len(p.Shards)))
			if err := p.Shards[shardIdx].Delta.Enqueue(tick, cycleID, chunk); err != nil {
				return fmt.Errorf("pipeline: load: shard %d: %w", shardIdx, err)
			}
		}
	}
	return nil
}

// RunEmit drains every shard's A-ring at tick, forwarding each run to every
// configured sink and folding the tick's receipts into the chain. Not
// hot-path: sinks may be slow external systems.
func (p *Pipeline) RunEmit(ctx context.Context, tick uint64, receipts []receipt.Receipt, tenantID string) error {
	for i := range p.Shards {
		slot, ok := p.Shards[i].Asserted.Dequeue(tick)
		if !ok {
			continue
		}
		run := slot.Triples()
		rec := sink.Record{Triples: run, TenantID: tenantID}
		if i < len(receipts) {
			r := receipts[i]
			rec.Receipt = &r
		}
		for _, s := range p.Sinks {
			if err := s.Write(ctx, rec); err != nil {
				p.logger.Error("sink write failed", "error", err)
			}
		}
		p.Shards[i].Asserted.Release(tick)
	}
	if p.Chain != nil && len(receipts) > 0 {
		p.Chain.Advance(receipts)
	}
	return nil
}

// Close shuts down every source and sink.
func (p *Pipeline) Close() error {
	var firstErr error
	for _, s := range p.Sources {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, s := range p.Sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
