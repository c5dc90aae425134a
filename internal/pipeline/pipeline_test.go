package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/sink"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/triple"
)

type nopWarm struct{}

func (nopWarm) Park(fiber.ParkedRecord) {}

func TestPipelineIngestLoadReflexEmitRoundTrip(t *testing.T) {
	registry := hookregistry.New()
	predicate := triple.Fingerprint("urn:predicate:seq")
	_, err := registry.Register(predicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{})
	require.NoError(t, err)

	delta := ring.New(4)
	asserted := ring.New(4)

	var tick uint64
	meter := func() uint64 { return tick }

	f := fiber.New(0, delta, asserted, registry, muengine.New(), nopWarm{}, meter)

	src := source.NewMemorySource([]source.Batch{{
		TenantID: "tenant-a",
		Events: []triple.RawEvent{
			{Subject: "urn:subject:1", Predicate: "urn:predicate:seq", Object: "urn:object:1", TenantID: "tenant-a"},
		},
	}})

	memSink := sink.NewMemorySink()

	p := New(Config{
		Sources: []source.Source{src},
		Shards:  []Shard{{Delta: delta, Asserted: asserted}},
		Sinks:   []sink.Sink{memSink},
		Chain:   receipt.NewChain(),
		IngressTick: func() uint64 { return tick },
	})

	require.NoError(t, p.RunIngest(context.Background(), 1))

	rec, err := f.Tick(tick)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.False(t, rec.Parked)

	require.NoError(t, p.RunEmit(context.Background(), tick, []receipt.Receipt{*rec}, "tenant-a"))

	assert.Equal(t, 1, memSink.Count())
	got := memSink.Records()[0]
	assert.Equal(t, "tenant-a", got.TenantID)
	assert.Len(t, got.Triples, 1)
}

func TestPipelineTransformRejectsInvalidTriples(t *testing.T) {
	allowed := triple.Fingerprint("urn:predicate:allowed")

	p := New(Config{
		Validator: rejectAllBut(allowed),
	})

	batch := source.Batch{Events: []triple.RawEvent{
		{Subject: "s", Predicate: "urn:predicate:allowed", Object: "o"},
		{Subject: "s", Predicate: "urn:predicate:other", Object: "o"},
	}}

	triples, rejected := p.Transform(batch)
	assert.Len(t, triples, 1)
	assert.Equal(t, 1, rejected)
}

func TestShardForIsStablePerPredicate(t *testing.T) {
	p1 := triple.Fingerprint("urn:a")
	p2 := triple.Fingerprint("urn:b")

	assert.Equal(t, ShardFor(p1, 4), ShardFor(p1, 4))
	assert.Less(t, ShardFor(p1, 4), uint32(4))
	assert.Less(t, ShardFor(p2, 4), uint32(4))
}

type rejectAllBut uint64

func (r rejectAllBut) Validate(t triple.Triple) bool { return t.P == uint64(r) }
