package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"

	"github.com/knhk/core/internal/control/grpc/pb"
	"github.com/knhk/core/internal/fiber"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/muengine"
	"github.com/knhk/core/internal/ontology"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/ring"
	"github.com/knhk/core/internal/scheduler"
	"github.com/knhk/core/internal/triple"
)

type nopWarm struct{}

func (nopWarm) Park(fiber.ParkedRecord) {}

// testStream is a minimal grpc.ServerStream fake recording every update
// DriveCase sends, so the scheduler/pipeline wiring can be exercised
// without a real gRPC transport.
type testStream struct {
	ctx  context.Context
	sent []*pb.DriveCaseUpdate
}

func (s *testStream) Send(u *pb.DriveCaseUpdate) error {
	s.sent = append(s.sent, u)
	return nil
}
func (s *testStream) Context() context.Context     { return s.ctx }
func (s *testStream) SetHeader(metadata.MD) error  { return nil }
func (s *testStream) SendHeader(metadata.MD) error { return nil }
func (s *testStream) SetTrailer(metadata.MD)       {}
func (s *testStream) SendMsg(m interface{}) error  { return nil }
func (s *testStream) RecvMsg(m interface{}) error  { return nil }

func TestDriveCaseStreamsReceiptUntilTimeout(t *testing.T) {
	registry := hookregistry.New()
	predicate := triple.Fingerprint("urn:predicate:drive")
	_, err := registry.Register(predicate, pattern.Sequence, nil, nil, nil, hookregistry.RegisterOptions{})
	require.NoError(t, err)

	delta := ring.New(4)
	asserted := ring.New(4)
	var tick uint64
	f := fiber.New(0, delta, asserted, registry, muengine.New(), nopWarm{}, func() uint64 { return tick })

	sched := scheduler.New([]*fiber.Fiber{f}, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Start(ctx)
	defer sched.Stop()

	pipe := pipeline.New(pipeline.Config{
		Validator: ontology.AllowAll{},
		Shards:    []pipeline.Shard{{Delta: delta, Asserted: asserted}},
	})

	srv := New(registry, pipe, sched, nil, nil, 300*time.Millisecond)

	req := &pb.DriveCaseRequest{
		CaseID:    "case-1",
		TenantID:  "tenant-a",
		Subject:   "urn:subject:1",
		Predicate: "urn:predicate:drive",
		Object:    "urn:object:1",
	}

	stream := &testStream{ctx: context.Background()}
	err = srv.DriveCase(req, stream)
	require.NoError(t, err)
	assert.NotEmpty(t, stream.sent)
}

func TestRegisterSpecReturnsHookIDs(t *testing.T) {
	srv := New(hookregistry.New(), nil, nil, nil, nil, 0)

	resp, err := srv.RegisterSpec(context.Background(), &pb.RegisterSpecRequest{
		Tuples: []*pb.SpecTupleWire{{Predicate: 42, Kind: 0}},
	})
	require.NoError(t, err)
	assert.Len(t, resp.HookIDs, 1)
}

func TestCreateCaseAllocatesAnID(t *testing.T) {
	srv := New(hookregistry.New(), nil, nil, nil, nil, 0)

	resp, err := srv.CreateCase(context.Background(), &pb.CreateCaseRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.CaseID)
}

func TestQueryReceiptsWithoutStoreReturnsEmpty(t *testing.T) {
	srv := New(hookregistry.New(), nil, nil, nil, nil, 0)

	resp, err := srv.QueryReceipts(context.Background(), &pb.QueryReceiptsRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Receipts)
}

func TestQueryCycleRootReturnsCurrentHead(t *testing.T) {
	chain := receipt.NewChain()
	srv := New(hookregistry.New(), nil, nil, chain, nil, 0)

	resp, err := srv.QueryCycleRoot(context.Background(), &pb.QueryCycleRootRequest{CycleID: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.CycleID)
	assert.NotEmpty(t, resp.Head)
}

func TestQueryCycleRootWithoutChainErrors(t *testing.T) {
	srv := New(hookregistry.New(), nil, nil, nil, nil, 0)

	_, err := srv.QueryCycleRoot(context.Background(), &pb.QueryCycleRootRequest{CycleID: "abc"})
	assert.Error(t, err)
}
