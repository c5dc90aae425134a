// Package grpc implements the control plane's streaming gRPC surface
// (SPEC_FULL.md §6): submit one case-driving event, stream back every
// receipt the scheduler produces for it.
//
// Grounded on the teacher's internal/arbitrator/stream_handler.go
// Negotiate loop: a single Recv-equivalent request kicks off work, and the
// handler's own forwarding loop relays results onto the stream; the
// scheduler's tick clock runs in its own goroutines and is not blocked by it.
package grpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/knhk/core/internal/control/grpc/pb"
	"github.com/knhk/core/internal/hookregistry"
	"github.com/knhk/core/internal/pattern"
	"github.com/knhk/core/internal/pipeline"
	"github.com/knhk/core/internal/receipt"
	"github.com/knhk/core/internal/scheduler"
	"github.com/knhk/core/internal/source"
	"github.com/knhk/core/internal/triple"

	"github.com/google/uuid"
)

// ReceiptStore is the read side for QueryReceipts — mirrors
// internal/control/rest.ReceiptStore so the two surfaces can share a
// backing implementation.
type ReceiptStore interface {
	Recent(limit int) []receipt.Receipt
}

// Server implements pb.CoreControlServer over a live Pipeline/Scheduler
// pair, with the same registry/chain/receipt-store collaborators
// internal/control/rest.Server uses for its non-streaming operations.
type Server struct {
	pb.UnimplementedCoreControlServer

	registry  *hookregistry.Registry
	pipe      *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	chain     *receipt.Chain
	receipts  ReceiptStore
	timeout   time.Duration
}

// New constructs a Server. timeout bounds how long DriveCase waits for a
// receipt to arrive before ending the stream normally (returning nil); it defaults to 5s
// if zero. chain and receipts may be nil, in which case QueryCycleRoot and
// QueryReceipts report unavailable/empty results respectively.
func New(registry *hookregistry.Registry, pipe *pipeline.Pipeline, sched *scheduler.Scheduler, chain *receipt.Chain, receipts ReceiptStore, timeout time.Duration) *Server {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Server{registry: registry, pipe: pipe, scheduler: sched, chain: chain, receipts: receipts, timeout: timeout}
}

// DriveCase feeds one event through TRANSFORM/LOAD and streams back every
// receipt the scheduler emits until the stream's context is cancelled or
// the configured timeout elapses without a new receipt.
func (s *Server) DriveCase(req *pb.DriveCaseRequest, stream pb.CoreControl_DriveCaseServer) error {
	batch := source.Batch{
		TenantID: req.TenantID,
		Events: []triple.RawEvent{{
			Subject:   req.Subject,
			Predicate: req.Predicate,
			Object:    req.Object,
			TenantID:  req.TenantID,
		}},
	}

	canonical, rejected := s.pipe.Transform(batch)
	if rejected > 0 {
		return fmt.Errorf("drive case %s: event failed ontology validation", req.CaseID)
	}
	if err := s.pipe.Load(0, canonical); err != nil {
		return fmt.Errorf("drive case %s: load: %w", req.CaseID, err)
	}

	ctx := stream.Context()
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	for {
		select {
		case rec, ok := <-s.scheduler.Receipts():
			if !ok {
				return nil
			}
			update := &pb.DriveCaseUpdate{
				ReceiptID:  hex.EncodeToString(rec.ReceiptID[:]),
				CycleID:    rec.CycleID,
				Parked:     rec.Parked,
				ErrorTag:   rec.ErrorTag,
				PatternTag: uint8(rec.PatternTag),
			}
			if err := stream.Send(update); err != nil {
				return err
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(s.timeout)
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RegisterSpec registers a spec bag atomically, the gRPC equivalent of
// rest.Server.handleRegisterSpecs.
func (s *Server) RegisterSpec(ctx context.Context, req *pb.RegisterSpecRequest) (*pb.RegisterSpecResponse, error) {
	tuples := make([]hookregistry.SpecTuple, len(req.Tuples))
	for i, t := range req.Tuples {
		tuples[i] = hookregistry.SpecTuple{
			Predicate:  t.Predicate,
			Kind:       pattern.Tag(t.Kind),
			Invariants: t.Invariants,
		}
	}
	ids, err := s.registry.RegisterBag(tuples)
	if err != nil {
		return nil, err
	}
	return &pb.RegisterSpecResponse{HookIDs: ids}, nil
}

// CreateCase allocates a new case identifier, the gRPC equivalent of
// rest.Server.handleCreateCase.
func (s *Server) CreateCase(ctx context.Context, req *pb.CreateCaseRequest) (*pb.CreateCaseResponse, error) {
	return &pb.CreateCaseResponse{CaseID: uuid.NewString()}, nil
}

// QueryReceipts returns the most recent receipts from the backing store, or
// an empty list if none is configured.
func (s *Server) QueryReceipts(ctx context.Context, req *pb.QueryReceiptsRequest) (*pb.QueryReceiptsResponse, error) {
	if s.receipts == nil {
		return &pb.QueryReceiptsResponse{}, nil
	}
	limit := int(req.Limit)
	if limit <= 0 {
		limit = 100
	}
	recent := s.receipts.Recent(limit)
	wire := make([]*pb.ReceiptWire, len(recent))
	for i, r := range recent {
		wire[i] = &pb.ReceiptWire{
			ReceiptID:    hex.EncodeToString(r.ReceiptID[:]),
			CycleID:      r.CycleID,
			ShardID:      r.ShardID,
			Parked:       r.Parked,
			ErrorTag:     r.ErrorTag,
			PatternTag:   uint8(r.PatternTag),
			TickSpan:     r.TickSpan,
			LanesTouched: r.LanesTouched,
		}
	}
	return &pb.QueryReceiptsResponse{Receipts: wire}, nil
}

// QueryCycleRoot returns the chain's current head, the gRPC equivalent of
// rest.Server.handleCycleRoot.
func (s *Server) QueryCycleRoot(ctx context.Context, req *pb.QueryCycleRootRequest) (*pb.QueryCycleRootResponse, error) {
	if s.chain == nil {
		return nil, fmt.Errorf("query cycle root %s: chain not configured", req.CycleID)
	}
	head := s.chain.Head()
	return &pb.QueryCycleRootResponse{CycleID: req.CycleID, Head: hex.EncodeToString(head[:])}, nil
}

// ensure interface compatibility
var _ pb.CoreControlServer = (*Server)(nil)
