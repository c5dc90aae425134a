// Package pb declares the control-plane's gRPC service surface by hand —
// the same hand-declared-types-instead-of-protoc approach the teacher uses
// in its own pb package, since this exercise does not run a protobuf
// compiler.
package pb

import (
	"context"

	"google.golang.org/grpc"
)

// DriveCaseRequest starts or continues a case, feeding one batch of raw
// events into INGEST.
type DriveCaseRequest struct {
	CaseID    string
	TenantID  string
	Subject   string
	Predicate string
	Object    string
}

// DriveCaseUpdate is one streamed update describing a receipt produced
// while driving a case: a cycle committed, parked, or hit a budget
// violation.
type DriveCaseUpdate struct {
	ReceiptID  string
	CycleID    uint64
	Parked     bool
	ErrorTag   string
	PatternTag uint8
}

// SpecTupleWire is one (predicate, kernel_kind, invariants, pattern?) entry
// of a spec bag submitted over RegisterSpec.
type SpecTupleWire struct {
	Predicate   uint64
	Kind        uint32
	Invariants  []string
	TickBudget  int32
	BranchCount int32
}

// RegisterSpecRequest submits a spec bag for atomic registration.
type RegisterSpecRequest struct {
	Tuples []*SpecTupleWire
}

// RegisterSpecResponse returns the hook id assigned to each registered
// tuple, in submission order.
type RegisterSpecResponse struct {
	HookIDs []string
}

// CreateCaseRequest allocates a new case identifier.
type CreateCaseRequest struct{}

// CreateCaseResponse carries the allocated case id.
type CreateCaseResponse struct {
	CaseID string
}

// QueryReceiptsRequest asks for the most recent receipts, bounded by Limit.
type QueryReceiptsRequest struct {
	Limit int32
}

// ReceiptWire is one receipt as returned over the wire.
type ReceiptWire struct {
	ReceiptID    string
	CycleID      uint64
	ShardID      uint32
	Parked       bool
	ErrorTag     string
	PatternTag   uint8
	TickSpan     uint32
	LanesTouched uint32
}

// QueryReceiptsResponse returns the matched receipts, newest first.
type QueryReceiptsResponse struct {
	Receipts []*ReceiptWire
}

// QueryCycleRootRequest asks for the current chain head. CycleID is echoed
// back in the response; it does not select a historical head.
type QueryCycleRootRequest struct {
	CycleID string
}

// QueryCycleRootResponse carries the hex-encoded chain head.
type QueryCycleRootResponse struct {
	CycleID string
	Head    string
}

// CoreControlServer is the control-plane service: register specs, allocate
// and drive cases, stream back receipts, and read back the receipt log and
// chain head.
type CoreControlServer interface {
	DriveCase(*DriveCaseRequest, CoreControl_DriveCaseServer) error
	RegisterSpec(context.Context, *RegisterSpecRequest) (*RegisterSpecResponse, error)
	CreateCase(context.Context, *CreateCaseRequest) (*CreateCaseResponse, error)
	QueryReceipts(context.Context, *QueryReceiptsRequest) (*QueryReceiptsResponse, error)
	QueryCycleRoot(context.Context, *QueryCycleRootRequest) (*QueryCycleRootResponse, error)
}

// UnimplementedCoreControlServer embeds into real implementations for
// forward-compatible method sets, mirroring grpc-gen's usual pattern.
type UnimplementedCoreControlServer struct{}

func (UnimplementedCoreControlServer) DriveCase(*DriveCaseRequest, CoreControl_DriveCaseServer) error {
	return nil
}

func (UnimplementedCoreControlServer) RegisterSpec(context.Context, *RegisterSpecRequest) (*RegisterSpecResponse, error) {
	return nil, nil
}

func (UnimplementedCoreControlServer) CreateCase(context.Context, *CreateCaseRequest) (*CreateCaseResponse, error) {
	return nil, nil
}

func (UnimplementedCoreControlServer) QueryReceipts(context.Context, *QueryReceiptsRequest) (*QueryReceiptsResponse, error) {
	return nil, nil
}

func (UnimplementedCoreControlServer) QueryCycleRoot(context.Context, *QueryCycleRootRequest) (*QueryCycleRootResponse, error) {
	return nil, nil
}

// CoreControl_DriveCaseServer is the server-side stream handle DriveCase
// writes updates to.
type CoreControl_DriveCaseServer interface {
	Send(*DriveCaseUpdate) error
	grpc.ServerStream
}

// CoreControlClient is the client stub a CLI/probe entrypoint drives.
type CoreControlClient interface {
	DriveCase(ctx context.Context, in *DriveCaseRequest, opts ...grpc.CallOption) (CoreControl_DriveCaseClient, error)
	RegisterSpec(ctx context.Context, in *RegisterSpecRequest, opts ...grpc.CallOption) (*RegisterSpecResponse, error)
	CreateCase(ctx context.Context, in *CreateCaseRequest, opts ...grpc.CallOption) (*CreateCaseResponse, error)
	QueryReceipts(ctx context.Context, in *QueryReceiptsRequest, opts ...grpc.CallOption) (*QueryReceiptsResponse, error)
	QueryCycleRoot(ctx context.Context, in *QueryCycleRootRequest, opts ...grpc.CallOption) (*QueryCycleRootResponse, error)
}

// CoreControl_DriveCaseClient is the client-side stream handle.
type CoreControl_DriveCaseClient interface {
	Recv() (*DriveCaseUpdate, error)
	grpc.ClientStream
}

// coreControlDriveCaseServer adapts the generic grpc.ServerStream to the
// typed CoreControl_DriveCaseServer handle, standing in for the wrapper
// protoc-gen-go-grpc would otherwise emit.
type coreControlDriveCaseServer struct {
	grpc.ServerStream
}

func (s *coreControlDriveCaseServer) Send(m *DriveCaseUpdate) error {
	return s.ServerStream.SendMsg(m)
}

func driveCaseHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(DriveCaseRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(CoreControlServer).DriveCase(m, &coreControlDriveCaseServer{stream})
}

func registerSpecHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(RegisterSpecRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoreControlServer).RegisterSpec(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/core.control.CoreControl/RegisterSpec"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoreControlServer).RegisterSpec(ctx, req.(*RegisterSpecRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createCaseHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateCaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoreControlServer).CreateCase(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/core.control.CoreControl/CreateCase"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoreControlServer).CreateCase(ctx, req.(*CreateCaseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func queryReceiptsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(QueryReceiptsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoreControlServer).QueryReceipts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/core.control.CoreControl/QueryReceipts"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoreControlServer).QueryReceipts(ctx, req.(*QueryReceiptsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func queryCycleRootHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(QueryCycleRootRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CoreControlServer).QueryCycleRoot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/core.control.CoreControl/QueryCycleRoot"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CoreControlServer).QueryCycleRoot(ctx, req.(*QueryCycleRootRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-declared equivalent of the *_grpc.pb.go ServiceDesc
// protoc-gen-go-grpc would emit; RegisterCoreControlServer uses it to bind
// an implementation to a live *grpc.Server without a generated stub.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "core.control.CoreControl",
	HandlerType: (*CoreControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterSpec", Handler: registerSpecHandler},
		{MethodName: "CreateCase", Handler: createCaseHandler},
		{MethodName: "QueryReceipts", Handler: queryReceiptsHandler},
		{MethodName: "QueryCycleRoot", Handler: queryCycleRootHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "DriveCase",
			Handler:       driveCaseHandler,
			ServerStreams: true,
		},
	},
	Metadata: "core.proto",
}

// RegisterCoreControlServer binds srv's implementation of CoreControlServer
// onto s, the same call site shape as a generated RegisterXxxServer
// function.
func RegisterCoreControlServer(s grpc.ServiceRegistrar, srv CoreControlServer) {
	s.RegisterService(&ServiceDesc, srv)
}
