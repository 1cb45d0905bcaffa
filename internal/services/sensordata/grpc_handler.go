package sensordata

import (
	"context"
	"errors"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sensordata.v1.SensorData"

// SensorDataServer mirrors the HTTP API. Messages are google.protobuf.Struct values
// with the same keys as the JSON bodies, so no generated code is needed.
type SensorDataServer interface {
	Ingest(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Latest(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	History(context.Context, *structpb.Struct) (*structpb.ListValue, error)
}

var SensorDataServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SensorDataServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ingest", Handler: ingestHandler},
		{MethodName: "Latest", Handler: latestHandler},
		{MethodName: "History", Handler: historyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sensordata/v1/sensordata.proto",
}

func ingestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SensorDataServer).Ingest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Ingest"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SensorDataServer).Ingest(ctx, req.(*structpb.Struct))
	})
}

func latestHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SensorDataServer).Latest(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Latest"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SensorDataServer).Latest(ctx, req.(*emptypb.Empty))
	})
}

func historyHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SensorDataServer).History(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/History"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(SensorDataServer).History(ctx, req.(*structpb.Struct))
	})
}

// GrpcHandler implements SensorDataServer on top of the Service.
type GrpcHandler struct {
	svc *Service
}

func NewGrpcHandler(svc *Service) *GrpcHandler {
	return &GrpcHandler{svc: svc}
}

// NewGrpcServer registers the handler and the standard health service on a new server.
func NewGrpcServer(svc *Service, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(opts...)
	s.RegisterService(&SensorDataServiceDesc, NewGrpcHandler(svc))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return s, hs
}

func (h *GrpcHandler) Ingest(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	body, err := protojson.Marshal(in)
	if err != nil {
		h.svc.metrics.ingest(TransportGRPC, resultInvalid)
		return nil, grpcError(ErrInvalidInput)
	}
	r, err := h.svc.Ingest(ctx, TransportGRPC, body)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"success": true, "id": r.ID})
}

func (h *GrpcHandler) Latest(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	l, err := h.svc.Latest(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"temperature": l.Temperature,
		"humidity":    l.Humidity,
		"moisture":    l.Moisture,
		"ph":          l.PH,
		"createdAt":   l.CreatedAt,
	})
}

func (h *GrpcHandler) History(ctx context.Context, in *structpb.Struct) (*structpb.ListValue, error) {
	list, err := h.svc.History(ctx, in.GetFields()["range"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	items := make([]any, 0, len(list))
	for _, e := range list {
		items = append(items, map[string]any{
			"createdAt":   e.CreatedAt,
			"temperature": e.Temperature,
			"humidity":    e.Humidity,
			"moisture":    e.Moisture,
			"ph":          e.PH,
		})
	}
	return structpb.NewList(items)
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return status.Error(codes.InvalidArgument, "Invalid input")
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, "No data available")
	default:
		log.Printf("sensordata: grpc: %v", err)
		return status.Error(codes.Internal, "Internal server error")
	}
}

// GrpcClient calls SensorData over an existing connection.
type GrpcClient struct {
	cc grpc.ClientConnInterface
}

func NewGrpcClient(cc grpc.ClientConnInterface) *GrpcClient {
	return &GrpcClient{cc: cc}
}

func (c *GrpcClient) Ingest(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Ingest", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GrpcClient) Latest(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Latest", &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GrpcClient) History(ctx context.Context, rng string, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	in, err := structpb.NewStruct(map[string]any{"range": rng})
	if err != nil {
		return nil, err
	}
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/History", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
