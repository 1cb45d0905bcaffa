package sensordata

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func dialBufconn(t *testing.T, svc *Service) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGrpcServer(svc)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func reading(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func TestGrpc_IngestLatestHistory(t *testing.T) {
	f := newFixture(t)
	client := NewGrpcClient(dialBufconn(t, f.svc))
	ctx := context.Background()

	_, err := client.Latest(ctx)
	assert.Equal(t, codes.NotFound, status.Code(err))

	out, err := client.Ingest(ctx, reading(t, map[string]any{
		"temperature": 20.5, "humidity": 41.0, "moisture": 12.0, "ph": 6.5,
	}))
	require.NoError(t, err)
	assert.True(t, out.GetFields()["success"].GetBoolValue())
	assert.NotEmpty(t, out.GetFields()["id"].GetStringValue())

	latest, err := client.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6.5, latest.GetFields()["ph"].GetNumberValue())
	assert.Equal(t, float64(f.clock.Now().UnixMilli()), latest.GetFields()["createdAt"].GetNumberValue())

	hist, err := client.History(ctx, "6h")
	require.NoError(t, err)
	require.Len(t, hist.GetValues(), 1)
	entry := hist.GetValues()[0].GetStructValue().GetFields()
	assert.Equal(t, "2025-01-02T03:04:05.678Z", entry["createdAt"].GetStringValue())
	assert.Equal(t, 20.5, entry["temperature"].GetNumberValue())
}

func TestGrpc_IngestInvalid(t *testing.T) {
	f := newFixture(t)
	client := NewGrpcClient(dialBufconn(t, f.svc))

	for _, fields := range []map[string]any{
		{"temperature": "20", "humidity": 41.0, "moisture": 12.0, "ph": 6.5},
		{"temperature": nil, "humidity": 41.0, "moisture": 12.0, "ph": 6.5},
		{"humidity": 41.0, "moisture": 12.0, "ph": 6.5},
	} {
		_, err := client.Ingest(context.Background(), reading(t, fields))
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	}
	assert.Equal(t, 0, countReadings(t, f))
}

func TestGrpc_StoreFaultIsInternal(t *testing.T) {
	client := NewGrpcClient(dialBufconn(t, NewService(brokenStore{})))
	_, err := client.History(context.Background(), "1h")
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.NotContains(t, err.Error(), "refused")
}

func TestGrpc_HealthService(t *testing.T) {
	f := newFixture(t)
	conn := dialBufconn(t, f.svc)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
