package diagnostics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cheildo/nexus-rendezvous/internal/matchmaking"
)

const (
	// ServiceName is the fully qualified gRPC name of the status service.
	ServiceName     = "rendezvous.v1.Status"
	getStatusMethod = "/" + ServiceName + "/GetStatus"
)

// StatsSource supplies the coordinator snapshot reported by diagnostics.
type StatsSource interface {
	Stats(ctx context.Context) (matchmaking.Stats, error)
}

// StatusServer is the server API of the status service.
type StatusServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// GRPCHandler implements StatusServer on top of the coordinator.
type GRPCHandler struct {
	stats     StatsSource
	startedAt time.Time
}

func NewGRPCHandler(stats StatsSource) *GRPCHandler {
	return &GRPCHandler{stats: stats, startedAt: time.Now()}
}

func (h *GRPCHandler) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s, err := h.stats.Stats(ctx)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}

	resp, err := structpb.NewStruct(map[string]any{
		"status":        "OK",
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
		"registered":    s.Registered,
		"connected":     s.Connected,
		"queued":        s.Queued,
		"paired":        s.Paired,
		"discarded":     s.Discarded,
		"waiting":       s.Waiting,
		"matches":       s.Matches,
		"probesDropped": s.ProbesDropped,
		"pairsDropped":  s.PairsDropped,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to encode status")
	}
	return resp, nil
}

// RegisterStatusServer registers srv on s.
func RegisterStatusServer(s grpc.ServiceRegistrar, srv StatusServer) {
	s.RegisterService(&statusServiceDesc, srv)
}

var statusServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rendezvous/v1/status.proto",
}

func getStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(StatusServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getStatusMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StatusServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}
