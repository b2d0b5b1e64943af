package api

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name reported for yupan.
const ServiceName = "yupan.Strategy"

// newGRPCServer builds the gRPC server with the standard health service
// registered. Both the overall and the yupan service start SERVING.
func newGRPCServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv, hs
}
