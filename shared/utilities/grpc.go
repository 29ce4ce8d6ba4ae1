package utilities

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// NewHealthGRPCServer builds a gRPC server exposing only the standard health service,
// so orchestrators can probe the HTTP service with grpc_health_probe.
func NewHealthGRPCServer(service string) (*grpc.Server, *health.Server) {
	grpcServer := grpc.NewServer()
	healthServer := RegisterHealthServer(grpcServer, service)
	return grpcServer, healthServer
}

// RegisterHealthServer registers the gRPC health check service reporting SERVING
// for both the overall server and service.
func RegisterHealthServer(grpcServer *grpc.Server, service string) *health.Server {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	if service != "" {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_SERVING)
	}
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	return healthServer
}
