package server

import (
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// LobbyHealthService is the gRPC health service name for the lobby.
const LobbyHealthService = "duel.lobby"

func newHealthServer() *health.Server {
	healthServer := health.NewServer()
	setServing(healthServer, false)
	return healthServer
}

func setServing(healthServer *health.Server, serving bool) {
	if healthServer == nil {
		return
	}
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	healthServer.SetServingStatus("", status)
	healthServer.SetServingStatus(LobbyHealthService, status)
}
