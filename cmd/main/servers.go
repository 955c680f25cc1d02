package main

import (
	"fmt"
	"net"

	pb "portfolio-dashboard/src/grpc_control"
	"portfolio-dashboard/src/logger"
	"portfolio-dashboard/src/models"
	"portfolio-dashboard/src/server"

	"google.golang.org/grpc"
)

// -----------------------------------------------------------------------------

// startServers launches the dashboard HTTP server and the gRPC control server.
// The returned gRPC server is nil when grpc_port is 0.
func startServers(
	cfg *models.MConfig,
	srv *server.DashboardServer,
	control *pb.ControlService,
	appLogger *logger.Logger,
) (*grpc.Server, error) {

	// 1. Dashboard server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Dashboard server failed: %v", err)
		}
	}()

	// 2. gRPC Control Server
	if cfg.GrpcPort == 0 {
		appLogger.Info("gRPC control server disabled")
		return nil, nil
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.GrpcHost, cfg.GrpcPort))
	if err != nil {
		return nil, fmt.Errorf("failed to listen for gRPC: %w", err)
	}
	grpcServer := grpc.NewServer()
	pb.RegisterDashboardControlServer(grpcServer, control)

	go func() {
		appLogger.Info("Starting gRPC Control Server on %s", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Error("gRPC server stopped: %v", err)
		}
	}()
	return grpcServer, nil
}
