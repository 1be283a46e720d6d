package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/portfolio-site/meetbook/libs/grpcx"
	"github.com/portfolio-site/meetbook/libs/runtime"
)

const healthServiceName = "meetbook.booking.v1.Availability"

func newGrpcServer(logger *slog.Logger, hs *health.Server) *grpc.Server {
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerAccessLogInterceptor(logger),
		),
	)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

// startGrpcServer serves gRPC health on lis and keeps its status in step with
// the readiness checks until ctx is cancelled.
func startGrpcServer(ctx context.Context, logger *slog.Logger, lis net.Listener, checks []runtime.ReadyCheck, every time.Duration) {
	hs := health.NewServer()
	srv := newGrpcServer(logger, hs)
	updateHealth(ctx, hs, checks)

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				hs.Shutdown()
				srv.GracefulStop()
				return
			case <-ticker.C:
				updateHealth(ctx, hs, checks)
			}
		}
	}()
}

func updateHealth(ctx context.Context, hs *health.Server, checks []runtime.ReadyCheck) {
	status := healthpb.HealthCheckResponse_SERVING
	for _, c := range checks {
		if c.Optional {
			continue
		}
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.Check(checkCtx)
		cancel()
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			break
		}
	}
	hs.SetServingStatus("", status)
	hs.SetServingStatus(healthServiceName, status)
}
