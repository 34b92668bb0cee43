// cartservice/main.go

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/norun9/gomarketplace/cartservice/cartstore"
	"github.com/norun9/gomarketplace/cartservice/config"
	"github.com/norun9/gomarketplace/cartservice/kvstore"
	"github.com/norun9/gomarketplace/cartservice/services"
)

const shutdownTimeout = 10 * time.Second

func newLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.Level = logrus.InfoLevel
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.Level = lvl
	}
	log.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
		TimestampFormat: time.RFC3339Nano,
	}
	log.Out = os.Stdout
	return log
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := newLogger(cfg.LogLevel)

	// ----------------------------------------------------------------
	// 1) OpenTelemetry TracerProvider
	if cfg.OTelEnabled {
		tp, err := initTracerProvider(ctx, cfg.OTelEndpoint)
		if err != nil {
			log.Fatalf("failed to initialize tracer provider: %v", err)
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				log.Errorf("Error shutting down tracer provider: %v", err)
			}
		}()
		log.WithField("endpoint", cfg.OTelEndpoint).Info("OpenTelemetry TracerProvider initialized")
	}

	// ----------------------------------------------------------------
	// 2) Persistence backend and cart store
	kv, err := newKVStore(cfg, log)
	if err != nil {
		log.Fatalf("failed to create %s kv store: %v", cfg.Backend, err)
	}
	if err := kv.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize %s kv store: %v", cfg.Backend, err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			log.Errorf("Error closing kv store: %v", err)
		}
	}()
	log.WithField("backend", cfg.Backend).Info("kv store initialized")

	store := cartstore.Open(ctx, kv,
		cartstore.WithLogger(log),
		cartstore.WithKey(cfg.StorageKey),
		cartstore.WithWriteTimeout(shutdownTimeout),
	)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Errorf("Error flushing cart store: %v", err)
		}
	}()

	// ----------------------------------------------------------------
	// 3) gRPC server
	addr := fmt.Sprintf(":%s", cfg.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("failed to listen on %s: %v", addr, err)
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
	)
	cartSvc := services.NewCartServiceServer(store, log)
	services.RegisterCartServer(grpcServer, cartSvc)
	healthpb.RegisterHealthServer(grpcServer, services.NewHealthCheckService(kv, log))
	reflection.Register(grpcServer)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal, initiating graceful shutdown...")
		if !services.GracefulStop(grpcServer, cartSvc, shutdownTimeout) {
			log.Warnf("graceful shutdown exceeded %v, open RPCs were cut", shutdownTimeout)
		}
	}()

	log.Infof("CartService gRPC server is listening on %s", addr)
	if err := grpcServer.Serve(lis); err != nil {
		log.Errorf("failed to serve gRPC server: %v", err)
	}
}

func newKVStore(cfg config.Config, log logrus.FieldLogger) (kvstore.IKVStore, error) {
	switch cfg.Backend {
	case config.BackendRedis:
		return kvstore.NewRedisKVStore(cfg.RedisAddress(), log), nil
	case config.BackendSQLite:
		store, err := kvstore.OpenSQLiteKVStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		log.Warn("using in-memory kv store, the cart will not survive a restart")
		return kvstore.NewLocalKVStore(), nil
	}
}

// initTracerProvider configures the OTLP gRPC exporter and W3C trace context propagation.
func initTracerProvider(ctx context.Context, endpoint string) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("gomarketplace-cartservice"),
			semconv.ServiceVersionKey.String("v1.0.0"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp, nil
}
