// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package gateway provides the SkySage query gateway service.
//
// This package wires the HTTP surface (gin router, CORS, metrics,
// tracing) to the mediation services that talk to the upstream answer
// service. The gateway's job is translation, not intelligence: it
// enforces deadlines, bounds history, and absorbs every upstream
// failure into a uniform response shape for clients.
//
// # Usage
//
//	cfg := gateway.Config{Port: 8080, AnswerServiceURL: "http://localhost:8000"}
//	svc, err := gateway.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skysage-ai/skysage/pkg/logging"
	"github.com/skysage-ai/skysage/services/gateway/observability"
	"github.com/skysage-ai/skysage/services/gateway/routes"
	"github.com/skysage-ai/skysage/services/gateway/services"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the gateway service lifecycle.
//
// Implementations must be safe for concurrent use. Run blocks and
// should be called at most once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying gin engine for integration testing.
	// Callers must not modify the registered routes.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds gateway configuration. Zero values get defaults from
// New; an empty AnswerServiceURL is tolerated and resolves requests to
// a configuration-error message rather than failing startup.
type Config struct {
	// Port is the HTTP server port. Default: 8080.
	Port int

	// AnswerServiceURL is the upstream answer service base URL.
	AnswerServiceURL string

	// AnswerTimeout is the hard per-call upstream deadline.
	// Default: services.DefaultTimeout (65s).
	AnswerTimeout time.Duration

	// DemoMode serves canned chat answers on transport failures.
	DemoMode bool

	// OTelEndpoint is the OTLP/gRPC collector endpoint. Tracing is
	// disabled when empty.
	OTelEndpoint string

	// EnableMetrics exposes Prometheus metrics at /metrics.
	// Default: true.
	EnableMetrics *bool

	// GinMode sets the gin framework mode ("debug", "release", "test").
	GinMode string

	// Logger receives structured service logs. Default: a logger with
	// service name "gateway".
	Logger *logging.Logger
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
type service struct {
	config        Config
	router        *gin.Engine
	answerSvc     *services.AnswerService
	marketSvc     *services.MarketService
	logger        *logging.Logger
	tracerCleanup func(context.Context)
}

// New creates a gateway Service with the given configuration.
//
// Initialization order: defaults, tracing (when configured), metrics,
// mediation services, router. Metrics registration panics on a second
// call within one process because Prometheus forbids duplicate
// registration; construct at most one metrics-enabled gateway per
// process.
func New(cfg Config) (Service, error) {
	cfg = applyConfigDefaults(cfg)

	s := &service{
		config: cfg,
		logger: cfg.Logger,
	}

	if cfg.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	} else {
		s.logger.Info("OTel endpoint not configured, tracing disabled")
	}

	if *cfg.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		s.logger.Info("initialized Prometheus metrics")
	}

	svcCfg := services.Config{
		BaseURL:  cfg.AnswerServiceURL,
		Timeout:  cfg.AnswerTimeout,
		DemoMode: cfg.DemoMode,
		Logger:   s.logger,
	}
	s.answerSvc = services.NewAnswerService(svcCfg)
	s.marketSvc = services.NewMarketService(svcCfg)

	s.initRouter()

	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.logger.Info("starting gateway server",
		"port", s.config.Port,
		"answer_service_url", s.config.AnswerServiceURL,
		"demo_mode", s.config.DemoMode)

	return s.router.Run(addr)
}

// Router returns the underlying gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.AnswerTimeout == 0 {
		cfg.AnswerTimeout = services.DefaultTimeout
	}
	if cfg.EnableMetrics == nil {
		enabled := true
		cfg.EnableMetrics = &enabled
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.New(logging.Config{
			Level:   logging.LevelInfo,
			Service: "gateway",
		})
	}
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing over an
// insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("skysage-gateway")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			s.logger.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initRouter sets up the gin router: CORS for browser dashboards, otel
// middleware when tracing is enabled, then all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.Default()
	s.router.Use(cors.Default())
	if s.tracerCleanup != nil {
		s.router.Use(otelgin.Middleware("skysage-gateway"))
	}

	routes.SetupRoutes(s.router, s.answerSvc, s.marketSvc, *s.config.EnableMetrics)
}

// cleanup releases resources when Run exits.
func (s *service) cleanup() {
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
	if s.logger != nil {
		_ = s.logger.Close()
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
