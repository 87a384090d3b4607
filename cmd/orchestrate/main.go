package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/i2y/orchestrate/configs"
	"github.com/i2y/orchestrate/internal/adapter/inbound/cli"
	"github.com/i2y/orchestrate/internal/adapter/outbound/artifact"
	"github.com/i2y/orchestrate/internal/adapter/outbound/github"
	"github.com/i2y/orchestrate/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/orchestrate/internal/adapter/outbound/invoker"
	"github.com/i2y/orchestrate/internal/adapter/outbound/mcpclient"
	"github.com/i2y/orchestrate/internal/adapter/outbound/memstore"
	"github.com/i2y/orchestrate/internal/adapter/outbound/openapi"
	"github.com/i2y/orchestrate/internal/adapter/outbound/orchestrate"
	"github.com/i2y/orchestrate/internal/adapter/outbound/pyreflect"
	"github.com/i2y/orchestrate/internal/adapter/outbound/specfile"
	"github.com/i2y/orchestrate/internal/usecase"
)

var version = "dev"

func main() {
	// === Configuration Loading ===
	cfg, err := configs.Load()
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// === Logger Setup ===
	// Logs go to stderr so command output and the stdio transport own stdout.
	opts := &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.JSONLogs() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	logger.Debug("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()), slog.String("config_file", cfg.ConfigFilePath))

	// === OpenTelemetry Setup ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	root := cli.NewRootCommand(version, newBuilder(cfg, logger), configs.NewEnvironmentFile(cfg.ConfigFilePath, logger))
	runErr := root.ExecuteContext(ctx)
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := shutdownOtel(shutdownCtx); err != nil {
		logger.Warn("OpenTelemetry shutdown failed", slog.Any("error", err))
	}

	if runErr != nil {
		logger.Debug("Command failed", slog.Any("error", runErr))
		fmt.Fprintln(os.Stderr, "Error:", runErr)
		cancel()
		os.Exit(1)
	}
}

// newBuilder wires the use cases once the global flags are known. A dry
// run, from the flag or ORCHESTRATE_DRY_RUN, publishes to memory.
func newBuilder(cfg *configs.Config, logger *slog.Logger) cli.Builder {
	return func(opts cli.Options) (*cli.Deps, error) {
		dryRun := opts.DryRun || cfg.DryRun
		httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

		// -- Outbound Adapters --
		var stores usecase.Stores
		if dryRun {
			logger.Info("Dry run, records are kept in memory")
			stores, _ = memstore.NewStores(logger)
		} else {
			if cfg.URL == "" {
				return nil, errors.New("no backend configured: set ORCHESTRATE_URL or an active environment in " + cfg.ConfigFilePath)
			}
			stores = orchestrate.NewStores(orchestrate.NewClient(cfg.URL, cfg.APIKey, httpClient, logger))
		}

		files := specfile.New(logger)
		packager, err := artifact.New(logger)
		if err != nil {
			return nil, err
		}
		workDir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		reflector := pyreflect.NewReflector(workDir, logger)
		synthesizer := openapi.NewSource(
			openapi.NewFetcher(httpClient, github.NewClient(nil, logger), logger),
			openapi.NewGenerator(logger),
		)
		mcp := mcpclient.New(logger)
		toolInvoker := invoker.NewRouter(httpinvoker.New(httpClient, logger), mcp, logger)
		exec := usecase.ExecutionContext{Environ: os.Environ()}

		// -- Use Cases --
		resolver := usecase.NewResolver(stores, logger)
		return &cli.Deps{
			ImportTools:     usecase.NewImportToolsUseCase(reflector, synthesizer, packager, resolver, stores, logger),
			ImportAgents:    usecase.NewImportAgentsUseCase(files, files, resolver, stores, logger),
			ImportToolkit:   usecase.NewImportToolkitUseCase(mcp, packager, resolver, stores, logger),
			ImportKBs:       usecase.NewImportKnowledgeBasesUseCase(files, stores, logger),
			Remove:          usecase.NewRemoveUseCase(stores, logger),
			List:            usecase.NewListUseCase(stores, logger),
			Connections:     usecase.NewConnectionsUseCase(stores.Connections, logger),
			InvokeTool:      usecase.NewInvokeToolUseCase(files, toolInvoker, exec, logger),
			ListenAddr:      cfg.ListenAddr,
			ShutdownTimeout: cfg.ShutdownTimeout,
			Logger:          logger,
		}, nil
	}
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP trace and
// metric exporters over one gRPC connection.
// It returns a shutdown function to be called on application exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Debug("ORCHESTRATE_OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithGRPCConn(conn))
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String("orchestrate"),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = metricExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	// The meter provider is set before any Dispatcher is built, so every
	// publish counter records through it.
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(r),
	)
	otel.SetMeterProvider(mp)

	slog.Info("OpenTelemetry TracerProvider and MeterProvider configured.")

	return func(ctx context.Context) error {
		tracerErr := tp.Shutdown(ctx)
		meterErr := mp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(tracerErr, meterErr, connErr)
	}, nil
}
