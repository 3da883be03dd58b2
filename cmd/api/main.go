// Package main is the entry point for the demo API server.
//
// It loads the configuration, builds the AWS clients, the secret service and
// the HTTP chassis, then either listens on LISTEN_HOST:PORT or, inside AWS
// Lambda, serves API Gateway HTTP API events through the same router.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"golang.org/x/sync/errgroup"

	"devopsdemo/internal/config"
	"devopsdemo/internal/core"
	"devopsdemo/internal/secrets"
	"devopsdemo/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// secretBackend is what the server needs from the secret store: value
// lookups for the pages and metadata lookups for readiness.
type secretBackend interface {
	secrets.Store
	secrets.Describer
}

// metricsSink receives both request and retrieval metrics.
type metricsSink interface {
	core.MetricsCollector
	secrets.Recorder
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The SSM client is only created if a *_SSM_PARAM variable needs resolving.
	cfg, err := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("devops demo API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"secret_name", cfg.Secret.Name,
		"metrics_enabled", cfg.Observability.MetricsEnabled,
	)

	awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return err
	}

	var metrics metricsSink = telemetry.Noop{}
	if cfg.Observability.MetricsEnabled {
		metrics = telemetry.NewCloudWatchMetrics(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
	}

	srv, err := newServer(cfg, logger, secrets.NewAWSStore(awsCfg), metrics)
	if err != nil {
		return err
	}

	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.ListenAddr(), err)
	}
	return serveHTTP(ctx, ln, srv, cfg.Server, logger)
}

// loadAWSConfig resolves credentials and region through the SDK default
// chain. A non-empty EndpointURL points every client at LocalStack.
func loadAWSConfig(ctx context.Context, c config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	if c.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(c.EndpointURL)
	}
	return awsCfg, nil
}

// newServer wires the secret service and the HTTP chassis.
func newServer(cfg *config.Config, logger *slog.Logger, store secretBackend, metrics metricsSink) (*core.Server, error) {
	svc, err := secrets.NewService(store, cfg.Secret.Name, logger,
		secrets.WithRecorder(metrics),
		secrets.WithRedactedErrors(cfg.Secret.RedactErrors),
	)
	if err != nil {
		return nil, fmt.Errorf("creating secret service: %w", err)
	}

	srv, err := core.NewServer(cfg, svc, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.ReadinessProbes = []core.HealthProbe{secrets.NewStoreProbe(store, cfg.Secret.Name)}

	if err := srv.MountRoutes(); err != nil {
		return nil, fmt.Errorf("mounting routes: %w", err)
	}
	return srv, nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// serveHTTP serves srv on ln until ctx is cancelled, then drains in-flight
// requests within sc.ShutdownTimeout.
func serveHTTP(ctx context.Context, ln net.Listener, srv *core.Server, sc config.ServerConfig, logger *slog.Logger) error {
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: sc.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "error", err)
			return fmt.Errorf("http shutdown: %w", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		logger.Info("server stopped cleanly")
		return nil
	})

	return g.Wait()
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
