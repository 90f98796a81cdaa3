package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ripesense/ripesense/pkg/apiserver"
	"github.com/ripesense/ripesense/pkg/config"
	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/observability/tracing"
)

func main() {
	// Parse command-line flags
	var (
		configPath  = flag.String("config", "config/config.yaml", "Path to the configuration file")
		port        = flag.Int("port", 8080, "Port to listen on for the classification API")
		metricsPort = flag.Int("metrics-port", 9190, "Port for Prometheus metrics (<= 0 disables)")
		secure      = flag.Bool("secure", false, "Serve the API over TLS with a self-signed certificate")
	)
	flag.Parse()

	// Initialize logging (zap) from environment.
	if _, err := logging.InitLoggerFromEnv(); err != nil {
		// Fallback to stderr since logger initialization failed
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
	}

	// Check if config file exists
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logging.Fatalf("Config file not found: %s", *configPath)
	}

	cfg, err := config.Parse(*configPath)
	if err != nil {
		logging.Fatalf("Failed to load config: %v", err)
	}

	// Make the parsed configuration the process-wide one
	config.Replace(cfg)

	// Initialize distributed tracing if enabled
	ctx := context.Background()
	if cfg.Observability.Tracing.Enabled {
		tracingCfg := tracing.Config{
			Enabled:               cfg.Observability.Tracing.Enabled,
			ExporterType:          cfg.Observability.Tracing.Exporter.Type,
			ExporterEndpoint:      cfg.Observability.Tracing.Exporter.Endpoint,
			ExporterInsecure:      cfg.Observability.Tracing.Exporter.Insecure,
			SamplingType:          cfg.Observability.Tracing.Sampling.Type,
			SamplingRate:          cfg.Observability.Tracing.Sampling.Rate,
			ServiceName:           "ripesense-api",
			ServiceVersion:        apiserver.ServiceVersion,
			DeploymentEnvironment: deploymentEnvironment(),
		}
		if tracingErr := tracing.InitTracing(ctx, tracingCfg); tracingErr != nil {
			logging.Warnf("Failed to initialize tracing: %v", tracingErr)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := tracing.ShutdownTracing(shutdownCtx); shutdownErr != nil {
				logging.Errorf("Failed to shutdown tracing: %v", shutdownErr)
			}
		}()
	}

	// Start Prometheus metrics server if enabled
	mPort := *metricsPort
	if mPort == 9190 && cfg.Metrics.Port != 0 {
		mPort = cfg.Metrics.Port
	}
	if mPort > 0 {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			metricsAddr := fmt.Sprintf(":%d", mPort)
			logging.Infof("Starting metrics server on %s", metricsAddr)
			if metricsErr := http.ListenAndServe(metricsAddr, mux); metricsErr != nil {
				logging.Errorf("Metrics server error: %v", metricsErr)
			}
		}()
	} else {
		logging.Infof("Metrics server disabled")
	}

	// Create the API server: taxonomy, history store and one classification
	// session per produce kind.
	server, err := apiserver.New(cfg, *port, *secure)
	if err != nil {
		logging.Fatalf("Failed to create API server: %v", err)
	}

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Infof("Received %s, shutting down...", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			logging.Errorf("Shutdown error: %v", shutdownErr)
		}
	}()

	logging.Infof("Starting RipeSense with config: %s", *configPath)
	if err := server.Start(ctx); err != nil {
		logging.Fatalf("API server error: %v", err)
	}
	logging.Infof("RipeSense stopped")
}

// deploymentEnvironment names the environment attached to trace resources.
func deploymentEnvironment() string {
	if env := os.Getenv("RS_ENVIRONMENT"); env != "" {
		return env
	}
	return "development"
}
