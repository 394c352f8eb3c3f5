package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/WillKirkmanM/proxy/internal/config"
	"github.com/WillKirkmanM/proxy/internal/proxy"
	"github.com/WillKirkmanM/proxy/internal/tracing"
)

// main initializes and starts the forward caching proxy server
// This function orchestrates the entire application lifecycle including:
// - Configuration loading and validation
// - Server initialisation with graceful shutdown support
// - Signal handling for clean termination
func main() {
	err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatal(err)
	}
	cfg := config.GetInstance()

	// A bare port argument overrides the configured listen port: the
	// binary's invocation contract is "program [port]", decimal in
	// [1,65535], falling back to the configured/default port on an
	// absent or invalid argument rather than failing startup.
	if len(os.Args) > 1 {
		if port, err := strconv.Atoi(os.Args[1]); err == nil && port >= 1 && port <= 65535 {
			cfg.Server.Port = port
		}
	}

	shutdownTracing, err := tracing.InitTracing(tracing.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRatio:  cfg.Tracing.SamplingRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialise tracing: %v", err)
	}
	defer shutdownTracing()

	server, err := proxy.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create proxy server: %v", err)
	}

	if cfg.AdminPort > 0 {
		go serveAdmin(cfg.AdminPort, server)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting proxy server on port %d", cfg.Server.Port)
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-sigChan
	log.Println("Received termination signal, shutting down gracefully...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Proxy server stopped")
}

// serveAdmin exposes the Prometheus exposition handler on a separate
// port from the forward-proxy listener, so scraping never competes
// with the raw-socket accept loop.
func serveAdmin(port int, server *proxy.Server) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", server.Metrics().Handler())

	addr := ":" + strconv.Itoa(port)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("admin listener stopped: %v", err)
	}
}
