// Package main implements the entry point for the fheproxy daemon.
// fheproxy is the resilience and scaling core for a homomorphic-encryption
// LLM proxy: a ciphertext cache, a circuit breaker guarding an engine pool,
// and an auto scaler that resizes the pool under load.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/config"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/proxy"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "fheproxy"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := loadConfig(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := setupLogger(resolveLogging(cliCfg, cfg))
	slog.SetDefault(logger)

	slog.Info("Starting fheproxy (FHE resilience core)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	registry := metric.NewMetricsRegistry()

	p, err := proxy.New(cfg, nil,
		proxy.WithLogger(logger),
		proxy.WithRegistry(registry))
	if err != nil {
		return fmt.Errorf("create proxy: %w", err)
	}

	metricsServer := startMetricsServer(cfg, registry)

	return runWithSignalHandling(cfg, cliCfg, p, metricsServer)
}

// loadConfig loads configuration from path, falling back to built-in
// defaults when no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// resolveLogging lets CLI flags override the config file's logging section.
func resolveLogging(cliCfg *CLIConfig, cfg *config.Config) (string, string) {
	level := cfg.Logging.Level
	if cliCfg.LogLevel != "" {
		level = cliCfg.LogLevel
	}
	format := cfg.Logging.Format
	if cliCfg.LogFormat != "" {
		format = cliCfg.LogFormat
	}
	return level, format
}

// startMetricsServer serves /metrics in the background when enabled.
func startMetricsServer(cfg *config.Config, registry *metric.MetricsRegistry) *metric.Server {
	if !cfg.Metrics.Enabled {
		slog.Info("Metrics endpoint disabled")
		return nil
	}

	server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		slog.Info("Metrics server listening", "addr", server.Address(), "path", cfg.Metrics.Path)
		if err := server.Start(); err != nil {
			slog.Error("Metrics server exited", "error", err)
		}
	}()
	return server
}

// runWithSignalHandling starts the proxy and blocks until SIGINT/SIGTERM.
func runWithSignalHandling(
	cfg *config.Config,
	cliCfg *CLIConfig,
	p *proxy.Proxy,
	metricsServer *metric.Server,
) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := p.Start(signalCtx); err != nil {
		return fmt.Errorf("start proxy: %w", err)
	}
	slog.Info("fheproxy started",
		"engines", cfg.Pool.Engines,
		"batch_workers", cfg.Controller.BatchWorkers,
		"metrics", cfg.Metrics.Enabled)

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	var firstErr error
	if err := p.Stop(cliCfg.ShutdownTimeout); err != nil {
		slog.Error("Error stopping proxy", "error", err)
		firstErr = err
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", firstErr)
	}
	slog.Info("fheproxy shutdown complete")
	return nil
}
