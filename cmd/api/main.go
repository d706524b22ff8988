package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"banklink/internal/shared/config"
	"banklink/internal/shared/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				log.Printf("Error shutting down telemetry: %v", err)
			}
		}()
	}

	deps, err := InitDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	if deps.BankListener != nil {
		deps.BankListener.Start(ctx)
		defer deps.BankListener.Stop()
	}

	scfg := NewServerConfigFromConfig(SetupRoutes(deps, cfg), cfg)
	if cfg.Telemetry.Enabled {
		scfg.MetricsServer = telemetry.MetricsServer(cfg.Telemetry.MetricsPort)
	}

	return RunServers(ctx, scfg)
}
