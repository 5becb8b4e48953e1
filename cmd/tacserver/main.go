// Package main provides the TAC importer chat server. Operators connect over
// Telnet and drive imports with !tac commands; a gRPC health endpoint reports
// store health.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/app"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/frontend/handlers"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/frontend/telnet"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/observability"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	healthcheck := flag.Bool("healthcheck", false, "query the running server's health endpoint and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	if *healthcheck {
		os.Exit(checkHealth(cfg.Health))
	}

	logger, err := observability.NewLogger(cfg.Logging, "tacserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting TAC importer server",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("health_addr", cfg.Health.Addr()),
		zap.String("store", cfg.Store.Driver),
	)

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("building importer", zap.Error(err))
	}

	hub := handlers.NewChatHub(logger.Named("chat"))
	dispatcher, err := a.Dispatcher(hub)
	if err != nil {
		a.Close()
		logger.Fatal("creating dispatcher", zap.Error(err))
	}
	chat := handlers.NewChatHandler(hub, dispatcher, logger.Named("chat"))
	acceptor := telnet.NewAcceptor(cfg.Telnet, chat, logger.Named("telnet"))
	health := server.NewHealthService(cfg.Health, logger.Named("health"), a.Probes...)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("health", health)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.Bool("hooks", a.Hooks.Loaded()),
	)

	runErr := lifecycle.Run(ctx)
	if err := a.Close(); err != nil {
		logger.Error("closing importer", zap.Error(err))
	}
	if runErr != nil {
		logger.Fatal("server error", zap.Error(runErr))
	}
}

// checkHealth returns the process exit code for a one-shot health query.
func checkHealth(cfg config.HealthConfig) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := server.CheckRemote(ctx, cfg.Addr(), server.HealthServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		return 1
	}
	fmt.Println(status)
	if status != grpc_health_v1.HealthCheckResponse_SERVING {
		return 1
	}
	return 0
}
