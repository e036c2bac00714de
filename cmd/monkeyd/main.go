package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"monkeydao/config"
	"monkeydao/core"
	"monkeydao/core/events"
	"monkeydao/core/state"
	"monkeydao/explorer"
	"monkeydao/gateway/middleware"
	"monkeydao/gateway/routes"
	"monkeydao/observability"
	"monkeydao/observability/logging"
	"monkeydao/observability/metrics"
	telemetry "monkeydao/observability/otel"
	"monkeydao/storage"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "keygen" {
		if err := runKeygen(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./monkey.toml", "path to node configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	env := cfg.Env
	if override := strings.TrimSpace(os.Getenv("MONKEY_ENV")); override != "" {
		env = override
	}
	logger := logging.SetupWithFile("monkeyd", env, logging.FileOptions{Path: cfg.LogFile})

	if err := run(cfg, env, logger); err != nil {
		logger.Error("monkeyd stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, env string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		Environment:    env,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        telemetry.MergeHeaders(cfg.Telemetry.Headers, telemetry.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))),
		SampleRatio:    cfg.Telemetry.SampleRatio,
		ExportInterval: cfg.Telemetry.ExportInterval.Duration,
		StateVersion:   state.StateVersion,
		DataDir:        cfg.DataDir,
		Attributes:     cfg.Telemetry.Attributes,
		Metrics:        cfg.Telemetry.Enabled,
		Traces:         cfg.Telemetry.Enabled,
	})
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "ledger"))
	if err != nil {
		return err
	}
	defer db.Close()

	poolParams := cfg.Params.Pool()
	stakingParams := cfg.Params.Staking()
	dealParams := cfg.Params.Deals()
	node := core.NewNode(db, core.Options{
		Pool:    &poolParams,
		Staking: &stakingParams,
		Deals:   &dealParams,
		Pauses:  cfg.Pauses,
		Logger:  logger,
		Metrics: metrics.Program(),
	})

	if err := node.CheckStateVersion(); err != nil {
		return err
	}
	if err := applyGenesis(ctx, node, cfg.GenesisFile, logger); err != nil {
		return err
	}

	var indexer *explorer.Indexer
	if cfg.Indexer.Enabled {
		indexDB, err := explorer.Open(cfg.Indexer.Driver, cfg.Indexer.DSN)
		if err != nil {
			return err
		}
		if sqlDB, err := indexDB.DB(); err == nil {
			defer sqlDB.Close()
		}
		indexer, err = explorer.NewIndexer(indexDB, logger)
		if err != nil {
			return err
		}
		node.Subscribe(indexer)
		logger.Info("event indexer enabled", "driver", cfg.Indexer.Driver)
	}

	stream := events.NewBroadcaster()
	node.Subscribe(stream)

	gatewayMetrics := observability.GatewayMetrics()
	routeCfg := routes.Config{
		Ledger: node,
		Stream: stream,
		Authenticator: middleware.NewAuthenticator(middleware.AuthConfig{
			Enabled:             cfg.Auth.Enabled,
			HMACSecret:          cfg.Auth.HMACSecret,
			Issuer:              cfg.Auth.Issuer,
			Audience:            cfg.Auth.Audience,
			ClockSkew:           cfg.Auth.ClockSkew.Duration,
			AllowAnonymousReads: true,
		}, logger),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimit{
			RatePerSecond: cfg.RateLimit.RatePerSecond,
			Burst:         cfg.RateLimit.Burst,
		}, gatewayMetrics, logger),
		Observability: middleware.NewObservability(gatewayMetrics, logger),
		Logger:        logger,
	}
	if indexer != nil {
		routeCfg.Events = indexer
	}
	router, err := routes.New(routeCfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           otelhttp.NewHandler(router, "monkeyd"),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return err
	}
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	return nil
}

func applyGenesis(ctx context.Context, node *core.Node, path string, logger *slog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	applied, err := node.GenesisApplied()
	if err != nil {
		return err
	}
	if applied {
		logger.Debug("genesis already applied")
		return nil
	}
	genesis, err := config.LoadGenesis(path)
	if err != nil {
		return err
	}
	if err := node.ApplyGenesis(ctx, genesis); err != nil {
		return err
	}
	logger.Info("genesis applied", "file", path)
	return nil
}
