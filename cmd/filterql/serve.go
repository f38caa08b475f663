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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/filterql"
	"github.com/hugr-lab/filterql/auth"
	"github.com/hugr-lab/filterql/catalog"
	"github.com/hugr-lab/filterql/entity"
	"github.com/hugr-lab/filterql/internal/config"
	"github.com/hugr-lab/filterql/query"
	"github.com/hugr-lab/filterql/store/duckdb"
	"github.com/hugr-lab/filterql/store/postgres"
)

// tableStore is a query.Store that can create entity tables.
type tableStore interface {
	query.Store
	CreateTable(ctx context.Context, entity *catalog.Entity) error
	Close() error
}

func newServeCmd() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Flight server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (yaml, json or toml)")
	flags.String("address", ":50051", "listen address")
	flags.String("duckdb", "", "DuckDB database path; empty for in-memory")
	flags.String("entities", "", "entity declarations YAML; empty for the built-in charity entities")
	flags.String("jwt-secret", "", "HS256 secret for bearer tokens; empty disables auth")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Uint64("max-page-size", 0, "maximum rows per query; 0 for no limit")
	flags.String("metrics-address", "", "Prometheus /metrics listen address; empty disables")
	flags.Bool("init-tables", false, "create missing entity tables on start")

	for key, flag := range map[string]string{
		"address":         "address",
		"duckdb.path":     "duckdb",
		"entities":        "entities",
		"jwt.secret":      "jwt-secret",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"max_page_size":   "max-page-size",
		"metrics.address": "metrics-address",
		"init_tables":     "init-tables",
	} {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)

	schema, err := loadSchema(cfg)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.InitTables {
		for _, e := range schema.Entities() {
			if err := store.CreateTable(ctx, e); err != nil {
				return fmt.Errorf("create table for %s: %w", e.Name(), err)
			}
		}
	}

	var authenticator auth.Authenticator
	if cfg.JWT.Secret != "" {
		var opts []auth.JWTOption
		if cfg.JWT.Issuer != "" {
			opts = append(opts, auth.WithIssuer(cfg.JWT.Issuer))
		}
		authenticator, err = auth.JWTAuth([]byte(cfg.JWT.Secret), opts...)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("No JWT secret configured; owner-scoped entities will reject every query")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	serverConfig := filterql.ServerConfig{
		Schema:         schema,
		Store:          store,
		Auth:           authenticator,
		Logger:         logger,
		Address:        cfg.PublicAddress,
		MaxMessageSize: cfg.MaxMessageMB << 20,
		MaxPageSize:    cfg.MaxPageSize,
		Registerer:     registry,
	}

	grpcServer := grpc.NewServer(filterql.ServerOptions(serverConfig)...)
	if err := filterql.NewServer(grpcServer, serverConfig); err != nil {
		return err
	}

	if cfg.Metrics.Address != "" {
		metricsServer := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("Metrics listening", "address", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		defer metricsServer.Close()
	}

	lis, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Address, err)
	}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down")
		grpcServer.GracefulStop()
	}()

	logger.Info("filterql listening", "address", lis.Addr().String(), "entities", len(schema.Entities()))
	return grpcServer.Serve(lis)
}

func loadSchema(cfg *config.Config) (catalog.Schema, error) {
	if cfg.Entities == "" {
		return entity.Schema(), nil
	}
	return catalog.LoadYAML(cfg.Entities)
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (tableStore, error) {
	if cfg.Postgres.DSN != "" {
		return postgres.Open(ctx, cfg.Postgres.DSN, logger)
	}
	return duckdb.Open(cfg.DuckDB.Path, logger)
}
