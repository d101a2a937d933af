package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cli "github.com/urfave/cli/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/plugin/opentelemetry/tracing"

	lbcache "github.com/ecoguardian-in/core/leaderboard-cache"
	"github.com/ecoguardian-in/core/rpc"
	"github.com/ecoguardian-in/core/service"
	"github.com/ecoguardian-in/core/store"
	"github.com/ecoguardian-in/core/types"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {
	app := cli.App{
		Name:    "guardiand",
		Usage:   "guardian reputation and impact scoring daemon",
		Version: versioninfo.Short(),
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "database connection string (sqlite:// or postgres://)",
			Value:   "sqlite://data/guardiand/guardian.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			Value:   40,
			EnvVars: []string{"GUARDIAN_MAX_DB_CONNECTIONS", "MAX_DB_CONNECTIONS"},
		},
		&cli.BoolFlag{
			Name:    "db-tracing",
			Usage:   "emit a span per database query",
			EnvVars: []string{"GUARDIAN_DB_TRACING"},
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			Value:   "info",
			EnvVars: []string{"GUARDIAN_LOG_LEVEL", "LOG_LEVEL"},
		},
	}

	app.Commands = []*cli.Command{
		runCmd,
		rebuildCmd,
		tablesCmd,
	}

	return app.Run(args)
}

func configLogger(cctx *cli.Context) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cctx.String("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cctx.String("log-level"), err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

func openStore(cctx *cli.Context) (*store.Store, error) {
	db, err := store.Open(cctx.String("database-url"), cctx.Int("max-db-connections"))
	if err != nil {
		return nil, err
	}
	if cctx.Bool("db-tracing") {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}
	return store.New(db)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the gRPC service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "grpc-listen",
			Usage:   "IP or address, and port, to listen on for gRPC",
			Value:   ":7070",
			EnvVars: []string{"GUARDIAN_GRPC_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":7071",
			EnvVars: []string{"GUARDIAN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis for the shared leaderboard cache; in-process cache if unset",
			EnvVars: []string{"GUARDIAN_REDIS_URL", "REDIS_URL"},
		},
		&cli.DurationFlag{
			Name:    "leaderboard-cache-ttl",
			Value:   lbcache.DefaultTTL,
			EnvVars: []string{"GUARDIAN_LEADERBOARD_CACHE_TTL"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx, stop := signal.NotifyContext(cctx.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger, err := configLogger(cctx)
		if err != nil {
			return err
		}

		shutdownTracing, err := configOTEL(ctx, "guardiand")
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdownTracing(ctx); err != nil {
				logger.Error("failed to shutdown trace exporter", "err", err)
			}
		}()

		st, err := openStore(cctx)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()
		if err := st.Ping(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}

		var cache lbcache.Cache
		ttl := cctx.Duration("leaderboard-cache-ttl")
		if url := cctx.String("redis-url"); url != "" {
			rc, err := lbcache.NewRedisCache(ctx, url, ttl)
			if err != nil {
				return err
			}
			defer rc.Close()
			cache = rc
			logger.Info("using redis leaderboard cache", "ttl", ttl)
		} else {
			cache = lbcache.NewMemCache(1024, ttl)
		}

		engine := service.NewEngine(st, cache, logger)

		srv := grpc.NewServer(grpc.UnaryInterceptor(rpc.UnaryInterceptor(logger)))
		rpc.Register(srv, rpc.NewServer(engine))
		hs := health.NewServer()
		healthpb.RegisterHealthServer(srv, hs)
		hs.SetServingStatus(rpc.ServiceName, healthpb.HealthCheckResponse_SERVING)

		lis, err := net.Listen("tcp", cctx.String("grpc-listen"))
		if err != nil {
			return fmt.Errorf("listening for gRPC: %w", err)
		}

		metricsSrv := &http.Server{Addr: cctx.String("metrics-listen")}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv.Handler = mux
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to start metrics endpoint", "err", err)
			}
		}()

		errCh := make(chan error, 1)
		go func() {
			logger.Info("serving gRPC", "addr", lis.Addr().String(), "version", versioninfo.Short())
			errCh <- srv.Serve(lis)
		}()

		select {
		case <-ctx.Done():
			logger.Info("shutting down")
		case err := <-errCh:
			return fmt.Errorf("gRPC server: %w", err)
		}

		hs.Shutdown()
		srv.GracefulStop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	},
}

var rebuildCmd = &cli.Command{
	Name:      "rebuild",
	Usage:     "replay guardians' activity logs and repair drifted profiles",
	ArgsUsage: "<user-id>...",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() == 0 {
			return fmt.Errorf("at least one user id is required")
		}
		logger, err := configLogger(cctx)
		if err != nil {
			return err
		}
		st, err := openStore(cctx)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer st.Close()

		engine := service.NewEngine(st, nil, logger)
		enc := json.NewEncoder(os.Stdout)
		for _, id := range cctx.Args().Slice() {
			res, err := engine.Rebuild(cctx.Context, types.UserID(id))
			if err != nil {
				return fmt.Errorf("rebuilding %s: %w", id, err)
			}
			if err := enc.Encode(map[string]any{
				"user_id": id,
				"drift":   res.Drift,
				"points":  res.Profile.Points,
				"rank":    res.Profile.Rank,
			}); err != nil {
				return err
			}
		}
		return nil
	},
}

var tablesCmd = &cli.Command{
	Name:  "tables",
	Usage: "print the point, rank, badge and outcome tables",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "print as JSON",
		},
	},
	Action: func(cctx *cli.Context) error {
		t := buildTables()
		if cctx.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		}
		fmt.Print(strings.TrimLeft(t.String(), "\n"))
		return nil
	},
}
