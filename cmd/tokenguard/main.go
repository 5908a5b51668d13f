package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	otelglobal "go.opentelemetry.io/otel"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/api"
	"github.com/MrEthical07/tokenguard/directory"
	"github.com/MrEthical07/tokenguard/metrics/export/otel"
	"github.com/MrEthical07/tokenguard/metrics/export/prometheus"
	"github.com/MrEthical07/tokenguard/storage/sqlstore"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts, err := loadOptions(args, os.Getenv)
	if err != nil {
		return err
	}

	log := tokenguard.NewLogger(opts.auth.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, closeRedis, err := openRedis(opts.server, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	hasher, err := opts.auth.PasswordHasher()
	if err != nil {
		return err
	}

	builder := tokenguard.New().
		WithConfig(opts.auth).
		WithRedis(rdb).
		WithHasher(hasher).
		WithLogger(log)
	if opts.auth.Audit.Enabled {
		builder.WithAuditSink(tokenguard.NewLogrusSink(log.WithField("component", "audit")))
	}

	ready := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }

	if opts.server.PostgresDSN != "" {
		db, err := sqlstore.Open(opts.server.PostgresDSN, sqlstore.Options{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		})
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer func() { _ = sqlDB.Close() }()

		revocations := sqlstore.NewRevocationStore(db)
		builder.
			WithDirectory(sqlstore.NewDirectory(db, hasher)).
			WithRevocationStore(revocations)
		go sqlstore.NewPurger(revocations, opts.server.PurgeInterval, log).Run(ctx)

		redisReady := ready
		ready = func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return redisReady(ctx)
		}
		log.Info("using postgres for users and revocations")
	} else {
		builder.WithDirectory(directory.NewRedisDirectory(rdb, hasher, ""))
	}

	auth, err := builder.Build()
	if err != nil {
		return err
	}
	defer auth.Close()

	routerOpts := api.Options{
		AllowedOrigins: opts.server.AllowedOrigins,
		TrustProxy:     opts.server.TrustProxy,
		Ready:          ready,
		Logger:         log,
	}
	if opts.auth.Metrics.Enabled {
		routerOpts.Metrics = prometheus.Handler(auth)
		if opts.server.OTel {
			exp, err := otel.NewExporter(otelglobal.GetMeterProvider().Meter("github.com/MrEthical07/tokenguard"), auth)
			if err != nil {
				return err
			}
			defer func() { _ = exp.Close() }()
		}
	}

	srv := &http.Server{
		Addr:              opts.server.Addr,
		Handler:           api.NewRouter(auth, routerOpts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRedis connects to the configured server, or starts an in-process
// miniredis when no address is set. The embedded store loses all users and
// revocations on exit.
func openRedis(cfg serverConfig, log logrus.FieldLogger) (redis.UniversalClient, func(), error) {
	addr := cfg.RedisAddr
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start embedded redis: %w", err)
		}
		addr = mr.Addr()
		log.WithField("addr", addr).Warn("no redis address configured, using embedded miniredis")
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return client, cleanup, nil
}
