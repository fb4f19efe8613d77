package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"contactrelay/internal/config"
	"contactrelay/internal/contact"
	"contactrelay/internal/httpserver"
	"contactrelay/internal/outcome"
	"contactrelay/internal/relay"
	"contactrelay/internal/session"
	"contactrelay/internal/theme"
	"contactrelay/pkg/db"
	"contactrelay/pkg/logger"
	"contactrelay/pkg/mq"
	redisclient "contactrelay/pkg/redis"
	"contactrelay/pkg/util"
)

const (
	inflightPrefix  = "contact:inflight"
	defaultLockTTL  = 2 * time.Minute
	sweepInterval   = time.Minute
	shutdownTimeout = 30 * time.Second
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the contact-form HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flags.env, flags.configDir)
			if err != nil {
				return err
			}
			log := logger.NewLogger(flags.env)
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting contactd...",
		zap.String("listen", cfg.Server.Port),
		zap.Bool("relay_configured", cfg.Relay.Configured()),
		zap.Bool("delivery_log", cfg.DB.Enabled()),
		zap.Bool("outcome_events", cfg.MQ.URL != ""),
		zap.Bool("redis", cfg.Redis.Addr != ""),
	)

	var pingers []httpserver.Pinger
	var sinks []outcome.Sink

	// 投递日志（可选）
	if cfg.DB.Enabled() {
		pool, err := db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			return err
		}
		defer pool.Close()

		repo := outcome.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, outcome.RepositorySink{Repo: repo})
		pingers = append(pingers, pingerFunc{name: "db", ping: pool.Ping})
		log.Info("Delivery log enabled", zap.String("db_host", cfg.DB.Host))
	}

	// 结果事件（可选）
	if cfg.MQ.URL != "" {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return err
		}
		defer publisher.Close()

		sinks = append(sinks, outcome.EventSink{Publisher: publisher})
		pingers = append(pingers, pingerFunc{name: "mq", ping: func(context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("connection closed")
			}
			return nil
		}})
		log.Info("Outcome events enabled", zap.String("exchange", mq.ExchangeName))
	}

	// Redis：跨副本的提交锁和主题偏好；未配置或连不上时退回进程内实现
	var (
		locker     session.Locker = session.LocalLocker{}
		themeStore theme.Store    = theme.NewMemoryStore()
		rdb        *redis.Client
	)
	if cfg.Redis.Addr != "" {
		var err error
		rdb, err = redisclient.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, using in-process lock and theme store",
				zap.String("addr", cfg.Redis.Addr),
				zap.Error(err),
			)
		}
	}
	if rdb != nil {
		defer rdb.Close()

		lockTTL := cfg.Session.LockTTL
		if lockTTL <= 0 {
			lockTTL = defaultLockTTL
		}
		locker = util.NewInflightLock(rdb, inflightPrefix, lockTTL, log)
		themeStore = theme.NewRedisStore(rdb)
		pingers = append(pingers, redisPinger{rdb: rdb})
	}

	var reporter contact.Reporter
	if len(sinks) > 0 {
		reporter = outcome.NewReporter(log, sinks...)
	}

	relayClient := relay.NewClient(cfg.Relay.BaseURL, log, relay.WithPrivateKey(cfg.Relay.PrivateKey))
	if cfg.Relay.Configured() {
		relayClient.Init(cfg.Relay.PublicKey)
	} else {
		log.Warn("Relay credentials are placeholders, submissions run in demo mode")
	}

	dispatcherCfg := contact.Config{
		ServiceID:  cfg.Relay.ServiceID,
		TemplateID: cfg.Relay.TemplateID,
		ToName:     cfg.Relay.ToName,
		Configured: cfg.Relay.Configured(),
		Timeout:    cfg.Relay.Timeout,
	}
	registry := session.NewRegistry(func(formID string) *contact.Dispatcher {
		return contact.NewDispatcher(formID, dispatcherCfg, relayClient, reporter, log)
	}, cfg.Session.IdleTimeout, log)

	runCtx, stopRegistry := context.WithCancel(ctx)
	defer stopRegistry()
	registryDone := make(chan struct{})
	go func() {
		defer close(registryDone)
		registry.Run(runCtx, sweepInterval)
	}()

	issuer := session.NewIssuer(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	router := httpserver.NewRouter(
		httpserver.NewContactHandler(issuer, registry, locker, log),
		httpserver.NewThemeHandler(themeStore, log),
		issuer,
		pingers,
		log,
	)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			stopRegistry()
			<-registryDone
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	// 优雅退出
	log.Info("Shutting down contactd gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}
	stopRegistry()
	<-registryDone

	log.Info("contactd shutdown complete")
	return nil
}

type pingerFunc struct {
	name string
	ping func(context.Context) error
}

func (p pingerFunc) Name() string                   { return p.name }
func (p pingerFunc) Ping(ctx context.Context) error { return p.ping(ctx) }

type redisPinger struct {
	rdb *redis.Client
}

func (redisPinger) Name() string { return "redis" }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
