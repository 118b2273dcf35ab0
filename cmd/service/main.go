package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"setlist-service/internal/auth"
	"setlist-service/internal/config"
	"setlist-service/internal/logger"
	"setlist-service/internal/realtime"
	"setlist-service/internal/setlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		os.Stderr.WriteString("setlist-service: config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		os.Stderr.WriteString("setlist-service: logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, notifier, cleanup, err := buildBackends(ctx, cfg, log)
	if err != nil {
		log.Fatal("setlist-service: init backends", "error", err)
	}
	defer cleanup()

	engine := setlist.NewEngine(store, notifier, log, setlist.WithMaxWriteRetries(cfg.MaxWriteRetries))

	hub := realtime.NewHub()
	ws := realtime.NewServer(ctx, hub, engine, log, cfg.CORSAllowedOrigin)

	srv := setlist.NewServer(engine, log, auth.Middleware([]byte(cfg.JWTSecret)), ws)
	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		requestLogMiddleware(log),
		middleware.Recoverer,
		corsMiddleware(cfg.CORSAllowedOrigin),
		bodySizeLimitMiddleware(1<<20),
	)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("setlist-service listening", "port", cfg.Port, "store", cfg.Store)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("setlist-service: stopped", "error", err)
	}
}

// buildBackends picks the store and notifier for cfg.Store.
func buildBackends(ctx context.Context, cfg config.Config, log *logger.Logger) (setlist.Store, setlist.Notifier, func(), error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("setlist-service: using in-memory store, data is lost on restart")
		return setlist.NewMemoryStore(), setlist.NewLocalNotifier(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := setlist.AutoMigrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	rdb := redis.NewClient(opt)

	cleanup := func() {
		_ = rdb.Close()
		pool.Close()
	}
	return setlist.NewPostgresStore(pool), setlist.NewRedisNotifier(rdb, log), cleanup, nil
}
