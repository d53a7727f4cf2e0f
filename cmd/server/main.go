package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"messagely/internal/api"
	"messagely/internal/app/service"
	"messagely/internal/app/worker"
	"messagely/internal/common/security"
	"messagely/internal/domain/repository"
	"messagely/internal/platform/config"
	"messagely/internal/platform/database"
	"messagely/internal/platform/logger"
	"messagely/internal/platform/metrics"
	"messagely/internal/platform/queue"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Configuration
	cfg := config.Load()
	log := logger.SetupDefault(os.Stdout, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	// 3. Storage
	var (
		userRepo    repository.UserRepository
		messageRepo repository.MessageRepository
	)
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		userRepo, messageRepo = repository.NewMemoryRepositories()
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := database.Connect(ctx, cfg.DBConnStr)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		log.Info("database connected and migrated", "db", cfg.DBName)
		userRepo = repository.NewPgUserRepository(db)
		messageRepo = repository.NewPgMessageRepository(db)
	}

	// 4. Redis: profile cache and message events
	var (
		rdb    *redis.Client
		cache  = repository.NewNopProfileCache()
		events = service.NewNopEventPublisher()
	)
	if cfg.RedisEnabled {
		var err error
		rdb, err = queue.Connect(ctx, queue.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		cache = repository.NewRedisProfileCache(rdb, cfg.ProfileCacheTTL)
		events = service.NewRedisEventPublisher(rdb, cfg.MessageEventsQueue)
		log.Info("redis connected", "addr", cfg.RedisAddr)
	}

	// 5. Services
	tokens := security.NewTokenIssuer(cfg.JWTKey, cfg.JWTExp)
	users := service.NewUserService(userRepo, cache, security.NewPasswordHasher(cfg.BcryptCost), log)
	messages := service.NewMessageService(messageRepo, users, events, rec, log)
	auth := service.NewAuthService(users, tokens, rec, log)

	// 6. HTTP server
	router := api.NewRouter(tokens, api.Services{Auth: auth, Users: users, Messages: messages}, log, rec, metrics.Handler(reg))
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("could not listen on %s: %w", cfg.APIPort, err)
		}
		return nil
	})
	if rdb != nil {
		w := worker.NewNotificationWorker(rdb, cfg.MessageEventsQueue, worker.NewLogNotifier(log), rec, log)
		g.Go(func() error { return w.Start(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server and worker stopped gracefully")
	return nil
}
