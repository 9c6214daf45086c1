package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenderportal/internal/app"
	"tenderportal/internal/auth"
	"tenderportal/internal/config"
	"tenderportal/internal/handlers"
	"tenderportal/internal/license"
	"tenderportal/internal/logger"
	"tenderportal/internal/scheduler"
	"tenderportal/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("init logger: %v", err)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := app.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer closeStore()

	checker := license.NewChecker(
		license.NewClient(cfg.License.ServerURL, cfg.License.ProductName, cfg.License.Timeout),
		store,
		cfg.License.Key,
		licenseCache(ctx, cfg.Redis, log),
		cfg.License.CacheTTL,
	)
	if cfg.License.ServerURL == "" {
		log.Warn("LICENSE_SERVER_URL is not set, license check disabled")
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	tenders := service.NewTenderService(store, checker.Gate)
	bids := service.NewBidService(store, checker.Gate)
	authSvc := service.NewAuthService(store, tokens, checker.Gate)
	h := handlers.NewHandler(tenders, bids, service.NewUserService(store), authSvc, checker)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		created, err := authSvc.EnsureAdmin(ctx, service.RegisterInput{
			Email:    cfg.Admin.Email,
			Password: cfg.Admin.Password,
			FullName: cfg.Admin.FullName,
		})
		if err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		if created {
			log.WithField("email", cfg.Admin.Email).Info("initial admin created")
		}
	}

	sched := scheduler.New(tenders, cfg.Scheduler.DeadlineSweep, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("start scheduler: %v", err)
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           h.Routes(authSvc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Starting server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// licenseCache: Redis, если задан REDIS_ADDR и он доступен, иначе память.
func licenseCache(ctx context.Context, cfg config.RedisConfig, log *logrus.Logger) license.Cache {
	if cfg.Addr == "" {
		return license.NewMemoryCache()
	}
	cache := license.NewRedisCache(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}), cfg.Prefix)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := cache.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("redis is unavailable, falling back to in-memory license cache")
		return license.NewMemoryCache()
	}
	return cache
}
