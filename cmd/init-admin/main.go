// init-admin создает первого администратора из ADMIN_EMAIL и ADMIN_PASSWORD,
// если в системе еще нет ни одного.
package main

import (
	"context"
	"time"

	"tenderportal/internal/app"
	"tenderportal/internal/auth"
	"tenderportal/internal/config"
	"tenderportal/internal/logger"
	"tenderportal/internal/service"

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

	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		log.Fatal("ADMIN_EMAIL and ADMIN_PASSWORD must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, closeStore, err := app.OpenStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatalf("open storage: %v", err)
	}
	defer closeStore()

	authSvc := service.NewAuthService(store, auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), nil)
	created, err := authSvc.EnsureAdmin(ctx, service.RegisterInput{
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
		FullName: cfg.Admin.FullName,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	if !created {
		log.Info("admin already exists, nothing to do")
		return
	}
	log.WithField("email", cfg.Admin.Email).Info("admin created")
}
