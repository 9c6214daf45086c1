// Package app собирает зависимости, общие для бинарников.
package app

import (
	"context"
	"fmt"
	"time"

	"tenderportal/db"
	"tenderportal/db/memory"
	"tenderportal/db/migrations"
	"tenderportal/internal/config"
	"tenderportal/internal/service"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// OpenStore открывает хранилище по STORAGE_DRIVER. Для postgres применяет
// миграции. Возвращаемая функция закрывает соединение.
func OpenStore(ctx context.Context, cfg config.StorageConfig, log *logrus.Logger) (service.Store, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		dbConn, err := sqlx.ConnectContext(connectCtx, "postgres", cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to DB: %w", err)
		}
		dbConn.SetMaxOpenConns(25)
		dbConn.SetMaxIdleConns(5)
		dbConn.SetConnMaxLifetime(30 * time.Minute)

		if err := migrations.Run(dbConn.DB, log); err != nil {
			dbConn.Close()
			return nil, nil, err
		}
		return db.NewStorage(dbConn), func() { dbConn.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
