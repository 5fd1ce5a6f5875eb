package server

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/sngm3741/hushmap-services/api/internal/config"
	mongostore "github.com/sngm3741/hushmap-services/api/internal/infrastructure/mongo"
	"github.com/sngm3741/hushmap-services/api/internal/infrastructure/sqlstore"
	"github.com/sngm3741/hushmap-services/api/internal/noise/application"
)

// Backend はストア実装を抽象化し、リポジトリと疎通確認・終了処理を束ねる。
type Backend struct {
	Name    string
	Reports application.ReportRepository
	Zones   application.ZoneRepository
	ping    func(context.Context) error
	close   func() error
	dropAll func(context.Context) error
}

func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

func (b *Backend) Close() error {
	return b.close()
}

// DropAll は全データを削除する。シード用途。
func (b *Backend) DropAll(ctx context.Context) error {
	return b.dropAll(ctx)
}

// OpenBackend は STORE_DRIVER に応じて SQLite / PostgreSQL / MongoDB のいずれかへ接続する。
func OpenBackend(ctx context.Context, cfg config.Config, logger *log.Logger) (*Backend, error) {
	switch cfg.StoreDriver {
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		dsn := cfg.DatabaseURL
		if cfg.StoreDriver == sqlstore.DriverSQLite {
			dsn = cfg.DatabasePath
			if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create database directory: %w", err)
				}
			}
		}
		store, err := sqlstore.Open(ctx, sqlstore.Config{Driver: cfg.StoreDriver, DSN: dsn, Logger: logger})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Name:    cfg.StoreDriver,
			Reports: store.Reports(),
			Zones:   store.Zones(),
			ping:    store.Ping,
			close:   store.Close,
			dropAll: store.DropAll,
		}, nil

	case "mongo":
		store, err := mongostore.Open(ctx, mongostore.Config{
			URI:              cfg.MongoURI,
			Database:         cfg.MongoDatabase,
			ReportCollection: cfg.ReportCollection,
			ZoneCollection:   cfg.ZoneCollection,
			RatingCollection: cfg.RatingCollection,
			Logger:           logger,
		})
		if err != nil {
			return nil, err
		}
		return &Backend{
			Name:    "mongo",
			Reports: store.Reports(),
			Zones:   store.Zones(),
			ping:    store.Ping,
			close:   store.Close,
			dropAll: store.DropAll,
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
}
