// Package sqlstore persists reports, quiet zones and ratings through
// database/sql. SQLite (modernc, no cgo) and PostgreSQL (pgx) share one schema.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the backend. DSN is a file path (or ":memory:") for
// SQLite and a connection URL for PostgreSQL.
type Config struct {
	Driver string
	DSN    string
	Logger *log.Logger
}

// Store owns the *sql.DB and hands out the repositories bound to it.
type Store struct {
	db       *sql.DB
	postgres bool
	logger   *log.Logger
}

// Open connects, applies connection tuning and creates the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	var sqlDriver string
	switch driver {
	case DriverSQLite, "sqlite3":
		driver = DriverSQLite
		sqlDriver = "sqlite"
	case DriverPostgres, "pgx", "postgresql":
		driver = DriverPostgres
		sqlDriver = "pgx"
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("%s DSN is empty", driver)
	}

	db, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	s := &Store{db: db, postgres: driver == DriverPostgres, logger: cfg.Logger}
	if !s.postgres {
		// one physical connection: serialises writers and keeps :memory: alive
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
		if err := s.tuneSQLite(ctx, cfg.DSN); err != nil {
			db.Close()
			return nil, err
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) tuneSQLite(ctx context.Context, dsn string) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if !strings.Contains(dsn, ":memory:") {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL", "PRAGMA synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite %q: %w", p, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS noise_reports (
		id TEXT PRIMARY KEY,
		user_id TEXT,
		city TEXT NOT NULL DEFAULT 'coimbatore',
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		decibel_level INTEGER NOT NULL CHECK (decibel_level BETWEEN 0 AND 150),
		noise_category TEXT NOT NULL CHECK (noise_category IN ('low', 'medium', 'high', 'extreme')),
		noise_source TEXT,
		description TEXT,
		occurred_at TEXT NOT NULL,
		occurred_unix BIGINT NOT NULL,
		created_unix BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_noise_reports_location ON noise_reports (latitude, longitude)`,
	`CREATE INDEX IF NOT EXISTS idx_noise_reports_occurred ON noise_reports (occurred_unix)`,
	`CREATE INDEX IF NOT EXISTS idx_noise_reports_city ON noise_reports (city)`,
	`CREATE TABLE IF NOT EXISTS quiet_zones (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT NOT NULL DEFAULT 'coimbatore',
		type TEXT NOT NULL CHECK (type IN ('park', 'library', 'cafe', 'workspace', 'nature')),
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		avg_decibels INTEGER,
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		description TEXT,
		amenities TEXT,
		best_time TEXT,
		created_by TEXT,
		created_unix BIGINT NOT NULL,
		updated_unix BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_quiet_zones_city ON quiet_zones (city)`,
	`CREATE TABLE IF NOT EXISTS zone_ratings (
		id TEXT PRIMARY KEY,
		zone_id TEXT NOT NULL REFERENCES quiet_zones (id) ON DELETE CASCADE,
		user_id TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		comment TEXT,
		created_unix BIGINT NOT NULL,
		updated_unix BIGINT NOT NULL,
		UNIQUE (zone_id, user_id)
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Ping is the liveness probe used by /health.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DropAll empties every table. Used by the seed command.
func (s *Store) DropAll(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"zone_ratings", "quiet_zones", "noise_reports"} {
			if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Reports returns the report repository bound to this store.
func (s *Store) Reports() *ReportRepository {
	return &ReportRepository{store: s}
}

// Zones returns the quiet zone repository bound to this store.
func (s *Store) Zones() *ZoneRepository {
	return &ZoneRepository{store: s}
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// withTx runs fn in a transaction, rolling back on any error.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) && s.logger != nil {
				s.logger.Printf("sqlstore: rollback failed: %v", rbErr)
			}
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

// likePattern escapes LIKE wildcards and wraps the value for a substring match.
func likePattern(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(v)) + "%"
}
