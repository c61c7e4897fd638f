package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/expiry-tracker/db/ent/schema"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
)

type Config struct {
	DSN              string
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ConfigFrom picks the database settings out of the application config.
func ConfigFrom(c common.DatabaseConfig) Config {
	return Config{
		DSN:              c.DSN,
		SQLitePath:       c.SQLitePath,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// DB bundles the ent SQL driver with the dialect it speaks.
type DB struct {
	Driver  *entsql.Driver
	Dialect string
	pool    *pgxpool.Pool
	logger  *slog.Logger
}

// Open connects to PostgreSQL when a DSN is configured and falls back to the
// embedded SQLite file otherwise. The schema is created before returning.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	var (
		db  *DB
		err error
	)
	if strings.TrimSpace(cfg.DSN) != "" {
		db, err = openPostgres(ctx, cfg, logger)
	} else {
		db, err = OpenSQLite(cfg.SQLitePath, logger)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	logger.Info("connecting to database", "dialect", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database dsn", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "expiry-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, fmt.Errorf("%w: %w", common.ErrDatabase, err)
	}

	// Wrap pool as *sql.DB for the ent driver
	sqldb := stdlib.OpenDBFromPool(pool)
	logger.Info("successfully connected to database")
	return &DB{
		Driver:  entsql.OpenDB(dialect.Postgres, sqldb),
		Dialect: dialect.Postgres,
		pool:    pool,
		logger:  logger,
	}, nil
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" is accepted.
func OpenSQLite(path string, logger *slog.Logger) (*DB, error) {
	if path == "" {
		path = "./expiry.db"
	}
	logger.Info("opening sqlite database", "path", path)
	sqldb, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", common.ErrDatabase, err)
	}
	// a single writer avoids SQLITE_BUSY between pooled connections
	sqldb.SetMaxOpenConns(1)
	return &DB{
		Driver:  entsql.OpenDB(dialect.SQLite, sqldb),
		Dialect: dialect.SQLite,
		logger:  logger,
	}, nil
}

const createProducts = `CREATE TABLE IF NOT EXISTS products (
	id VARCHAR(36) PRIMARY KEY,
	owner TEXT NOT NULL DEFAULT '',
	name TEXT NULL,
	expiry_date VARCHAR(10) NULL,
	manufacturer TEXT NULL,
	batch_number TEXT NULL,
	confidence VARCHAR(16) NOT NULL DEFAULT 'none',
	raw_text TEXT NULL,
	source_path TEXT NULL,
	content_hash VARCHAR(64) NULL,
	deleted BOOLEAN NOT NULL DEFAULT FALSE,
	created_at VARCHAR(40) NOT NULL,
	updated_at VARCHAR(40) NOT NULL
)`

// productDDL creates the table, then one index per index declared on the ent schema.
func productDDL() []string {
	stmts := []string{createProducts}
	for _, cols := range schema.IndexColumns(schema.Product{}) {
		stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s ON %s (%s)",
			productsTable, strings.Join(cols, "_"), productsTable, strings.Join(cols, ", ")))
	}
	return stmts
}

// Migrate creates the products table and its indexes if missing.
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range productDDL() {
		if err := d.Driver.Exec(ctx, stmt, []any{}, nil); err != nil {
			d.logger.Error("schema migration failed", "error", err)
			return fmt.Errorf("%w: migrate: %w", common.ErrDatabase, err)
		}
	}
	d.logger.Debug("schema up to date", "dialect", d.Dialect)
	return nil
}

// Close closes the database connections gracefully
func (d *DB) Close() {
	if d == nil {
		return
	}
	d.logger.Info("closing database connections")
	if err := d.Driver.Close(); err != nil {
		d.logger.Error("failed to close database driver", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
	d.logger.Info("database connections closed")
}

// HealthCheck pings the database to catch DSN issues early.
func (d *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	d.logger.Debug("pinging database")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	var err error
	if d.pool != nil {
		err = d.pool.Ping(ctx)
	} else {
		err = d.Driver.DB().PingContext(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: ping: %w", common.ErrUnavailable, err)
	}
	d.logger.Debug("database ping successful")
	return nil
}
