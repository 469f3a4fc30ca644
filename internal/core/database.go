// Package database acquires the user directory and session store backends.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/duynhne/credential-service/config"
	"github.com/duynhne/credential-service/internal/core/domain"
	"github.com/duynhne/credential-service/internal/core/repository"
)

// Connect constructs a pgx connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("db: empty connection string")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("db: parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("db: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db: ping: %w", err)
	}
	return pool, nil
}

// sqliteDSN carries the pragmas in the DSN so they apply to every pooled connection.
func sqliteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

// OpenSQLite opens the SQLite database at path and creates the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if err := repository.InitSQLiteSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize db: %w", err)
	}
	return db, nil
}

// Stores bundles the backends the auth service runs on.
// Close releases whatever connections were acquired for them.
type Stores struct {
	Users    domain.UserRepository
	Sessions domain.SessionStore
	// Ping reports backend health; nil for the memory driver.
	Ping  func(ctx context.Context) error
	Close func()
}

// OpenStores acquires the backends selected by cfg.Database.Driver.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		pool, err := Connect(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return &Stores{
			Users:    repository.NewUserRepository(pool),
			Sessions: repository.NewSessionStore(pool, cfg.Session.TTL),
			Ping:     pool.Ping,
			Close:    pool.Close,
		}, nil

	case config.DriverSQLite:
		db, err := OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, err
		}
		writeLock := new(sync.Mutex)
		return &Stores{
			Users:    repository.NewSQLiteUserRepository(db, writeLock),
			Sessions: repository.NewSQLiteSessionStore(db, writeLock, cfg.Session.TTL),
			Ping:     db.PingContext,
			Close:    func() { _ = db.Close() },
		}, nil

	case config.DriverMemory:
		return &Stores{
			Users:    repository.NewMemoryUserRepository(),
			Sessions: repository.NewMemorySessionStore(cfg.Session.TTL),
			Close:    func() {},
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Database.Driver)
	}
}
