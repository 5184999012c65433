package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // Pure Go SQLite driver - no CGO required
)

// Options selects and configures the backing engine.
type Options struct {
	Driver string
	DSN    string
}

// Store implements every repository interface on one SQL database.
type Store struct {
	db      *sqlx.DB
	dialect dialect
	log     logrus.FieldLogger
}

// Open connects to the configured engine and creates missing tables.
func Open(ctx context.Context, opts Options, log logrus.FieldLogger) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.DSN
	if d.name == DriverSQLite {
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", dsn)
	}

	db, err := sql.Open(sqlDriverName(opts.Driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", opts.Driver, err)
	}

	if d.name == DriverSQLite {
		// SQLite only supports 1 writer
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", opts.Driver, err)
	}

	s, err := New(db, opts.Driver, log)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	s.log.WithField("driver", opts.Driver).Info("Store initialized")
	return s, nil
}

// New wraps an already open database. It does not create tables.
func New(db *sql.DB, driver string, log logrus.FieldLogger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{
		db:      sqlx.NewDb(db, sqlDriverName(driver)),
		dialect: d,
		log:     log.WithField("component", "store"),
	}, nil
}

// Migrate creates tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Driver returns the dialect name in use.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

var (
	_ CatalogRepository = (*Store)(nil)
	_ AccountRepository = (*Store)(nil)
	_ LedgerRepository  = (*Store)(nil)
	_ SyncRunRepository = (*Store)(nil)
	_ CatalogWriter     = (*catalogTx)(nil)
	_ LedgerTx          = (*ledgerTx)(nil)
)
