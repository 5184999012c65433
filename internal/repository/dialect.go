package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
	DriverMySQL    = "mysql"
)

// dialect captures the SQL differences between the supported engines.
type dialect struct {
	name   string
	schema []string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLite, "sqlite3":
		return dialect{name: DriverSQLite, schema: sqliteSchema}, nil
	case DriverPostgres, "postgresql", DriverPgx:
		return dialect{name: DriverPostgres, schema: postgresSchema}, nil
	case DriverMySQL:
		return dialect{name: DriverMySQL, schema: mysqlSchema}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported store driver %q", driver)
	}
}

// sqlDriverName maps accepted aliases to the name the driver registered.
func sqlDriverName(driver string) string {
	switch driver {
	case "sqlite3":
		return DriverSQLite
	case "postgresql":
		return DriverPostgres
	default:
		return driver
	}
}

// upsert builds "INSERT ... ON CONFLICT/DUPLICATE KEY UPDATE" for table. Only
// the columns in update are overwritten on an existing row.
func (d dialect) upsert(table, key string, insert, update []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(insert, ", "), placeholders(len(insert)))

	sets := make([]string, 0, len(update))
	for _, col := range update {
		sets = append(sets, fmt.Sprintf("%s = %s", col, d.excluded(col)))
	}

	if d.name == DriverMySQL {
		fmt.Fprintf(&b, " ON DUPLICATE KEY UPDATE %s", strings.Join(sets, ", "))
	} else {
		fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(sets, ", "))
	}
	return b.String()
}

func (d dialect) excluded(col string) string {
	if d.name == DriverMySQL {
		return "VALUES(" + col + ")"
	}
	return "excluded." + col
}

// supportsReturning reports whether INSERT ... RETURNING is used to read ids.
func (d dialect) supportsReturning() bool {
	return d.name == DriverPostgres
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// isUniqueViolation reports whether err is a primary key or unique index
// conflict on any supported engine.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS cosmetics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type_value TEXT NOT NULL,
		type_display TEXT NOT NULL,
		rarity_value TEXT NOT NULL,
		rarity_display TEXT NOT NULL,
		series_value TEXT NOT NULL DEFAULT '',
		series_image TEXT NOT NULL DEFAULT '',
		image_small TEXT NOT NULL DEFAULT '',
		image_icon TEXT NOT NULL DEFAULT '',
		image_featured TEXT NOT NULL DEFAULT '',
		added_at DATETIME,
		price INTEGER NOT NULL DEFAULT 0,
		in_shop BOOLEAN NOT NULL DEFAULT FALSE,
		is_new BOOLEAN NOT NULL DEFAULT FALSE,
		is_bundle BOOLEAN NOT NULL DEFAULT FALSE,
		contained_item_ids TEXT NOT NULL DEFAULT '[]',
		bundle_name TEXT NOT NULL DEFAULT '',
		bundle_info TEXT NOT NULL DEFAULT '',
		bundle_image TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_in_shop ON cosmetics(in_shop)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_is_new ON cosmetics(is_new)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_name ON cosmetics(name)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		balance INTEGER NOT NULL CHECK (balance >= 0),
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ownerships (
		user_id TEXT NOT NULL,
		cosmetic_id TEXT NOT NULL,
		purchase_price INTEGER NOT NULL,
		purchased_at DATETIME NOT NULL,
		refunded BOOLEAN NOT NULL DEFAULT FALSE,
		refunded_at DATETIME,
		parent_bundle_id TEXT,
		PRIMARY KEY (user_id, cosmetic_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ownerships_parent ON ownerships(user_id, parent_bundle_id, refunded)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		trigger_source TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		catalog_items INTEGER NOT NULL DEFAULT 0,
		shop_items INTEGER NOT NULL DEFAULT 0,
		new_items INTEGER NOT NULL DEFAULT 0,
		dropped_records INTEGER NOT NULL DEFAULT 0,
		unresolved_bundles INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS cosmetics (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type_value TEXT NOT NULL,
		type_display TEXT NOT NULL,
		rarity_value TEXT NOT NULL,
		rarity_display TEXT NOT NULL,
		series_value TEXT NOT NULL DEFAULT '',
		series_image TEXT NOT NULL DEFAULT '',
		image_small TEXT NOT NULL DEFAULT '',
		image_icon TEXT NOT NULL DEFAULT '',
		image_featured TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMPTZ,
		price INTEGER NOT NULL DEFAULT 0,
		in_shop BOOLEAN NOT NULL DEFAULT FALSE,
		is_new BOOLEAN NOT NULL DEFAULT FALSE,
		is_bundle BOOLEAN NOT NULL DEFAULT FALSE,
		contained_item_ids TEXT NOT NULL DEFAULT '[]',
		bundle_name TEXT NOT NULL DEFAULT '',
		bundle_info TEXT NOT NULL DEFAULT '',
		bundle_image TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_in_shop ON cosmetics(in_shop)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_is_new ON cosmetics(is_new)`,
	`CREATE INDEX IF NOT EXISTS idx_cosmetics_name ON cosmetics(name)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		balance INTEGER NOT NULL CHECK (balance >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ownerships (
		user_id TEXT NOT NULL,
		cosmetic_id TEXT NOT NULL,
		purchase_price INTEGER NOT NULL,
		purchased_at TIMESTAMPTZ NOT NULL,
		refunded BOOLEAN NOT NULL DEFAULT FALSE,
		refunded_at TIMESTAMPTZ,
		parent_bundle_id TEXT,
		PRIMARY KEY (user_id, cosmetic_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ownerships_parent ON ownerships(user_id, parent_bundle_id, refunded)`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id BIGSERIAL PRIMARY KEY,
		trigger_source TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		catalog_items INTEGER NOT NULL DEFAULT 0,
		shop_items INTEGER NOT NULL DEFAULT 0,
		new_items INTEGER NOT NULL DEFAULT 0,
		dropped_records INTEGER NOT NULL DEFAULT 0,
		unresolved_bundles INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	)`,
}

// MySQL cannot index or default TEXT columns, so keys are VARCHAR.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS cosmetics (
		id VARCHAR(191) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		type_value VARCHAR(64) NOT NULL,
		type_display VARCHAR(128) NOT NULL,
		rarity_value VARCHAR(64) NOT NULL,
		rarity_display VARCHAR(128) NOT NULL,
		series_value VARCHAR(128) NOT NULL DEFAULT '',
		series_image VARCHAR(512) NOT NULL DEFAULT '',
		image_small VARCHAR(512) NOT NULL DEFAULT '',
		image_icon VARCHAR(512) NOT NULL DEFAULT '',
		image_featured VARCHAR(512) NOT NULL DEFAULT '',
		added_at DATETIME(6) NULL,
		price INT NOT NULL DEFAULT 0,
		in_shop BOOLEAN NOT NULL DEFAULT FALSE,
		is_new BOOLEAN NOT NULL DEFAULT FALSE,
		is_bundle BOOLEAN NOT NULL DEFAULT FALSE,
		contained_item_ids TEXT NOT NULL,
		bundle_name VARCHAR(255) NOT NULL DEFAULT '',
		bundle_info VARCHAR(512) NOT NULL DEFAULT '',
		bundle_image VARCHAR(512) NOT NULL DEFAULT '',
		INDEX idx_cosmetics_in_shop (in_shop),
		INDEX idx_cosmetics_is_new (is_new),
		INDEX idx_cosmetics_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR(64) PRIMARY KEY,
		username VARCHAR(191) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		balance INT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		CONSTRAINT chk_accounts_balance CHECK (balance >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS ownerships (
		user_id VARCHAR(64) NOT NULL,
		cosmetic_id VARCHAR(191) NOT NULL,
		purchase_price INT NOT NULL,
		purchased_at DATETIME(6) NOT NULL,
		refunded BOOLEAN NOT NULL DEFAULT FALSE,
		refunded_at DATETIME(6) NULL,
		parent_bundle_id VARCHAR(191) NULL,
		PRIMARY KEY (user_id, cosmetic_id),
		INDEX idx_ownerships_parent (user_id, parent_bundle_id, refunded)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS sync_runs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		trigger_source VARCHAR(32) NOT NULL,
		status VARCHAR(16) NOT NULL,
		started_at DATETIME(6) NOT NULL,
		finished_at DATETIME(6) NULL,
		catalog_items INT NOT NULL DEFAULT 0,
		shop_items INT NOT NULL DEFAULT 0,
		new_items INT NOT NULL DEFAULT 0,
		dropped_records INT NOT NULL DEFAULT 0,
		unresolved_bundles INT NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}
