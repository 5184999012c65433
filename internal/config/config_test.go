package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "./data/cosmetics.db", cfg.Store.DSN())
	assert.Equal(t, time.Hour, cfg.Sync.Interval)
	assert.Equal(t, 10*time.Second, cfg.Sync.StartupDelay)
	assert.Equal(t, 10000, cfg.Ledger.StartingBalance)
	assert.Equal(t, "https://fortnite-api.com/v2", cfg.Upstream.BaseURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("STORE_HOST", "db")
	t.Setenv("STORE_PORT", "3306")
	t.Setenv("STORE_USER", "root")
	t.Setenv("STORE_PASS", "pw")
	t.Setenv("SYNC_INTERVAL", "30m")
	t.Setenv("STARTING_BALANCE", "500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "root:pw@tcp(db:3306)/cosmetics?parseTime=true", cfg.Store.DSN())
	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 500, cfg.Ledger.StartingBalance)
}

func TestPostgresDSN(t *testing.T) {
	s := StoreConfig{Driver: "pgx", User: "u", Password: "p", Host: "h", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/n?sslmode=disable", s.DSN())
}

func TestValidate(t *testing.T) {
	t.Setenv("STARTING_BALANCE", "-1")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateProductionSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "s3cret")
	_, err = Load()
	assert.NoError(t, err)
}
