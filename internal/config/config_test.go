package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, DriverFile, cfg.StoreDriver)
	assert.Equal(t, "db.json", cfg.DBPath)
	assert.Equal(t, 20*24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.False(t, cfg.IsSQL())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("JWT_SECRET=from-file\nPORT=7000\nMOCK_EMAIL=dev@example.com\n"), 0o600))

	t.Setenv("CONFIG_FILE", envFile)
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "dev@example.com", cfg.MockEmail)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			JWTSecret:   "s3cret",
			JWTExpiry:   time.Hour,
			BcryptCost:  10,
			StoreDriver: DriverFile,
			DBPath:      "db.json",
		}
	}

	require.NoError(t, valid().Validate())

	cfg := valid()
	cfg.JWTSecret = ""
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg = valid()
	cfg.StoreDriver = "mongo"
	assert.ErrorContains(t, cfg.Validate(), "STORE_DRIVER")

	cfg = valid()
	cfg.StoreDriver = DriverSQLite
	cfg.DBDSN = ""
	assert.ErrorContains(t, cfg.Validate(), "DB_DSN")

	cfg = valid()
	cfg.BcryptCost = 2
	assert.ErrorContains(t, cfg.Validate(), "BCRYPT_COST")
}
