package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFrom_DatabaseFile(t *testing.T) {
	dir := t.TempDir()
	dbFile := writeFile(t, dir, "Vaidhya_db.txt", `{
		"user": "pos",
		"host": "db.internal",
		"database": "vaidhya",
		"password": "secret",
		"port": 5433,
		"max": 20,
		"idleTimeoutMillis": 30000,
		"connectionTimeoutMillis": 2000
	}`)
	t.Setenv("DATABASE_CONFIG_FILE", dbFile)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "vaidhya", cfg.Database.Name)
	assert.Equal(t, "pos", cfg.Database.User)
	assert.Equal(t, "secret", cfg.Database.Password)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30, cfg.Database.ConnMaxIdleTime)
	assert.Equal(t, 2, cfg.Database.ConnectTimeout)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 10, cfg.Security.BcryptCost)
	assert.Equal(t, time.Duration(0), cfg.Session.MaxAge)
	assert.False(t, cfg.Session.Required)
	assert.Equal(t, 15, cfg.Log.MaxAgeDays)
	assert.False(t, cfg.RateLimit.TrustProxy)
}

func TestLoadFrom_ConfigFileOverrides(t *testing.T) {
	dir := t.TempDir()
	dbFile := writeFile(t, dir, "db.json", `{"host": "localhost", "database": "pos", "ssl": true}`)
	writeFile(t, dir, "config.yaml", `
server:
  port: 6000
session:
  required: true
  max_age: 15m
log:
  level: debug
  format: text
`)
	t.Setenv("DATABASE_CONFIG_FILE", dbFile)

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 6000, cfg.Server.Port)
	assert.True(t, cfg.Session.Required)
	assert.Equal(t, 15*time.Minute, cfg.Session.MaxAge)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "require", cfg.Database.SSLMode)
	assert.Equal(t, 5432, cfg.Database.Port)
}

func TestLoadFrom_MissingDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_CONFIG_FILE", filepath.Join(dir, "missing.txt"))

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read database file")
}

func TestLoadFrom_MalformedDatabaseFile(t *testing.T) {
	dir := t.TempDir()
	dbFile := writeFile(t, dir, "Vaidhya_db.txt", `{"host": "localhost",`)
	t.Setenv("DATABASE_CONFIG_FILE", dbFile)

	_, err := LoadFrom(dir)
	require.Error(t, err)
}

func TestLoadFrom_Validation(t *testing.T) {
	dir := t.TempDir()
	dbFile := writeFile(t, dir, "Vaidhya_db.txt", `{"host": "localhost"}`)
	t.Setenv("DATABASE_CONFIG_FILE", dbFile)

	_, err := LoadFrom(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database name is required")
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 5000}
	assert.Equal(t, "127.0.0.1:5000", s.Addr())
}
