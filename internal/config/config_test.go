package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "qwiq.yaml"), []byte(body), 0o644))
	return dir
}

func TestRead_Defaults(t *testing.T) {
	cfg, err := Read(New(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestRead_File(t *testing.T) {
	dir := writeConfig(t, `
store:
  path: /tmp/backlog.db
log:
  level: debug
query:
  day_precision: true
models:
  dir: ./schemas
`)

	cfg, err := Read(New(dir))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		Store:  StoreConfig{Path: "/tmp/backlog.db"},
		Log:    LogConfig{Level: "debug", Format: "text"},
		Query:  QueryConfig{DayPrecision: true},
		Models: ModelsConfig{Dir: "./schemas"},
	}, cfg)
}

func TestRead_EnvironmentOverridesFile(t *testing.T) {
	dir := writeConfig(t, "log:\n  level: debug\n  format: json\n")
	t.Setenv("QWIQ_LOG_LEVEL", "warn")
	t.Setenv("QWIQ_QUERY_DAY_PRECISION", "true")
	t.Setenv("QWIQ_STORE_PATH", "env.db")

	cfg, err := Read(New(dir))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Query.DayPrecision)
	assert.Equal(t, "env.db", cfg.Store.Path)
}

func TestRead_ExplicitFileMustExist(t *testing.T) {
	v := New()
	v.SetConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Read(v)
	require.Error(t, err)
}

func TestRead_MalformedFile(t *testing.T) {
	dir := writeConfig(t, "log: [unclosed\n")

	_, err := Read(New(dir))
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"defaults", func(*Config) {}, nil},
		{"no store path", func(c *Config) { c.Store.Path = "  " }, ErrNoStorePath},
		{"unknown level", func(c *Config) { c.Log.Level = "trace" }, ErrInvalidLevel},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, ErrInvalidFormat},
		{"level none", func(c *Config) { c.Log.Level = "none" }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Verify()
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRead_InvalidValueFromEnvironment(t *testing.T) {
	t.Setenv("QWIQ_LOG_FORMAT", "xml")

	_, err := Read(New(t.TempDir()))
	require.ErrorIs(t, err, ErrInvalidFormat)
}
