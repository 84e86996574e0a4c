package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "superstore_data.csv", cfg.Data.CSVFile)
	assert.Equal(t, "auto", cfg.Data.Encoding)
	assert.Equal(t, DefaultDateLayouts, cfg.Data.DateLayouts)
	assert.True(t, cfg.Data.CacheEnabled)
	assert.Equal(t, 200, cfg.Dashboard.MaxTableRows)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9000")
	t.Setenv("CSV_FILE", "/data/sales.csv")
	t.Setenv("CSV_ENCODING", "LATIN1")
	t.Setenv("CSV_DATE_LAYOUTS", "02.01.2006; 2006/01/02")
	t.Setenv("SERVER_READ_TIMEOUT", "3s")
	t.Setenv("CACHE_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/data/sales.csv", cfg.Data.CSVFile)
	assert.Equal(t, "latin1", cfg.Data.Encoding)
	assert.Equal(t, []string{"02.01.2006", "2006/01/02"}, cfg.Data.DateLayouts)
	assert.Equal(t, 3*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.Data.CacheEnabled)
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DASHBOARD_MAX_TABLE_ROWS=25\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("DASHBOARD_MAX_TABLE_ROWS")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Dashboard.MaxTableRows)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "SERVER_PORT", "70000"},
		{"unknown encoding", "CSV_ENCODING", "ebcdic"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"unknown log format", "LOG_FORMAT", "xml"},
		{"zero table rows", "DASHBOARD_MAX_TABLE_ROWS", "0"},
		{"negative burst", "SECURITY_RATE_LIMIT_BURST", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
