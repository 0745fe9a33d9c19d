package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
keys = ["keys/transfer.vkey", "keys/migrate.vkey"]

[server]
address = "0.0.0.0:3333"
metrics_address = "localhost:9999"

[redis]
url = "redis://localhost:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"keys/transfer.vkey", "keys/migrate.vkey"}, cfg.Keys)
	assert.Equal(t, "0.0.0.0:3333", cfg.Server.Address)
	assert.Equal(t, "localhost:9999", cfg.Server.MetricsAddress)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)

	assert.True(t, cfg.HasKey("keys/transfer.vkey"))
	assert.False(t, cfg.HasKey("keys/other.vkey"))
}

func TestReadConfigMissingFile(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestReadConfigInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("keys = ["), 0o644))

	_, err := ReadConfig(path)
	assert.Error(t, err)
}
