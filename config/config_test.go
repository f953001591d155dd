package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatd/config"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.toml")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	// Файла не было - он создан с настройками по умолчанию
	_, err = os.Stat(path)
	require.NoError(t, err)

	defaults := config.Default()
	assert.Equal(t, defaults.Server.Port, cfg.Server.Port)
	assert.Equal(t, defaults.Limits.MaxClients, cfg.Limits.MaxClients)

	// Повторная загрузка читает созданный файл
	again, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.toml")
	content := `[server]
port = 7777
db_path = "custom.db"
metrics_port = 0

[limits]
max_clients = 5
read_timeout_seconds = 60
write_timeout_seconds = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "custom.db", cfg.Server.DBPath)
	assert.Equal(t, 0, cfg.Server.MetricsPort)
	assert.Equal(t, 5, cfg.Limits.MaxClients)
	assert.Equal(t, 60, cfg.Limits.ReadTimeout)
	assert.Equal(t, 10, cfg.Limits.WriteTimeout)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.toml")

	t.Setenv("CHATD_PORT", "9999")
	t.Setenv("CHATD_DB_PATH", "/tmp/env.db")
	t.Setenv("CHATD_MAX_CLIENTS", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Server.DBPath)
	assert.Equal(t, 7, cfg.Limits.MaxClients)

	// Не переопределенные поля остаются из файла/умолчаний
	assert.Equal(t, config.Default().Limits.ReadTimeout, cfg.Limits.ReadTimeout)
}

func TestEnvOverrideIgnoresGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatd.toml")

	t.Setenv("CHATD_PORT", "not-a-number")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Server.Port, cfg.Server.Port)
}
