package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	if value, ok := os.LookupEnv(key); ok {
		require.NoError(t, os.Unsetenv(key))
		t.Cleanup(func() { _ = os.Setenv(key, value) })
	}
}

const sampleYAML = `
env: "prod"
log_level: "warn"
api:
  base_url: "https://shop.example.com/api"
  timeout: "5s"
  refresh_timeout: "3s"
store:
  kind: "redis"
  namespace: "user-1:"
  passphrase: "hunter2"
redis:
  addr: "redis:6379"
  db: 2
`

const brokenYAML = `
api:
  base_url: [unclosed
`

func TestLoad_WithExplicitPath(t *testing.T) {
	unsetenv(t, "APICLIENT_REDIS_ADDR")
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "prod", cfg.Env)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, "https://shop.example.com/api", cfg.API.BaseURL)
	require.Equal(t, 5*time.Second, cfg.API.Timeout)
	require.Equal(t, 3*time.Second, cfg.API.RefreshTimeout)
	require.Equal(t, StoreRedis, cfg.Store.Kind)
	require.Equal(t, "user-1:", cfg.Store.Namespace)
	require.Equal(t, "hunter2", cfg.Store.Passphrase)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
	require.Equal(t, 2, cfg.Redis.DB)
	// defaults fill what the file omits
	require.Equal(t, "apiclient:", cfg.Redis.Prefix)
	require.Equal(t, "apiclient_tokens", cfg.DynamoDB.Table)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", sampleYAML)
	t.Setenv("APICLIENT_BASE_URL", "http://10.0.2.2:8000/api")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "http://10.0.2.2:8000/api", cfg.API.BaseURL)
}

func TestLoad_ConfigPathEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", writeFile(t, dir, "custom.yaml", sampleYAML))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "prod", cfg.Env)
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, DefaultFile, `store: {kind: "memory"}`)
	chdir(t, dir)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, StoreMemory, cfg.Store.Kind)
}

func TestLoad_EnvOnlyDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Env)
	require.Equal(t, "http://127.0.0.1:8000/api", cfg.API.BaseURL)
	require.Equal(t, 15*time.Second, cfg.API.Timeout)
	require.Equal(t, StoreFile, cfg.Store.Kind)
	require.Equal(t, "127.0.0.1:8000", cfg.Mock.Addr())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeFile(t, dir, "broken.yaml", brokenYAML))
	require.Error(t, err)

	_, err = Load(writeFile(t, dir, "kind.yaml", `store: {kind: "floppy"}`))
	require.ErrorContains(t, err, "unsupported store kind")

	_, err = Load(writeFile(t, dir, "pg.yaml", `store: {kind: "postgres"}`))
	require.ErrorContains(t, err, "postgres.dsn")
}

func TestMustLoad_Panics(t *testing.T) {
	require.Panics(t, func() { MustLoad(filepath.Join(t.TempDir(), "missing.yaml")) })
}
