package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/programme-lv/judge/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate from the developer's own config and .env
func sandboxEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CONFIG_DIRS", filepath.Join(dir, "etc"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	t.Chdir(dir)
	return dir
}

func TestDefaults(t *testing.T) {
	dir := sandboxEnv(t)
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, config.RuntimeDocker, cfg.Sandbox.Runtime)
	assert.Equal(t, 10*time.Second, cfg.Judge.DefaultTimeLimit())
	assert.EqualValues(t, 256*1024, cfg.Judge.DefaultMemoryKiB)
	assert.Equal(t, filepath.Join(dir, "cache", "judge", "workspaces"), cfg.Storage.WorkspaceRoot)
	assert.Equal(t, filepath.Join(dir, "state", "judge", "submissions"), cfg.Storage.RecordDir)
}

func TestFileThenEnvironment(t *testing.T) {
	dir := sandboxEnv(t)
	path := filepath.Join(dir, "judge.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[sandbox]
runtime = "isolate"

[judge]
test_parallelism = 4
max_time_limit_ms = 20000

[kafka]
brokers = ["k1:9092"]
`), 0o644))

	t.Setenv("JUDGE_TEST_PARALLELISM", "2")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, config.RuntimeIsolate, cfg.Sandbox.Runtime)
	assert.Equal(t, 2, cfg.Judge.TestParallelism)
	assert.Equal(t, 20*time.Second, cfg.Judge.MaxTimeLimit())
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestXDGConfigFileIsFound(t *testing.T) {
	dir := sandboxEnv(t)
	path := filepath.Join(dir, "config", "judge", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("[http]\naddr = \":9000\"\n"), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := sandboxEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JUDGE_RUNTIME=process\n"), 0o644))
	// godotenv does not override variables that are already set
	t.Setenv("JUDGE_RUNTIME", "")
	require.NoError(t, os.Unsetenv("JUDGE_RUNTIME"))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.RuntimeProcess, cfg.Sandbox.Runtime)
}

func TestInvalidSettings(t *testing.T) {
	dir := sandboxEnv(t)

	t.Setenv("JUDGE_RUNTIME", "vm")
	_, err := config.Load("")
	assert.ErrorContains(t, err, "unknown sandbox runtime")

	t.Setenv("JUDGE_RUNTIME", "process")
	t.Setenv("JUDGE_MAX_CONCURRENT_JOBS", "many")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "JUDGE_MAX_CONCURRENT_JOBS")

	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("colour = \"blue\"\n"), 0o644))
	os.Unsetenv("JUDGE_MAX_CONCURRENT_JOBS")
	_, err = config.Load(path)
	assert.Error(t, err)
}
