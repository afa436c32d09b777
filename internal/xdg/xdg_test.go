package xdg_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/programme-lv/judge/internal/xdg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirsFollowEnvironment(t *testing.T) {
	root := t.TempDir()
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "state"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))
	t.Setenv("XDG_CONFIG_HOME", "relative/ignored")
	t.Setenv("HOME", root)

	d := xdg.New()
	assert.Equal(t, filepath.Join(root, "state", "judge"), d.AppStateDir("judge"))
	assert.Equal(t, filepath.Join(root, "cache", "judge"), d.AppCacheDir("judge"))
	assert.Equal(t, filepath.Join(root, ".config", "judge"), d.AppConfigDir("judge"))
}

func TestFindConfigPrefersUserDir(t *testing.T) {
	root := t.TempDir()
	user := filepath.Join(root, "user")
	system := filepath.Join(root, "system")
	t.Setenv("XDG_CONFIG_HOME", user)
	t.Setenv("XDG_CONFIG_DIRS", system)

	d := xdg.New()
	assert.Empty(t, d.FindConfig("judge", "config.toml"))

	sysFile := filepath.Join(system, "judge", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(sysFile), 0o755))
	require.NoError(t, os.WriteFile(sysFile, nil, 0o644))
	assert.Equal(t, sysFile, d.FindConfig("judge", "config.toml"))

	userFile := filepath.Join(user, "judge", "config.toml")
	require.NoError(t, os.MkdirAll(filepath.Dir(userFile), 0o755))
	require.NoError(t, os.WriteFile(userFile, nil, 0o644))
	assert.Equal(t, userFile, d.FindConfig("judge", "config.toml"))
}
