// Package xdg resolves per-user directories following the XDG Base
// Directory layout.
package xdg

import (
	"os"
	"path/filepath"
)

type Dirs struct {
	configHome string
	stateHome  string
	cacheHome  string
	configDirs []string
}

// New reads the XDG variables, falling back to the documented defaults
// under the home directory.
func New() *Dirs {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	d := &Dirs{
		configHome: envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")),
		stateHome:  envOr("XDG_STATE_HOME", filepath.Join(home, ".local", "state")),
		cacheHome:  envOr("XDG_CACHE_HOME", filepath.Join(home, ".cache")),
		configDirs: []string{"/etc/xdg"},
	}
	if v := os.Getenv("XDG_CONFIG_DIRS"); v != "" {
		d.configDirs = filepath.SplitList(v)
	}
	return d
}

func envOr(key, fallback string) string {
	// relative paths are invalid and must be ignored
	if v := os.Getenv(key); v != "" && filepath.IsAbs(v) {
		return v
	}
	return fallback
}

func (d *Dirs) AppConfigDir(app string) string {
	return filepath.Join(d.configHome, app)
}

func (d *Dirs) AppStateDir(app string) string {
	return filepath.Join(d.stateHome, app)
}

func (d *Dirs) AppCacheDir(app string) string {
	return filepath.Join(d.cacheHome, app)
}

// FindConfig returns the first existing app/name in the user and then the
// system config directories, or "" when there is none.
func (d *Dirs) FindConfig(app, name string) string {
	for _, dir := range append([]string{d.configHome}, d.configDirs...) {
		path := filepath.Join(dir, app, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
