// Package workspace hands out private scratch directories, one per job,
// and guarantees their removal.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

const dirPrefix = "job-"

type Manager struct {
	root    string
	dirMode os.FileMode
	logger  *slog.Logger
	remove  func(path string) error
	active  *xsync.MapOf[string, *Workspace]
}

type Option func(*Manager)

// WithDirMode sets the permission bits of job directories. Sandboxes
// that run code under a different user need 0o777.
func WithDirMode(mode os.FileMode) Option {
	return func(m *Manager) { m.dirMode = mode }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRemover replaces os.RemoveAll for deleting job directories.
func WithRemover(remove func(path string) error) Option {
	return func(m *Manager) { m.remove = remove }
}

// NewManager creates root if needed.
func NewManager(root string, opts ...Option) (*Manager, error) {
	m := &Manager{
		root:    root,
		dirMode: 0o755,
		logger:  slog.Default(),
		remove:  forceRemove,
		active:  xsync.NewMapOf[string, *Workspace](),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace root: %w", err)
	}
	return m, nil
}

func (m *Manager) Root() string {
	return m.root
}

// Acquire creates a fresh directory for a job. Directory creation fails
// rather than reuse an existing path.
func (m *Manager) Acquire() (*Workspace, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, dirPrefix+id)
	if err := os.Mkdir(dir, m.dirMode); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", dir, err)
	}
	// Mkdir is subject to umask
	if err := os.Chmod(dir, m.dirMode); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to chmod workspace %s: %w", dir, err)
	}
	ws := &Workspace{
		id:      id,
		dir:     dir,
		manager: m,
	}
	m.active.Store(id, ws)
	m.logger.Debug("acquired workspace", "dir", dir)
	return ws, nil
}

// Release removes the workspace and everything in it. It is safe to call
// more than once.
func (m *Manager) Release(ws *Workspace) error {
	return ws.Close()
}

// Active returns the number of workspaces not yet released.
func (m *Manager) Active() int {
	return m.active.Size()
}

// Sweep removes job directories left behind by a previous process. It
// must only run before any workspace is acquired.
func (m *Manager) Sweep() (int, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list workspace root: %w", err)
	}
	var errs []error
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		if _, busy := m.active.Load(strings.TrimPrefix(e.Name(), dirPrefix)); busy {
			continue
		}
		if err := m.remove(filepath.Join(m.root, e.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

// forceRemove retries os.RemoveAll after making every directory under
// path writable again; programs may leave read-only directories behind.
func forceRemove(path string) error {
	err := os.RemoveAll(path)
	if err == nil {
		return nil
	}
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr == nil && d.IsDir() {
			_ = os.Chmod(p, 0o700)
		}
		return nil
	})
	return os.RemoveAll(path)
}

func (m *Manager) forget(ws *Workspace) {
	m.active.Delete(ws.id)
}
