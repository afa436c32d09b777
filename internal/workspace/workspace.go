package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a directory owned by exactly one job.
type Workspace struct {
	id      string
	dir     string
	manager *Manager

	mu      sync.Mutex
	files   []string
	closed  bool
	closing sync.Once
	err     error
}

// ID is unique among all workspaces ever acquired.
func (w *Workspace) ID() string {
	return w.id
}

func (w *Workspace) Dir() string {
	return w.dir
}

// Path returns the absolute path of a file inside the workspace.
func (w *Workspace) Path(name string) string {
	return filepath.Join(w.dir, name)
}

// AddFile writes a file and records it for removal.
func (w *Workspace) AddFile(name string, content []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("workspace %s already released", w.id)
	}
	if err := os.WriteFile(w.Path(name), content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	w.files = append(w.files, name)
	return nil
}

func (w *Workspace) ReadFile(name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	return os.ReadFile(w.Path(name))
}

// Files lists the files added through AddFile.
func (w *Workspace) Files() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.files...)
}

// Close deletes the recorded files, then the directory with whatever the
// job produced in it (compiler outputs), and verifies nothing is left.
func (w *Workspace) Close() error {
	w.closing.Do(func() {
		w.mu.Lock()
		w.closed = true
		files := w.files
		w.mu.Unlock()

		var errs []error
		for _, name := range files {
			p := w.Path(name)
			if _, err := os.Lstat(p); errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		if err := w.manager.remove(w.dir); err != nil {
			errs = append(errs, err)
		}
		if _, err := os.Lstat(w.dir); !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("workspace %s still exists after removal", w.dir))
		}
		w.err = errors.Join(errs...)
		w.manager.forget(w)
		if w.err != nil {
			w.manager.logger.Error("failed to release workspace", "dir", w.dir, "error", w.err)
		} else {
			w.manager.logger.Debug("released workspace", "dir", w.dir)
		}
	})
	return w.err
}

func checkName(name string) error {
	if name == "" || !filepath.IsLocal(name) || filepath.Base(name) != name {
		return fmt.Errorf("invalid workspace file name %q", name)
	}
	return nil
}
