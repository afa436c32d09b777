package isolate

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
)

// Isolate hands out isolate sandboxes. Box ids are unique among the boxes
// it has open.
type Isolate struct {
	bin      string
	cgroups  bool
	maxBoxes int
	logger   *slog.Logger

	mutex    sync.Mutex
	idsInUse mapset.Set[int]
}

type Option func(*Isolate)

func WithBinary(path string) Option {
	return func(i *Isolate) { i.bin = path }
}

// WithCgroups switches memory accounting to control groups (--cg).
func WithCgroups(enabled bool) Option {
	return func(i *Isolate) { i.cgroups = enabled }
}

func WithMaxBoxes(n int) Option {
	return func(i *Isolate) { i.maxBoxes = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(i *Isolate) { i.logger = logger }
}

func New(opts ...Option) *Isolate {
	i := &Isolate{
		bin:      "isolate",
		cgroups:  true,
		maxBoxes: 1000,
		logger:   slog.Default(),
		idsInUse: mapset.NewThreadUnsafeSet[int](),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NewBox reserves a free box id and initializes the box.
func (i *Isolate) NewBox(ctx context.Context) (*Box, error) {
	i.mutex.Lock()
	id := 0
	for i.idsInUse.Contains(id) {
		id++
	}
	if id >= i.maxBoxes {
		i.mutex.Unlock()
		return nil, fmt.Errorf("all %d isolate boxes are in use", i.maxBoxes)
	}
	i.idsInUse.Add(id)
	i.mutex.Unlock()

	// a previous process may have left the box initialized
	if err := i.cleanupBox(ctx, id); err != nil {
		i.releaseId(id)
		return nil, err
	}

	path, err := i.initBox(ctx, id)
	if err != nil {
		i.releaseId(id)
		return nil, err
	}

	return newIsolateBox(i, id, path), nil
}

// Version runs isolate --version.
func (i *Isolate) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, i.bin, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("isolate --version: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

func (i *Isolate) releaseId(id int) {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	i.idsInUse.Remove(id)
}

func (i *Isolate) eraseBox(ctx context.Context, id int) error {
	defer i.releaseId(id)
	return i.cleanupBox(ctx, id)
}

func (i *Isolate) baseArgs(id int) []string {
	args := []string{"--box-id=" + strconv.Itoa(id)}
	if i.cgroups {
		args = append([]string{"--cg"}, args...)
	}
	return args
}

func (i *Isolate) cleanupBox(ctx context.Context, boxId int) error {
	args := append(i.baseArgs(boxId), "--cleanup")
	out, err := exec.CommandContext(ctx, i.bin, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("isolate cleanup of box %d: %w: %s", boxId, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// initBox initializes a new box with the given id and returns the path to the box
func (i *Isolate) initBox(ctx context.Context, boxId int) (string, error) {
	args := append(i.baseArgs(boxId), "--init")
	out, err := exec.CommandContext(ctx, i.bin, args...).Output()
	if err != nil {
		return "", fmt.Errorf("isolate init of box %d: %w", boxId, err)
	}
	i.logger.Debug("initialized isolate box", "id", boxId)
	return strings.TrimSpace(string(out)), nil
}
