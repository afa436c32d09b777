// Package judge evaluates submissions: it prepares a workspace, compiles
// once, runs every test and reports progress to a gatherer.
package judge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/programme-lv/judge/internal/metrics"
	"github.com/programme-lv/judge/internal/notify"
	"github.com/programme-lv/judge/internal/recorder"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/programme-lv/judge/internal/workspace"
	"golang.org/x/sync/semaphore"
)

// SystemError is an infrastructure failure. It is never turned into a
// verdict.
type SystemError struct {
	Stage string
	Err   error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SystemError) Unwrap() error {
	return e.Err
}

// RequestError rejects a request before any work is done.
type RequestError struct {
	Reason string
}

func (e *RequestError) Error() string {
	return "invalid request: " + e.Reason
}

// IsCallerError reports whether err was caused by the request rather than
// the judge.
func IsCallerError(err error) bool {
	var reqErr *RequestError
	return errors.Is(err, toolchain.ErrUnsupportedLanguage) || errors.As(err, &reqErr)
}

// Deps are the collaborators of a Judge. Recorder, Publisher and Metrics
// are optional.
type Deps struct {
	Registry   *toolchain.Registry
	Workspaces *workspace.Manager
	Runner     *sandbox.Runner
	Recorder   *recorder.Async
	Publisher  notify.Publisher
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Options struct {
	DefaultTimeLimit time.Duration
	MaxTimeLimit     time.Duration
	DefaultMemoryKiB int64
	MaxMemoryKiB     int64
	MaxProcesses     int

	// TestParallelism above 1 runs tests of one submission concurrently.
	TestParallelism   int
	MaxConcurrentJobs int64

	NotifyTimeout time.Duration
	SystemInfo    string
}

func DefaultOptions() Options {
	return Options{
		DefaultTimeLimit:  10 * time.Second,
		MaxTimeLimit:      30 * time.Second,
		DefaultMemoryKiB:  256 * 1024,
		MaxMemoryKiB:      1024 * 1024,
		MaxProcesses:      64,
		TestParallelism:   1,
		MaxConcurrentJobs: 4,
		NotifyTimeout:     5 * time.Second,
	}
}

type Judge struct {
	registry   *toolchain.Registry
	workspaces *workspace.Manager
	runner     *sandbox.Runner
	recorder   *recorder.Async
	publisher  notify.Publisher
	metrics    *metrics.Metrics
	logger     *slog.Logger

	opts Options
	jobs *semaphore.Weighted
	// background publishing
	wg sync.WaitGroup
}

func New(deps Deps, opts Options) *Judge {
	def := DefaultOptions()
	if opts.DefaultTimeLimit <= 0 {
		opts.DefaultTimeLimit = def.DefaultTimeLimit
	}
	if opts.MaxTimeLimit < opts.DefaultTimeLimit {
		opts.MaxTimeLimit = max(def.MaxTimeLimit, opts.DefaultTimeLimit)
	}
	if opts.DefaultMemoryKiB <= 0 {
		opts.DefaultMemoryKiB = def.DefaultMemoryKiB
	}
	if opts.MaxMemoryKiB < opts.DefaultMemoryKiB {
		opts.MaxMemoryKiB = max(def.MaxMemoryKiB, opts.DefaultMemoryKiB)
	}
	if opts.MaxProcesses <= 0 {
		opts.MaxProcesses = def.MaxProcesses
	}
	if opts.TestParallelism <= 0 {
		opts.TestParallelism = 1
	}
	if opts.MaxConcurrentJobs <= 0 {
		opts.MaxConcurrentJobs = def.MaxConcurrentJobs
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = def.NotifyTimeout
	}
	if opts.SystemInfo == "" {
		opts.SystemInfo = SystemInfo(deps.Runner.Runtime().Name())
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{
		registry:   deps.Registry,
		workspaces: deps.Workspaces,
		runner:     deps.Runner,
		recorder:   deps.Recorder,
		publisher:  deps.Publisher,
		metrics:    deps.Metrics,
		logger:     logger,
		opts:       opts,
		jobs:       semaphore.NewWeighted(opts.MaxConcurrentJobs),
	}
}

func (j *Judge) Registry() *toolchain.Registry {
	return j.registry
}

func (j *Judge) Options() Options {
	return j.opts
}

// Wait blocks until background recording and publishing are done.
func (j *Judge) Wait() {
	j.wg.Wait()
	if j.recorder != nil {
		j.recorder.Wait()
	}
}

// limits clamps requested limits to the configured maxima. Zero selects
// the default.
func (j *Judge) limits(timeLimitMs, memoryKiB int64) (sandbox.Limits, error) {
	if timeLimitMs < 0 {
		return sandbox.Limits{}, &RequestError{Reason: "negative time limit"}
	}
	if memoryKiB < 0 {
		return sandbox.Limits{}, &RequestError{Reason: "negative memory limit"}
	}

	// compared in milliseconds; huge values overflow a Duration
	wall := j.opts.DefaultTimeLimit
	if timeLimitMs > j.opts.MaxTimeLimit.Milliseconds() {
		wall = j.opts.MaxTimeLimit
	} else if timeLimitMs > 0 {
		wall = time.Duration(timeLimitMs) * time.Millisecond
	}
	mem := j.opts.DefaultMemoryKiB
	if memoryKiB > 0 {
		mem = min(memoryKiB, j.opts.MaxMemoryKiB)
	}
	return sandbox.Limits{
		WallTime:     wall,
		CpuTime:      wall,
		MemoryKiB:    mem,
		MaxProcesses: j.opts.MaxProcesses,
	}, nil
}

// acquire waits for a free job slot.
func (j *Judge) acquire(ctx context.Context) (release func(), err error) {
	if err := j.jobs.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	done := j.metrics.JobStarted()
	return func() {
		done()
		j.jobs.Release(1)
	}, nil
}
