package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/programme-lv/judge/internal/toolchain"
)

// Outcome classifies a finished run before output is compared.
type Outcome string

const (
	Success           Outcome = "success"
	RuntimeError      Outcome = "runtime_error"
	TimeLimitExceeded Outcome = "time_limit_exceeded"
)

// Job is one compile and run cycle inside a single workspace.
type Job struct {
	ID        string
	Dir       string
	Toolchain *toolchain.Spec

	SourceFile   string
	EntryName    string
	ArtifactFile string
}

func (j *Job) vars() toolchain.Vars {
	return toolchain.Vars{
		Entry:  j.EntryName,
		Source: j.SourceFile,
		Binary: j.ArtifactFile,
		Job:    j.ID,
	}
}

// CompileResult reports whether the compile step produced a runnable
// artifact. Message holds the diagnostic shown to the submitter.
type CompileResult struct {
	OK      bool
	Message string
	Data    *RunData
}

type ExecutionResult struct {
	Outcome Outcome
	Data    *RunData
}

// DefaultCompileLimits apply to the compile step unless overridden.
var DefaultCompileLimits = Limits{
	WallTime:     30 * time.Second,
	CpuTime:      30 * time.Second,
	MemoryKiB:    1024 * 1024,
	MaxProcesses: 256,
}

type Runner struct {
	rt            Runtime
	compileLimits Limits
	outputLimit   int64
	logger        *slog.Logger
}

type RunnerOption func(*Runner)

func WithCompileLimits(l Limits) RunnerOption {
	return func(r *Runner) { r.compileLimits = l }
}

func WithOutputLimit(n int64) RunnerOption {
	return func(r *Runner) { r.outputLimit = n }
}

func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

func NewRunner(rt Runtime, opts ...RunnerOption) *Runner {
	r := &Runner{
		rt:            rt,
		compileLimits: DefaultCompileLimits,
		outputLimit:   DefaultOutputLimit,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) Runtime() Runtime {
	return r.rt
}

// Compile runs the toolchain's compile command once. Interpreted
// languages succeed without running anything. An error means the
// compiler could not be run at all.
func (r *Runner) Compile(ctx context.Context, job *Job) (*CompileResult, error) {
	argv := job.Toolchain.CompileArgv(job.vars())
	if argv == nil {
		return &CompileResult{OK: true}, nil
	}

	r.logger.Debug("compiling", "job", job.ID, "argv", argv)
	data, err := r.rt.Exec(ctx, ExecSpec{
		Dir:         job.Dir,
		Argv:        argv,
		Image:       job.Toolchain.Image,
		Limits:      r.compileLimits,
		OutputLimit: r.outputLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run compiler: %w", err)
	}

	res := &CompileResult{OK: true, Data: data}
	switch {
	case data.TimedOut:
		res.OK = false
		res.Message = fmt.Sprintf("compilation exceeded %s", r.compileLimits.WallTime)
	case data.ExitCode != 0 || data.ExitSignal != nil:
		res.OK = false
		res.Message = compilerMessage(data)
	case job.ArtifactFile != "" && !exists(filepath.Join(job.Dir, job.ArtifactFile)):
		res.OK = false
		res.Message = fmt.Sprintf("compiler produced no %s", job.ArtifactFile)
	}
	return res, nil
}

// Run executes the compiled or interpreted program once with the given
// workspace file as stdin.
func (r *Runner) Run(ctx context.Context, job *Job, inputFile string, limits Limits) (*ExecutionResult, error) {
	stdin, err := os.Open(filepath.Join(job.Dir, inputFile))
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer stdin.Close()

	data, err := r.rt.Exec(ctx, ExecSpec{
		Dir:         job.Dir,
		Argv:        job.Toolchain.RunArgv(job.vars()),
		Stdin:       stdin,
		Image:       job.Toolchain.Image,
		Limits:      limits,
		OutputLimit: r.outputLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to run program: %w", err)
	}

	outcome := Classify(data)
	if outcome == TimeLimitExceeded {
		// output of a killed run is not trusted
		data.Stdout = nil
	}
	return &ExecutionResult{Outcome: outcome, Data: data}, nil
}

// Classify maps what a runtime observed to an outcome. A timeout wins
// over everything else.
func Classify(d *RunData) Outcome {
	switch {
	case d.TimedOut:
		return TimeLimitExceeded
	case d.ExitCode != 0, d.ExitSignal != nil, d.OOMKilled:
		return RuntimeError
	default:
		return Success
	}
}

func compilerMessage(d *RunData) string {
	if msg := strings.TrimSpace(string(d.Stderr)); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(string(d.Stdout)); msg != "" {
		return msg
	}
	if d.ExitSignal != nil {
		return fmt.Sprintf("compiler killed by signal %d", *d.ExitSignal)
	}
	return fmt.Sprintf("compiler exited with code %d", d.ExitCode)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}
