//go:build unix

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// ProcessRuntime runs programs as plain host processes in their own
// process group. It enforces the wall time limit only and provides no
// file system or network isolation.
type ProcessRuntime struct {
	path      string
	waitDelay time.Duration
	logger    *slog.Logger
}

func NewProcessRuntime(logger *slog.Logger) *ProcessRuntime {
	return &ProcessRuntime{
		path:      os.Getenv("PATH"),
		waitDelay: 500 * time.Millisecond,
		logger:    logger,
	}
}

func (p *ProcessRuntime) Name() string {
	return "process"
}

func (p *ProcessRuntime) Exec(ctx context.Context, spec ExecSpec) (*RunData, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	runCtx := ctx
	if spec.Limits.WallTime > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, spec.Limits.WallTime)
		defer cancel()
	}

	stdout := newCappedBuffer(spec.outputLimit())
	stderr := newCappedBuffer(spec.outputLimit())

	cmd := exec.CommandContext(runCtx, spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.Dir
	cmd.Env = []string{
		"PATH=" + p.path,
		"HOME=" + spec.Dir,
		"TMPDIR=" + spec.Dir,
		"LANG=C.UTF-8",
	}
	cmd.Stdin = spec.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killGroup(cmd.Process.Pid)
	}
	cmd.WaitDelay = p.waitDelay

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Argv[0], err)
	}
	pgid := cmd.Process.Pid
	waitErr := cmd.Wait()
	elapsed := time.Since(start)
	// children that outlived the leader are still in the group
	_ = killGroup(pgid)

	data := &RunData{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
		WallMs: elapsed.Milliseconds(),
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	data.TimedOut = errors.Is(runCtx.Err(), context.DeadlineExceeded)

	if waitErr != nil && !data.TimedOut {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) && !errors.Is(waitErr, exec.ErrWaitDelay) {
			return nil, fmt.Errorf("failed to wait for %s: %w", spec.Argv[0], waitErr)
		}
	}

	if state := cmd.ProcessState; state != nil {
		if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			sig := int64(ws.Signal())
			data.ExitSignal = &sig
			data.ExitCode = -1
		} else {
			data.ExitCode = int64(state.ExitCode())
		}
		data.CpuMs = (state.UserTime() + state.SystemTime()).Milliseconds()
		if ru, ok := state.SysUsage().(*syscall.Rusage); ok {
			data.MemKiB = int64(ru.Maxrss)
			data.CtxSwV = int64(ru.Nvcsw)
			data.CtxSwF = int64(ru.Nivcsw)
		}
	}

	return data, nil
}

func killGroup(pgid int) error {
	err := syscall.Kill(-pgid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
