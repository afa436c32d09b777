package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/programme-lv/judge/internal/isolate"
)

const isolateWorkDir = "/work"

// IsolateRuntime runs every process in a fresh isolate box with the job
// workspace bound at /work.
type IsolateRuntime struct {
	iso          *isolate.Isolate
	extraCpuTime float64
	maxOpenFiles int
}

func NewIsolateRuntime(iso *isolate.Isolate) *IsolateRuntime {
	return &IsolateRuntime{
		iso:          iso,
		extraCpuTime: 0.5,
		maxOpenFiles: 128,
	}
}

func (r *IsolateRuntime) Name() string {
	return "isolate"
}

func (r *IsolateRuntime) Version(ctx context.Context) (string, error) {
	return r.iso.Version(ctx)
}

func (r *IsolateRuntime) Exec(ctx context.Context, spec ExecSpec) (*RunData, error) {
	if len(spec.Argv) == 0 {
		return nil, errors.New("empty command")
	}

	box, err := r.iso.NewBox(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create isolate box: %w", err)
	}
	defer box.Close()

	constraints := r.constraints(spec.Limits)
	// isolate execs argv[0] without a PATH lookup
	argv := append([]string{"/usr/bin/env"}, spec.Argv...)
	cmd, err := box.Command(ctx, argv, isolate.RunOptions{
		Dirs:  []isolate.DirRule{{Inside: isolateWorkDir, Outside: spec.Dir, RW: true}},
		Chdir: isolateWorkDir,
		Env: []string{
			"HOME=" + isolateWorkDir,
			"TMPDIR=/tmp",
			"PATH=/usr/local/bin:/usr/bin:/bin",
			"LANG=C.UTF-8",
		},
		Constraints: &constraints,
	})
	if err != nil {
		return nil, err
	}

	stdout := newCappedBuffer(spec.outputLimit())
	stderr := newCappedBuffer(spec.outputLimit())
	m, err := cmd.Run(spec.Stdin, stdout, stderr)
	if err != nil {
		return nil, err
	}

	return &RunData{
		Stdout:     stdout.Bytes(),
		Stderr:     stderr.Bytes(),
		ExitCode:   m.ExitCode,
		ExitSignal: m.ExitSignal,
		CpuMs:      int64(m.TimeSec * 1000),
		WallMs:     int64(m.TimeWallSec * 1000),
		MemKiB:     m.MemKb(),
		CtxSwV:     m.CswVoluntary,
		CtxSwF:     m.CswForced,
		TimedOut:   m.TimedOut(),
		OOMKilled:  m.CgOomKilled,
		Status:     m.Status,
		Message:    m.Message,
	}, nil
}

func (r *IsolateRuntime) constraints(lim Limits) isolate.Constraints {
	c := isolate.DefaultConstraints()
	cpu := lim.CpuTime
	if cpu == 0 {
		cpu = lim.WallTime
	}
	if cpu > 0 {
		c.CpuTimeLimInSec = cpu.Seconds()
	}
	if lim.WallTime > 0 {
		c.WallTimeLimInSec = lim.WallTime.Seconds()
	}
	c.ExtraCpuTimeLimInSec = r.extraCpuTime
	if lim.MemoryKiB > 0 {
		c.MemoryLimitInKB = lim.MemoryKiB
	}
	if lim.MaxProcesses > 0 {
		c.MaxProcesses = lim.MaxProcesses
	}
	c.MaxOpenFiles = r.maxOpenFiles
	return c
}
