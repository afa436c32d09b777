// Package sandbox compiles and runs untrusted programs under resource
// limits. The isolation mechanism is pluggable through Runtime.
package sandbox

import (
	"context"
	"io"
	"math"
	"time"
)

// DefaultOutputLimit caps each of stdout and stderr.
const DefaultOutputLimit = 16 << 20

// Limits bound a single process run.
type Limits struct {
	WallTime     time.Duration
	CpuTime      time.Duration
	MemoryKiB    int64
	MaxProcesses int
}

// MemoryBytes converts MemoryKiB, saturating instead of overflowing.
func (l Limits) MemoryBytes() int64 {
	if l.MemoryKiB > math.MaxInt64/1024 {
		return math.MaxInt64
	}
	return l.MemoryKiB * 1024
}

// ExecSpec describes one process to start inside a job workspace.
type ExecSpec struct {
	// Dir is the host path of the job workspace.
	Dir    string
	Argv   []string
	Stdin  io.Reader
	Image  string
	Limits Limits
	// OutputLimit caps captured stdout and stderr; 0 means DefaultOutputLimit.
	OutputLimit int64
}

func (s *ExecSpec) outputLimit() int64 {
	if s.OutputLimit > 0 {
		return s.OutputLimit
	}
	return DefaultOutputLimit
}

// RunData is what a runtime observed about a finished process.
type RunData struct {
	Stdout []byte
	Stderr []byte

	ExitCode   int64
	ExitSignal *int64

	CpuMs  int64
	WallMs int64
	MemKiB int64

	CtxSwV int64
	CtxSwF int64

	TimedOut  bool
	OOMKilled bool

	// set by runtimes that report their own status
	Status  string
	Message string
}

// Runtime starts processes in some isolation mechanism. Exec returns an
// error only when the process could not be run or observed; anything the
// program itself does is reported through RunData.
type Runtime interface {
	Name() string
	Exec(ctx context.Context, spec ExecSpec) (*RunData, error)
}

// cappedBuffer keeps the first limit bytes written to it and silently
// drops the rest so a chatty program cannot exhaust memory.
type cappedBuffer struct {
	buf       []byte
	limit     int64
	truncated bool
}

func newCappedBuffer(limit int64) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.limit - int64(len(b.buf))
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if int64(len(p)) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf
}
