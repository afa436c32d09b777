//go:build !unix

package sandbox

import (
	"context"
	"errors"
	"log/slog"
)

type ProcessRuntime struct{}

func NewProcessRuntime(logger *slog.Logger) *ProcessRuntime {
	return &ProcessRuntime{}
}

func (p *ProcessRuntime) Name() string {
	return "process"
}

func (p *ProcessRuntime) Exec(ctx context.Context, spec ExecSpec) (*RunData, error) {
	return nil, errors.New("the process runtime needs process groups, which this platform lacks")
}
