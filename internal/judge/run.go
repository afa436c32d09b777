package judge

import (
	"context"
	"errors"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/materialize"
	"github.com/programme-lv/judge/internal/sandbox"
)

// Run executes code once against custom stdin. Nothing is judged,
// recorded or announced.
func (j *Judge) Run(ctx context.Context, req api.RunReq) (resp *api.RunResponse, err error) {
	spec, err := j.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}
	limits, err := j.limits(req.TimeLimitMs, 0)
	if err != nil {
		return nil, err
	}

	release, err := j.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ws, err := j.workspaces.Acquire()
	if err != nil {
		return nil, &SystemError{Stage: "workspace", Err: err}
	}
	logger := j.logger.With("job", ws.ID(), "language", spec.ID)
	defer func() {
		relErr := j.workspaces.Release(ws)
		if relErr == nil || err != nil {
			return
		}
		j.metrics.SystemError("cleanup")
		logger.Error("failed to remove workspace", "dir", ws.Dir(), "error", relErr)
		resp, err = nil, &SystemError{Stage: "cleanup", Err: relErr}
	}()

	m, err := materialize.Source(ws, spec, req.SourceCode)
	if err != nil {
		var matErr *materialize.MaterializationError
		if errors.As(err, &matErr) {
			return compileFailure(matErr.Error()), nil
		}
		return nil, &SystemError{Stage: "materialize", Err: err}
	}

	job := &sandbox.Job{
		ID:           ws.ID(),
		Dir:          ws.Dir(),
		Toolchain:    spec,
		SourceFile:   m.SourceFile,
		EntryName:    m.EntryName,
		ArtifactFile: m.ArtifactFile,
	}

	var compileOutput *string
	if spec.Compiled() {
		res, err := j.runner.Compile(ctx, job)
		if err != nil {
			return nil, &SystemError{Stage: "compile", Err: err}
		}
		if !res.OK {
			return compileFailure(res.Message), nil
		}
		if res.Data != nil {
			compileOutput = api.StrPtrOrNil(string(res.Data.Stderr))
		}
	}

	input, err := materialize.Input(ws, 0, req.Stdin)
	if err != nil {
		return nil, &SystemError{Stage: "input", Err: err}
	}
	res, err := j.runner.Run(ctx, job, input, limits)
	if err != nil {
		return nil, &SystemError{Stage: "run", Err: err}
	}

	status := api.RunSuccess
	switch res.Outcome {
	case sandbox.RuntimeError:
		status = api.RunRuntimeError
	case sandbox.TimeLimitExceeded:
		status = api.RunTimeLimitExceeded
	}
	logger.Debug("ran program", "status", status, "wall_ms", res.Data.WallMs)
	return &api.RunResponse{
		Status:        status,
		Stdout:        string(res.Data.Stdout),
		Stderr:        string(res.Data.Stderr),
		ExitCode:      res.Data.ExitCode,
		WallMillis:    res.Data.WallMs,
		CompileOutput: compileOutput,
	}, nil
}

func compileFailure(msg string) *api.RunResponse {
	return &api.RunResponse{
		Status:        api.RunCompilationError,
		ExitCode:      -1,
		CompileOutput: &msg,
	}
}
