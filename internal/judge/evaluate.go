package judge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/gatherer/respbuilder"
	"github.com/programme-lv/judge/internal/materialize"
	"github.com/programme-lv/judge/internal/notify"
	"github.com/programme-lv/judge/internal/recorder"
	"github.com/programme-lv/judge/internal/sandbox"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/programme-lv/judge/internal/verdict"
	"github.com/programme-lv/judge/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// Evaluate judges req and streams progress to gath, which may be nil.
//
// An unsupported language or invalid limits are returned before any
// workspace exists. A *SystemError is returned together with a response
// whose status is internal_error.
func (j *Judge) Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error) {
	spec, err := j.registry.Resolve(req.Language)
	if err != nil {
		return nil, err
	}
	limits, err := j.limits(req.TimeLimitMs, req.MemoryLimitKiB)
	if err != nil {
		return nil, err
	}
	if req.EvalUuid == "" {
		req.EvalUuid = uuid.NewString()
	}

	release, err := j.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	logger := j.logger.With("eval", req.EvalUuid, "language", spec.ID)
	logger.Info("evaluating submission", "tests", len(req.TestCases))

	builder := respbuilder.New(req.EvalUuid, req.TestCases)
	g := gatherer.Fanout(builder, gath)

	finish, err := j.evaluate(ctx, logger, spec, &req, limits, g)
	if err != nil {
		var sysErr *SystemError
		if !errors.As(err, &sysErr) {
			sysErr = &SystemError{Stage: "evaluate", Err: err}
		}
		j.metrics.SystemError(sysErr.Stage)
		logger.Error("evaluation failed", "stage", sysErr.Stage, "error", sysErr.Err)
		g.InternalError(sysErr.Error())
		resp := builder.Response()
		return &resp, sysErr
	}
	finish()

	resp := builder.Response()
	j.metrics.Submission(spec.ID, string(resp.OverallVerdict))
	logger.Info("evaluated submission", "verdict", resp.OverallVerdict, "passed", resp.Passed(), "ms", resp.TotalTimeMs)
	j.afterJob(ctx, logger, req, &resp)
	return &resp, nil
}

func (j *Judge) evaluate(
	ctx context.Context,
	logger *slog.Logger,
	spec *toolchain.Spec,
	req *api.ExecReq,
	limits sandbox.Limits,
	g gatherer.ResultGatherer,
) (finish func(), err error) {
	g.StartJob(j.opts.SystemInfo)

	ws, err := j.workspaces.Acquire()
	if err != nil {
		return nil, &SystemError{Stage: "workspace", Err: err}
	}
	// the final event waits for the workspace to be gone
	defer func() {
		if relErr := j.workspaces.Release(ws); relErr != nil && err == nil {
			finish, err = nil, &SystemError{Stage: "cleanup", Err: relErr}
		}
	}()

	m, err := materialize.Source(ws, spec, req.SourceCode)
	if err != nil {
		var matErr *materialize.MaterializationError
		if errors.As(err, &matErr) {
			logger.Info("source rejected", "reason", matErr.Reason)
			ignoreAll(g, len(req.TestCases))
			return func() { g.CompileError(matErr.Error()) }, nil
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

	if spec.Compiled() {
		g.StartCompile()
		start := time.Now()
		res, err := j.runner.Compile(ctx, job)
		j.metrics.Phase(spec.ID, "compile", time.Since(start))
		if err != nil {
			return nil, &SystemError{Stage: "compile", Err: err}
		}
		g.FinishCompile(runtimeData(res.Data, ""))
		if !res.OK {
			logger.Info("compilation failed")
			ignoreAll(g, len(req.TestCases))
			return func() { g.CompileError(res.Message) }, nil
		}
	}

	inputs, err := writeInputs(ws, req.TestCases)
	if err != nil {
		return nil, &SystemError{Stage: "input", Err: err}
	}

	verdicts := make([]api.Verdict, len(req.TestCases))
	runTest := func(ctx context.Context, i int) error {
		tc := req.TestCases[i]
		id := int64(i + 1)
		g.ReachTest(id, []byte(tc.Input), []byte(tc.ExpectedOutput))

		start := time.Now()
		res, err := j.runner.Run(ctx, job, inputs[i], limits)
		j.metrics.Phase(spec.ID, "run", time.Since(start))
		if err != nil {
			return &SystemError{Stage: "run", Err: err}
		}

		v := verdict.Of(res.Outcome, tc.ExpectedOutput, string(res.Data.Stdout))
		verdicts[i] = v
		j.metrics.TestRun(spec.ID, string(v))
		logger.Debug("test finished", "test", id, "verdict", v, "wall_ms", res.Data.WallMs)
		g.FinishTest(id, v, runtimeData(res.Data, tc.Input))
		return nil
	}

	if j.opts.TestParallelism <= 1 {
		for i := range req.TestCases {
			if err := runTest(ctx, i); err != nil {
				return nil, err
			}
		}
	} else {
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(j.opts.TestParallelism)
		for i := range req.TestCases {
			eg.Go(func() error { return runTest(egCtx, i) })
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}

	overall := verdict.Aggregate(verdicts)
	return func() { g.FinishJob(overall) }, nil
}

func writeInputs(ws *workspace.Workspace, tests []api.TestCase) ([]string, error) {
	names := make([]string, len(tests))
	for i, tc := range tests {
		name, err := materialize.Input(ws, i, tc.Input)
		if err != nil {
			return nil, err
		}
		names[i] = name
	}
	return names, nil
}

func ignoreAll(g gatherer.ResultGatherer, n int) {
	for i := 1; i <= n; i++ {
		g.IgnoreTest(int64(i))
	}
}

// afterJob records and announces the finished submission in the
// background.
func (j *Judge) afterJob(ctx context.Context, logger *slog.Logger, req api.ExecReq, resp *api.ExecResponse) {
	now := time.Now()
	if j.recorder != nil && req.ShouldPersist() {
		j.recorder.Record(recorder.NewRecord(req, resp, now))
	}
	if j.publisher == nil {
		return
	}
	ev := notify.NewEvent(req, resp, now)
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		notify.BestEffort(ctx, j.publisher, ev, j.opts.NotifyTimeout, logger)
	}()
}

func runtimeData(d *sandbox.RunData, stdin string) *api.RuntimeData {
	if d == nil {
		return nil
	}
	return &api.RuntimeData{
		Stdin:         stdin,
		Stdout:        string(d.Stdout),
		Stderr:        string(d.Stderr),
		ExitCode:      d.ExitCode,
		CpuMillis:     d.CpuMs,
		WallMillis:    d.WallMs,
		RamKiBytes:    d.MemKiB,
		CtxSwV:        d.CtxSwV,
		CtxSwF:        d.CtxSwF,
		ExitSignal:    d.ExitSignal,
		CgOomKilled:   d.OOMKilled,
		TimedOut:      d.TimedOut,
		IsolateStatus: api.StrPtrOrNil(d.Status),
		IsolateMsg:    api.StrPtrOrNil(d.Message),
	}
}
