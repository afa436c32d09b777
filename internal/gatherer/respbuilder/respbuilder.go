package respbuilder

import (
	"sync"
	"time"

	"github.com/programme-lv/judge/api"
)

// Builder gathers execution events and builds a complete api.ExecResponse.
type Builder struct {
	mu sync.Mutex

	evalUuid   string
	systemInfo string

	started  time.Time
	finished *time.Time

	// nil until a compile step starts
	compilation *api.CompileResult

	results []api.TestResult

	status       api.ExecStatus
	overall      api.Verdict
	errorMessage *string
}

// New prepares one result slot per test so that the response keeps
// request order regardless of the order tests finish in.
func New(evalUuid string, tests []api.TestCase) *Builder {
	results := make([]api.TestResult, len(tests))
	for i, tc := range tests {
		results[i] = api.TestResult{
			TestId:   i + 1,
			Input:    tc.Input,
			Expected: tc.ExpectedOutput,
			Hidden:   tc.Hidden,
		}
	}
	return &Builder{
		evalUuid: evalUuid,
		started:  time.Now(),
		status:   api.Finished,
		results:  results,
	}
}

// StartJob implements ResultGatherer.
func (b *Builder) StartJob(systemInfo string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.systemInfo = systemInfo
}

// StartCompile implements ResultGatherer.
func (b *Builder) StartCompile() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.compilation = &api.CompileResult{}
}

// FinishCompile implements ResultGatherer. Whether compilation succeeded
// is decided by CompileError, not by the exit code seen here.
func (b *Builder) FinishCompile(data *api.RuntimeData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compilation == nil {
		b.compilation = &api.CompileResult{}
	}
	b.compilation.Success = true
	if data != nil {
		cpu, wall, mem := data.CpuMillis, data.WallMillis, data.RamKiBytes
		b.compilation.CpuMillis = &cpu
		b.compilation.WallMillis = &wall
		b.compilation.MemoryKiBytes = &mem
	}
}

// ReachTest implements ResultGatherer.
func (b *Builder) ReachTest(testId int64, input []byte, answer []byte) {}

// IgnoreTest implements ResultGatherer.
func (b *Builder) IgnoreTest(testId int64) {}

// FinishTest implements ResultGatherer.
func (b *Builder) FinishTest(testId int64, verdict api.Verdict, subm *api.RuntimeData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tr := b.slot(testId)
	if tr == nil {
		return
	}
	tr.Verdict = verdict
	if subm == nil {
		return
	}
	tr.Output = subm.Stdout
	cpu, wall, mem := subm.CpuMillis, subm.WallMillis, subm.RamKiBytes
	tr.CpuMillis = &cpu
	tr.WallMillis = &wall
	tr.MemoryKiBytes = &mem
	code := subm.ExitCode
	tr.ExitCode = &code
	if subm.ExitSignal != nil {
		sig := *subm.ExitSignal
		tr.ExitSignal = &sig
	}
	tr.Stderr = api.StrPtrOrNil(subm.Stderr)
}

// CompileError implements ResultGatherer. Every test that did not run is
// reported as a compilation error.
func (b *Builder) CompileError(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compilation == nil {
		b.compilation = &api.CompileResult{}
	}
	b.compilation.Success = false
	b.compilation.Error = &msg
	b.status = api.CompileError
	b.overall = api.CompilationError
	b.errorMessage = &msg
	for i := range b.results {
		if b.results[i].Verdict == "" {
			b.results[i].Verdict = api.CompilationError
		}
	}
	b.finish()
}

// InternalError implements ResultGatherer.
func (b *Builder) InternalError(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status = api.InternalError
	b.overall = ""
	b.errorMessage = &msg
	b.finish()
}

// FinishJob implements ResultGatherer.
func (b *Builder) FinishJob(verdict api.Verdict) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overall = verdict
	b.finish()
}

func (b *Builder) finish() {
	now := time.Now()
	b.finished = &now
}

func (b *Builder) slot(testId int64) *api.TestResult {
	if testId < 1 || int(testId) > len(b.results) {
		return nil
	}
	return &b.results[testId-1]
}

// Response builds the api.ExecResponse from gathered data.
func (b *Builder) Response() api.ExecResponse {
	b.mu.Lock()
	defer b.mu.Unlock()

	start := b.started.Format(time.RFC3339)
	finish := start
	total := int64(0)
	if b.finished != nil {
		finish = b.finished.Format(time.RFC3339)
		total = b.finished.Sub(b.started).Milliseconds()
	}

	var compilation *api.CompileResult
	if b.compilation != nil {
		c := *b.compilation
		compilation = &c
	}
	var errMsg *string
	if b.errorMessage != nil {
		v := *b.errorMessage
		errMsg = &v
	}

	return api.ExecResponse{
		EvalUuid:       b.evalUuid,
		Status:         b.status,
		Results:        append([]api.TestResult(nil), b.results...),
		OverallVerdict: b.overall,
		Compilation:    compilation,
		ErrorMessage:   errMsg,
		StartTime:      start,
		FinishTime:     finish,
		TotalTimeMs:    total,
		SystemInfo:     api.StrPtrOrNil(b.systemInfo),
	}
}
