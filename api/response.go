package api

// TestResult is the outcome of one test case, in request order.
type TestResult struct {
	TestId int `json:"testId"`

	Input    string  `json:"input"`
	Expected string  `json:"expected"`
	Output   string  `json:"output"`
	Verdict  Verdict `json:"verdict"`
	Hidden   bool    `json:"hidden,omitempty"`

	// Resource usage (only if the test was executed)
	CpuMillis     *int64 `json:"cpuMs,omitempty"`
	WallMillis    *int64 `json:"wallMs,omitempty"`
	MemoryKiBytes *int64 `json:"memKiB,omitempty"`

	ExitCode   *int64  `json:"exitCode,omitempty"`
	ExitSignal *int64  `json:"exitSignal,omitempty"`
	Stderr     *string `json:"stderr,omitempty"`
}

// CompileResult represents compilation outcome
type CompileResult struct {
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`

	CpuMillis     *int64 `json:"cpuMs,omitempty"`
	WallMillis    *int64 `json:"wallMs,omitempty"`
	MemoryKiBytes *int64 `json:"memKiB,omitempty"`
}

type ExecStatus string

const (
	Finished      ExecStatus = "finished"
	CompileError  ExecStatus = "compile_error"
	InternalError ExecStatus = "internal_error"
)

// ExecResponse is the complete result of judging a submission.
type ExecResponse struct {
	EvalUuid string     `json:"evalUuid"`
	Status   ExecStatus `json:"status"`

	Results        []TestResult `json:"results"`
	OverallVerdict Verdict      `json:"overallVerdict,omitempty"`

	// nil for interpreted languages
	Compilation *CompileResult `json:"compilation,omitempty"`

	ErrorMessage *string `json:"errorMessage,omitempty"`

	StartTime   string `json:"startTime"`
	FinishTime  string `json:"finishTime"`
	TotalTimeMs int64  `json:"totalTimeMs"`

	SystemInfo *string `json:"systemInfo,omitempty"`
}

// Redacted returns a copy with input, expected and actual output of
// hidden tests removed.
func (r ExecResponse) Redacted() ExecResponse {
	results := make([]TestResult, len(r.Results))
	for i, res := range r.Results {
		if res.Hidden {
			res.Input = ""
			res.Expected = ""
			res.Output = ""
			res.Stderr = nil
		}
		results[i] = res
	}
	r.Results = results
	return r
}

// Passed counts accepted tests.
func (r *ExecResponse) Passed() int {
	n := 0
	for _, res := range r.Results {
		if res.Verdict == Accepted {
			n++
		}
	}
	return n
}

// RunStatus is the outcome of an unjudged run.
type RunStatus string

const (
	RunSuccess           RunStatus = "Success"
	RunRuntimeError      RunStatus = "Runtime Error"
	RunTimeLimitExceeded RunStatus = "Time Limit Exceeded"
	RunCompilationError  RunStatus = "Compilation Error"
)

// RunResponse answers a RunReq.
type RunResponse struct {
	Status        RunStatus `json:"status"`
	Stdout        string    `json:"stdout"`
	Stderr        string    `json:"stderr"`
	ExitCode      int64     `json:"exitCode"`
	WallMillis    int64     `json:"wallMs"`
	CompileOutput *string   `json:"compileOutput,omitempty"`
}
