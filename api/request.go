package api

// ExecReq is a submission to be judged against an ordered list of tests.
type ExecReq struct {
	// Generated when empty.
	EvalUuid string `json:"evalUuid,omitempty"`

	Language   string     `json:"language"`
	SourceCode string     `json:"sourceCode"`
	TestCases  []TestCase `json:"testCases"`

	ProblemID   *string `json:"problemId,omitempty"`
	ProblemName *string `json:"problemName,omitempty"`

	// Zero means the configured default.
	TimeLimitMs    int64 `json:"timeLimitMs,omitempty"`
	MemoryLimitKiB int64 `json:"memoryLimitKiB,omitempty"`

	// Persist asks for the submission to be recorded. Requests carrying
	// a problem id are always recorded.
	Persist bool `json:"persist,omitempty"`
}

// TestCase is a single input and the output it is expected to produce.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expectedOutput"`
	// Hidden only affects what callers may display.
	Hidden bool `json:"hidden,omitempty"`
}

// ShouldPersist reports whether the finished submission must be recorded.
func (r *ExecReq) ShouldPersist() bool {
	return r.Persist || (r.ProblemID != nil && *r.ProblemID != "")
}

// RunReq executes code once against custom stdin without judging output.
type RunReq struct {
	Language    string `json:"language"`
	SourceCode  string `json:"sourceCode"`
	Stdin       string `json:"stdin"`
	TimeLimitMs int64  `json:"timeLimitMs,omitempty"`
}
