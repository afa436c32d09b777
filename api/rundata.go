package api

// RuntimeData contains execution information for a process (streaming version)
type RuntimeData struct {
	Stdin    string `json:"in"`
	Stdout   string `json:"out"`
	Stderr   string `json:"err"`
	ExitCode int64  `json:"exit"`

	CpuMillis  int64 `json:"cpu_ms"`
	WallMillis int64 `json:"wall_ms"`
	RamKiBytes int64 `json:"ram_kib"`

	CtxSwV int64 `json:"ctx_sw_v"`
	CtxSwF int64 `json:"ctx_sw_f"`

	ExitSignal  *int64 `json:"signal"`
	CgOomKilled bool   `json:"cg_oom_killed"`
	TimedOut    bool   `json:"timed_out"`

	IsolateStatus *string `json:"isolate_status"`
	IsolateMsg    *string `json:"isolate_msg"`
}

// Trimmed returns a copy whose text fields fit into the streaming
// rectangle.
func (d *RuntimeData) Trimmed() *RuntimeData {
	if d == nil {
		return nil
	}
	c := *d
	c.Stdin = TrimStrToRect(d.Stdin, MaxRuntimeDataHeight, MaxRuntimeDataWidth)
	c.Stdout = TrimStrToRect(d.Stdout, MaxRuntimeDataHeight, MaxRuntimeDataWidth)
	c.Stderr = TrimStrToRect(d.Stderr, MaxRuntimeDataHeight, MaxRuntimeDataWidth)
	return &c
}
