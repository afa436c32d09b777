package termgath

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/programme-lv/judge/api"
)

var (
	bold   = color.New(color.Bold).SprintFunc()
	faint  = color.New(color.Faint).SprintFunc()
	green  = color.New(color.FgGreen, color.Bold).SprintFunc()
	red    = color.New(color.FgRed, color.Bold).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
)

// TerminalGatherer prints job progress for humans.
type TerminalGatherer struct {
	StartedAt time.Time
	// Verbose also prints test input, expected and actual output.
	Verbose bool

	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *TerminalGatherer {
	return &TerminalGatherer{StartedAt: time.Now(), w: w}
}

func (t *TerminalGatherer) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *TerminalGatherer) StartJob(systemInfo string) {
	t.printf("%s\n", bold("== Evaluation started =="))
	if systemInfo != "" {
		t.printf("%s\n", faint(systemInfo))
	}
}

func (t *TerminalGatherer) StartCompile() {
	t.printf("-- Compilation started --\n")
}

func (t *TerminalGatherer) FinishCompile(data *api.RuntimeData) {
	t.printf("-- Compilation finished --\n")
	if data != nil {
		t.printf("exit=%d cpu=%dms wall=%dms mem=%dKiB\n", data.ExitCode, data.CpuMillis, data.WallMillis, data.RamKiBytes)
		if data.Stderr != "" {
			t.printf("stderr:\n%s\n", data.Stderr)
		}
	}
}

func (t *TerminalGatherer) ReachTest(testId int64, input []byte, answer []byte) {
	if !t.Verbose {
		return
	}
	t.printf("-> Test %d\n%s\n%s\n", testId, faint("input:"), indent(string(input)))
	t.printf("%s\n%s\n", faint("expected:"), indent(string(answer)))
}

func (t *TerminalGatherer) IgnoreTest(testId int64) {
	t.printf("-> Test %d ignored\n", testId)
}

func (t *TerminalGatherer) FinishTest(testId int64, verdict api.Verdict, submission *api.RuntimeData) {
	line := fmt.Sprintf("<- Test %d %s", testId, paint(verdict))
	if submission != nil {
		line += fmt.Sprintf(" exit=%d cpu=%dms wall=%dms mem=%dKiB",
			submission.ExitCode, submission.CpuMillis, submission.WallMillis, submission.RamKiBytes)
	}
	t.printf("%s\n", line)
	if t.Verbose && submission != nil {
		t.printf("%s\n%s\n", faint("output:"), indent(submission.Stdout))
		if submission.Stderr != "" {
			t.printf("%s\n%s\n", faint("stderr:"), indent(submission.Stderr))
		}
	}
}

func (t *TerminalGatherer) CompileError(msg string) {
	t.printf("%s\n%s\n", red("== Compilation error =="), msg)
}

func (t *TerminalGatherer) InternalError(msg string) {
	t.printf("%s %s\n", red("== Internal error:"), msg)
}

func (t *TerminalGatherer) FinishJob(verdict api.Verdict) {
	dur := time.Since(t.StartedAt).Round(time.Millisecond)
	t.printf("== %s in %s ==\n", paint(verdict), dur)
}

func paint(v api.Verdict) string {
	switch v {
	case api.Accepted:
		return green(string(v))
	case api.TimeLimitExceeded:
		return yellow(string(v))
	default:
		return red(string(v))
	}
}

func indent(s string) string {
	s = strings.TrimRight(s, "\n")
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
