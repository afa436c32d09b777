// Package behave runs behaviour scenarios: submissions described in TOML
// together with the verdicts they must receive.
package behave

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/toolchain"
)

type specTest struct {
	In     string `toml:"in"`
	Ans    string `toml:"ans"`
	Hidden bool   `toml:"hidden"`
}

type specRequest struct {
	Language       string     `toml:"language"`
	Code           string     `toml:"code"`
	TimeLimitMs    int64      `toml:"time_limit_ms"`
	MemoryLimitKiB int64      `toml:"memory_limit_kib"`
	Tests          []specTest `toml:"tests"`
}

type specExpect struct {
	Status       string   `toml:"status"`
	Verdict      string   `toml:"verdict"`
	TestVerdicts []string `toml:"test_verdicts"`
}

type specScenario struct {
	Description string      `toml:"description"`
	Request     specRequest `toml:"request"`
	Expect      specExpect  `toml:"expect"`
}

type specRoot struct {
	// toolchains added to the registry for this file only
	Languages []toolchain.Spec `toml:"languages"`
	Scenarios []specScenario   `toml:"scenarios"`
}

// Expect is what a scenario must produce. Empty fields are not checked.
type Expect struct {
	Status       api.ExecStatus
	Verdict      api.Verdict
	TestVerdicts []api.Verdict
}

// Case is a runnable scenario.
type Case struct {
	Name    string
	Request api.ExecReq
	Expect  Expect
}

type Suite struct {
	Languages []toolchain.Spec
	Cases     []Case
}

func ParseFile(path string) (*Suite, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read behaviour file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a behaviour TOML document.
func Parse(r io.Reader) (*Suite, error) {
	var root specRoot
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	suite := &Suite{Languages: root.Languages}
	for i, sc := range root.Scenarios {
		name := sc.Description
		if name == "" {
			name = fmt.Sprintf("scenario %d", i+1)
		}
		if sc.Request.Language == "" {
			return nil, fmt.Errorf("%s: request has no language", name)
		}

		expect, err := sc.Expect.parse()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if expect.TestVerdicts != nil && len(expect.TestVerdicts) != len(sc.Request.Tests) {
			return nil, fmt.Errorf("%s: %d test verdicts for %d tests",
				name, len(expect.TestVerdicts), len(sc.Request.Tests))
		}

		tests := make([]api.TestCase, len(sc.Request.Tests))
		for j, t := range sc.Request.Tests {
			tests[j] = api.TestCase{Input: t.In, ExpectedOutput: t.Ans, Hidden: t.Hidden}
		}
		suite.Cases = append(suite.Cases, Case{
			Name: name,
			Request: api.ExecReq{
				Language:       sc.Request.Language,
				SourceCode:     sc.Request.Code,
				TestCases:      tests,
				TimeLimitMs:    sc.Request.TimeLimitMs,
				MemoryLimitKiB: sc.Request.MemoryLimitKiB,
			},
			Expect: expect,
		})
	}
	return suite, nil
}

func (e specExpect) parse() (Expect, error) {
	out := Expect{Status: api.ExecStatus(e.Status)}
	switch out.Status {
	case "", api.Finished, api.CompileError, api.InternalError:
	default:
		return out, fmt.Errorf("unknown status %q", e.Status)
	}
	if e.Verdict != "" {
		v, err := api.ParseVerdict(e.Verdict)
		if err != nil {
			return out, err
		}
		out.Verdict = v
	}
	if e.TestVerdicts != nil {
		out.TestVerdicts = make([]api.Verdict, len(e.TestVerdicts))
		for i, s := range e.TestVerdicts {
			v, err := api.ParseVerdict(s)
			if err != nil {
				return out, fmt.Errorf("test %d: %w", i+1, err)
			}
			out.TestVerdicts[i] = v
		}
	}
	return out, nil
}

// Evaluator judges one request.
type Evaluator interface {
	Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error)
}

type Outcome struct {
	Case     Case
	Response *api.ExecResponse
	Err      error
	Failures []string
}

func (o *Outcome) Passed() bool {
	return o.Err == nil && len(o.Failures) == 0
}

// Run evaluates the cases one after another. newGatherer may be nil.
func Run(ctx context.Context, ev Evaluator, cases []Case, newGatherer func(Case) gatherer.ResultGatherer) []Outcome {
	outcomes := make([]Outcome, 0, len(cases))
	for _, c := range cases {
		var g gatherer.ResultGatherer
		if newGatherer != nil {
			g = newGatherer(c)
		}
		resp, err := ev.Evaluate(ctx, c.Request, g)
		o := Outcome{Case: c, Response: resp, Err: err}
		if err == nil {
			o.Failures = Check(c.Expect, resp)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Check lists every difference between the expectation and resp.
func Check(want Expect, resp *api.ExecResponse) []string {
	var failures []string
	if want.Status != "" && resp.Status != want.Status {
		failures = append(failures, fmt.Sprintf("status: want %s, got %s", want.Status, resp.Status))
	}
	if want.Verdict != "" && resp.OverallVerdict != want.Verdict {
		failures = append(failures, fmt.Sprintf("verdict: want %s, got %s", want.Verdict, resp.OverallVerdict))
	}
	if want.TestVerdicts != nil {
		if len(resp.Results) != len(want.TestVerdicts) {
			failures = append(failures, fmt.Sprintf("tests: want %d results, got %d", len(want.TestVerdicts), len(resp.Results)))
			return failures
		}
		for i, v := range want.TestVerdicts {
			if got := resp.Results[i].Verdict; got != v {
				failures = append(failures, fmt.Sprintf("test %d: want %s, got %s", i+1, v.Short(), got.Short()))
			}
		}
	}
	return failures
}

// Summary is a one line report of outcomes.
func Summary(outcomes []Outcome) string {
	passed := 0
	var failed []string
	for i := range outcomes {
		if outcomes[i].Passed() {
			passed++
		} else {
			failed = append(failed, outcomes[i].Case.Name)
		}
	}
	s := fmt.Sprintf("%d/%d scenarios passed", passed, len(outcomes))
	if len(failed) > 0 {
		s += "; failed: " + strings.Join(failed, ", ")
	}
	return s
}
