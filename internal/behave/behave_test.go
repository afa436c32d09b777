package behave_test

import (
	"context"
	"strings"
	"testing"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/behave"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFile(t *testing.T) {
	suite, err := behave.ParseFile("testdata/shell.toml")
	require.NoError(t, err)

	require.Len(t, suite.Languages, 1)
	assert.Equal(t, "sh", suite.Languages[0].ID)
	assert.Equal(t, []string{"sh", "{src}"}, suite.Languages[0].RunCmd)

	require.Len(t, suite.Cases, 3)
	c := suite.Cases[1]
	assert.Equal(t, "first failure decides", c.Name)
	assert.EqualValues(t, 300, c.Request.TimeLimitMs)
	require.Len(t, c.Request.TestCases, 3)
	assert.True(t, c.Request.TestCases[2].Hidden)
	assert.Equal(t, api.WrongAnswer, c.Expect.Verdict)
	assert.Equal(t, []api.Verdict{api.Accepted, api.WrongAnswer, api.TimeLimitExceeded}, c.Expect.TestVerdicts)

	assert.Equal(t, api.CompileError, suite.Cases[2].Expect.Status)
}

func TestParseRejectsBadScenarios(t *testing.T) {
	for name, doc := range map[string]string{
		"no language": `
[[scenarios]]
[scenarios.request]
code = "x"
`,
		"unknown verdict": `
[[scenarios]]
[scenarios.request]
language = "sh"
[scenarios.expect]
verdict = "Partial"
`,
		"verdict count": `
[[scenarios]]
[scenarios.request]
language = "sh"
[[scenarios.request.tests]]
in = "1"
[scenarios.expect]
test_verdicts = ["AC", "AC"]
`,
		"unknown field": `
[[scenarios]]
colour = "red"
`,
	} {
		_, err := behave.Parse(strings.NewReader(doc))
		assert.Error(t, err, name)
	}
}

type fixedEvaluator struct {
	resp *api.ExecResponse
	err  error
	reqs []api.ExecReq
}

func (f *fixedEvaluator) Evaluate(ctx context.Context, req api.ExecReq, g gatherer.ResultGatherer) (*api.ExecResponse, error) {
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func TestRunReportsDifferences(t *testing.T) {
	ev := &fixedEvaluator{resp: &api.ExecResponse{
		Status:         api.Finished,
		OverallVerdict: api.WrongAnswer,
		Results:        []api.TestResult{{Verdict: api.Accepted}, {Verdict: api.WrongAnswer}},
	}}
	cases := []behave.Case{
		{Name: "matches", Expect: behave.Expect{Verdict: api.WrongAnswer, TestVerdicts: []api.Verdict{api.Accepted, api.WrongAnswer}}},
		{Name: "differs", Expect: behave.Expect{Status: api.CompileError, TestVerdicts: []api.Verdict{api.Accepted, api.Accepted}}},
	}

	outcomes := behave.Run(context.Background(), ev, cases, nil)
	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Passed())
	assert.False(t, outcomes[1].Passed())
	assert.Equal(t, []string{
		"status: want compile_error, got finished",
		"test 2: want AC, got WA",
	}, outcomes[1].Failures)
	assert.Equal(t, "1/2 scenarios passed; failed: differs", behave.Summary(outcomes))
	assert.Len(t, ev.reqs, 2)
}
