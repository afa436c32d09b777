package api_test

import (
	"strings"
	"testing"

	"github.com/programme-lv/judge/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrimStrToRect(t *testing.T) {
	assert.Equal(t, "", api.TrimStrToRect("", 2, 3))
	assert.Equal(t, "ab\ncd", api.TrimStrToRect("ab\ncd", 2, 3))
	assert.Equal(t, "abc[...]\nd", api.TrimStrToRect("abcdef\nd", 2, 3))
	assert.Equal(t, "a\nb\n[...]", api.TrimStrToRect("a\nb\nc\nd", 2, 3))

	long := strings.Repeat("x\n", 100)
	trimmed := api.TrimStrToRect(long, api.MaxRuntimeDataHeight, api.MaxRuntimeDataWidth)
	assert.Len(t, strings.Split(trimmed, "\n"), api.MaxRuntimeDataHeight+1)
}

func TestParseVerdict(t *testing.T) {
	v, err := api.ParseVerdict("Wrong Answer")
	require.NoError(t, err)
	assert.Equal(t, api.WrongAnswer, v)

	v, err = api.ParseVerdict("TLE")
	require.NoError(t, err)
	assert.Equal(t, api.TimeLimitExceeded, v)

	_, err = api.ParseVerdict("Presentation Error")
	require.Error(t, err)
}

func TestRedactedHidesOnlyHiddenTests(t *testing.T) {
	stderr := "boom"
	resp := api.ExecResponse{
		Results: []api.TestResult{
			{TestId: 1, Input: "1", Expected: "1", Output: "1", Verdict: api.Accepted},
			{TestId: 2, Input: "2", Expected: "2", Output: "3", Verdict: api.WrongAnswer, Hidden: true, Stderr: &stderr},
		},
	}

	red := resp.Redacted()
	assert.Equal(t, "1", red.Results[0].Input)
	assert.Equal(t, "", red.Results[1].Input)
	assert.Equal(t, "", red.Results[1].Output)
	assert.Nil(t, red.Results[1].Stderr)
	assert.Equal(t, api.WrongAnswer, red.Results[1].Verdict)

	// original untouched
	assert.Equal(t, "3", resp.Results[1].Output)
}

func TestShouldPersist(t *testing.T) {
	req := api.ExecReq{}
	assert.False(t, req.ShouldPersist())
	id := "two-sum"
	req.ProblemID = &id
	assert.True(t, req.ShouldPersist())
	assert.True(t, (&api.ExecReq{Persist: true}).ShouldPersist())
}
