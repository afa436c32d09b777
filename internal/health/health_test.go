package health_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/health"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type byLanguage map[string]api.Verdict

func (b byLanguage) Evaluate(ctx context.Context, req api.ExecReq, g gatherer.ResultGatherer) (*api.ExecResponse, error) {
	v, ok := b[req.Language]
	if !ok {
		return nil, errors.New("no runtime")
	}
	return &api.ExecResponse{OverallVerdict: v, Results: []api.TestResult{{Verdict: v}}}, nil
}

func TestCheck(t *testing.T) {
	langs := []toolchain.Spec{
		{ID: "python", Name: "Python 3", HelloWorld: "print()"},
		{ID: "ruby", Name: "Ruby", HelloWorld: "puts"},
		{ID: "go", HelloWorld: "package main"},
		{ID: "brainfuck"},
	}
	ev := byLanguage{"python": api.Accepted, "ruby": api.WrongAnswer}
	probe := func(ctx context.Context) (string, error) { return "isolate 2.0\n", nil }

	rows := health.Check(context.Background(), "isolate", probe, ev, langs)
	require.Len(t, rows, 5)
	assert.Equal(t, health.Row{Unit: "isolate", Level: health.OK, Message: "isolate 2.0"}, rows[0])
	assert.Equal(t, health.OK, rows[1].Level)
	assert.Equal(t, health.Error, rows[2].Level)
	assert.Equal(t, "Wrong Answer", rows[2].Message)
	assert.Equal(t, "go", rows[3].Unit)
	assert.Equal(t, "no runtime", rows[3].Message)
	assert.Equal(t, health.Warn, rows[4].Level)
	assert.False(t, health.Healthy(rows))
}

func TestBrokenRuntimeSkipsLanguages(t *testing.T) {
	probe := func(ctx context.Context) (string, error) { return "", errors.New("docker daemon unreachable") }
	rows := health.Check(context.Background(), "docker", probe, byLanguage{}, []toolchain.Spec{{ID: "python", HelloWorld: "x"}})
	require.Len(t, rows, 1)
	assert.Equal(t, health.Error, rows[0].Level)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	health.Render(&buf, []health.Row{
		{Unit: "docker", Level: health.OK, Message: "27.5.1"},
		{Unit: "Ruby", Level: health.Warn, Message: "no hello world program"},
	})
	out := buf.String()
	assert.Contains(t, out, "docker")
	assert.Contains(t, out, "OKAY")
	assert.Contains(t, out, "no hello world program")
	assert.True(t, health.Healthy([]health.Row{{Level: health.Warn}}))
}
