package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/judge"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/programme-lv/judge/internal/transport/httpapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubJudge struct {
	evaluateFn func(req api.ExecReq) (*api.ExecResponse, error)
	runFn      func(req api.RunReq) (*api.RunResponse, error)
}

func (s *stubJudge) Evaluate(ctx context.Context, req api.ExecReq, g gatherer.ResultGatherer) (*api.ExecResponse, error) {
	return s.evaluateFn(req)
}

func (s *stubJudge) Run(ctx context.Context, req api.RunReq) (*api.RunResponse, error) {
	return s.runFn(req)
}

func do(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func hiddenResponse(req api.ExecReq) (*api.ExecResponse, error) {
	return &api.ExecResponse{
		EvalUuid:       "e-1",
		Status:         api.Finished,
		OverallVerdict: api.Accepted,
		Results: []api.TestResult{
			{TestId: 1, Input: "1", Expected: "1", Output: "1", Verdict: api.Accepted},
			{TestId: 2, Input: "secret", Expected: "secret", Output: "secret", Verdict: api.Accepted, Hidden: true},
		},
	}, nil
}

func TestSubmitRedactsHiddenTests(t *testing.T) {
	r := httpapi.NewRouter(httpapi.Options{Judge: &stubJudge{evaluateFn: hiddenResponse}})
	req := api.ExecReq{Language: "python", SourceCode: "print(1)"}

	w := do(t, r, http.MethodPost, "/api/code/submit", req)
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.ExecResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1", resp.Results[0].Input)
	assert.Empty(t, resp.Results[1].Input)
	assert.Empty(t, resp.Results[1].Output)
	assert.Equal(t, api.Accepted, resp.Results[1].Verdict)

	w = do(t, r, http.MethodPost, "/api/code/submit?reveal=true", req)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "secret", resp.Results[1].Input)
}

func TestSubmitErrors(t *testing.T) {
	var next error
	r := httpapi.NewRouter(httpapi.Options{Judge: &stubJudge{
		evaluateFn: func(api.ExecReq) (*api.ExecResponse, error) {
			return &api.ExecResponse{Status: api.InternalError}, next
		},
	}})
	valid := api.ExecReq{Language: "cobol", SourceCode: "x"}

	w := do(t, r, http.MethodPost, "/api/code/submit", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/code/submit", api.ExecReq{Language: "python"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	next = &toolchain.UnsupportedLanguageError{Language: "cobol"}
	w = do(t, r, http.MethodPost, "/api/code/submit", valid)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cobol")

	next = &judge.SystemError{Stage: "workspace", Err: errors.New("disk full")}
	w = do(t, r, http.MethodPost, "/api/code/submit", valid)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["system"])
	assert.Contains(t, body["error"], "disk full")
}

func TestRun(t *testing.T) {
	r := httpapi.NewRouter(httpapi.Options{Judge: &stubJudge{
		runFn: func(req api.RunReq) (*api.RunResponse, error) {
			return &api.RunResponse{Status: api.RunSuccess, Stdout: req.Stdin}, nil
		},
	}})
	w := do(t, r, http.MethodPost, "/api/code/run", api.RunReq{Language: "python", SourceCode: "x", Stdin: "echo"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp api.RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, api.RunSuccess, resp.Status)
	assert.Equal(t, "echo", resp.Stdout)
}

func TestLanguagesHealthAndMetrics(t *testing.T) {
	reg, err := toolchain.Default()
	require.NoError(t, err)
	prom := prometheus.NewRegistry()
	prom.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "judge_test_counter"}))

	r := httpapi.NewRouter(httpapi.Options{
		Judge:     &stubJudge{},
		Languages: reg.List(),
		Metrics:   prom,
	})

	w := do(t, r, http.MethodGet, "/api/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Languages []struct {
			ID       string `json:"id"`
			Compiled bool   `json:"compiled"`
		} `json:"languages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	compiled := map[string]bool{}
	for _, l := range body.Languages {
		compiled[l.ID] = l.Compiled
	}
	assert.True(t, compiled["cpp"])
	assert.False(t, compiled["python"])

	w = do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "judge_test_counter")
}

func TestRateLimit(t *testing.T) {
	r := httpapi.NewRouter(httpapi.Options{
		Judge:   &stubJudge{evaluateFn: hiddenResponse},
		Limiter: httpapi.NewLimiter(0.001, 1),
	})
	req := api.ExecReq{Language: "python", SourceCode: "x"}

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodPost, "/api/code/submit", req).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/api/code/submit", req).Code)
	// health is never limited
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)
}

func TestLimiterForgetsIdleClients(t *testing.T) {
	l := httpapi.NewLimiter(100, 10)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
	assert.Equal(t, 0, l.Forget(time.Hour))
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, l.Forget(time.Millisecond))

	var disabled *httpapi.Limiter
	assert.True(t, disabled.Allow("x"))
	assert.Nil(t, httpapi.NewLimiter(0, 0))
}
