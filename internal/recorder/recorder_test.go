package recorder_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() recorder.Record {
	problem := "two-sum"
	req := api.ExecReq{Language: "python", SourceCode: "print(3)", ProblemID: &problem}
	resp := &api.ExecResponse{
		EvalUuid:       "eval-1",
		Status:         api.Finished,
		OverallVerdict: api.WrongAnswer,
		Results: []api.TestResult{
			{TestId: 1, Input: "1 2", Expected: "3", Output: "3", Verdict: api.Accepted},
			{TestId: 2, Input: "2 2", Expected: "4", Output: "3", Verdict: api.WrongAnswer},
		},
	}
	return recorder.NewRecord(req, resp, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestNewRecord(t *testing.T) {
	rec := sampleRecord()
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "eval-1", rec.EvalUuid)
	assert.Equal(t, "two-sum", *rec.ProblemID)
	assert.Equal(t, 1, rec.Passed)
	assert.Equal(t, 2, rec.Total)
	assert.Equal(t, api.WrongAnswer, rec.Verdict)
}

func TestFileSinkRoundTrip(t *testing.T) {
	sink, err := recorder.NewFileSink(t.TempDir())
	require.NoError(t, err)

	rec := sampleRecord()
	require.NoError(t, sink.Save(context.Background(), rec))

	path := sink.Path(rec)
	assert.Contains(t, path, "2026-03-01")
	assert.NoFileExists(t, path+".tmp")

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	// zstd magic number
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])

	loaded, err := sink.Load(path)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, loaded.ID)
	assert.Equal(t, rec.Results, loaded.Results)
	assert.True(t, rec.SubmittedAt.Equal(loaded.SubmittedAt))
}

type flakySink struct {
	mu    sync.Mutex
	saved []string
	err   error
	delay time.Duration
}

func (s *flakySink) Save(ctx context.Context, rec recorder.Record) error {
	time.Sleep(s.delay)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, rec.ID)
	return nil
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	sink := &flakySink{delay: 100 * time.Millisecond}
	a := recorder.NewAsync(sink, time.Second, slog.Default())

	start := time.Now()
	a.Record(sampleRecord())
	a.Record(sampleRecord())
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	a.Wait()
	assert.Len(t, sink.saved, 2)
}

func TestAsyncSwallowsErrors(t *testing.T) {
	sink := &flakySink{err: errors.New("database down")}
	a := recorder.NewAsync(sink, time.Second, slog.Default())
	a.Record(sampleRecord())
	a.Wait()
	assert.Empty(t, sink.saved)
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &flakySink{}
	bad := &flakySink{err: errors.New("disk full")}
	err := recorder.Multi(ok, bad).Save(context.Background(), sampleRecord())
	require.ErrorContains(t, err, "disk full")
	assert.Len(t, ok.saved, 1)
}
