// Package recorder persists finished submissions. Recording never blocks
// or fails a verdict: callers hand records to Async and move on.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/programme-lv/judge/api"
)

// Record is a persisted submission together with its results.
type Record struct {
	ID          string           `json:"id"`
	EvalUuid    string           `json:"evalUuid"`
	ProblemID   *string          `json:"problemId,omitempty"`
	ProblemName *string          `json:"problemName,omitempty"`
	Language    string           `json:"language"`
	SourceCode  string           `json:"sourceCode"`
	Status      api.ExecStatus   `json:"status"`
	Verdict     api.Verdict      `json:"verdict"`
	Passed      int              `json:"passed"`
	Total       int              `json:"total"`
	Results     []api.TestResult `json:"results"`
	SubmittedAt time.Time        `json:"submittedAt"`
}

// NewRecord assigns the record a fresh id.
func NewRecord(req api.ExecReq, resp *api.ExecResponse, at time.Time) Record {
	return Record{
		ID:          uuid.NewString(),
		EvalUuid:    resp.EvalUuid,
		ProblemID:   req.ProblemID,
		ProblemName: req.ProblemName,
		Language:    req.Language,
		SourceCode:  req.SourceCode,
		Status:      resp.Status,
		Verdict:     resp.OverallVerdict,
		Passed:      resp.Passed(),
		Total:       len(resp.Results),
		Results:     resp.Results,
		SubmittedAt: at.UTC(),
	}
}

type Sink interface {
	Save(ctx context.Context, rec Record) error
}

type multi []Sink

// Multi saves to every sink and joins their errors.
func Multi(sinks ...Sink) Sink {
	return multi(sinks)
}

func (m multi) Save(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Async saves records in the background and only logs failures.
type Async struct {
	sink    Sink
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsync(sink Sink, timeout time.Duration, logger *slog.Logger) *Async {
	return &Async{sink: sink, timeout: timeout, logger: logger}
}

// Record returns immediately.
func (a *Async) Record(rec Record) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.sink.Save(ctx, rec); err != nil {
			a.logger.Error("failed to record submission", "id", rec.ID, "eval", rec.EvalUuid, "error", err)
			return
		}
		a.logger.Debug("recorded submission", "id", rec.ID, "eval", rec.EvalUuid)
	}()
}

// Wait blocks until every pending record has been handled.
func (a *Async) Wait() {
	a.wg.Wait()
}
