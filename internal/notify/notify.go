// Package notify announces finished submissions to downstream consumers
// over NATS, Kafka or Redis pub/sub.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/programme-lv/judge/api"
)

const SubmissionFinished = "submission.finished"

type Event struct {
	Type       string      `json:"type"`
	EvalUuid   string      `json:"evalUuid"`
	ProblemID  *string     `json:"problemId,omitempty"`
	Language   string      `json:"language"`
	Status     string      `json:"status"`
	Verdict    api.Verdict `json:"verdict,omitempty"`
	Passed     int         `json:"passed"`
	Tests      int         `json:"tests"`
	FinishedAt time.Time   `json:"finishedAt"`
}

func NewEvent(req api.ExecReq, resp *api.ExecResponse, at time.Time) Event {
	return Event{
		Type:       SubmissionFinished,
		EvalUuid:   resp.EvalUuid,
		ProblemID:  req.ProblemID,
		Language:   req.Language,
		Status:     string(resp.Status),
		Verdict:    resp.OverallVerdict,
		Passed:     resp.Passed(),
		Tests:      len(resp.Results),
		FinishedAt: at.UTC(),
	}
}

func (e Event) encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type multi []Publisher

// Multi publishes to every publisher and joins their errors.
func Multi(pubs ...Publisher) Publisher {
	return multi(pubs)
}

func (m multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffort publishes within timeout and logs a failure instead of
// returning it. A nil publisher is a no-op.
func BestEffort(ctx context.Context, pub Publisher, ev Event, timeout time.Duration, logger *slog.Logger) {
	if pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := pub.Publish(ctx, ev); err != nil {
		logger.Warn("failed to publish submission event", "eval", ev.EvalUuid, "error", err)
	}
}
