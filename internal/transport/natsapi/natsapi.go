// Package natsapi accepts judge requests from a NATS subject and streams
// progress to each message's reply inbox.
package natsapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/gatherer/natsgath"
	"github.com/programme-lv/judge/internal/judge"
)

type Evaluator interface {
	Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error)
}

type Server struct {
	nc      *nats.Conn
	pub     natsgath.Publisher
	judge   Evaluator
	subject string
	queue   string
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sub    *nats.Subscription
}

func New(nc *nats.Conn, ev Evaluator, subject, queue string, logger *slog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		nc:      nc,
		pub:     nc,
		judge:   ev,
		subject: subject,
		queue:   queue,
		logger:  logger.With("transport", "nats", "subject", subject),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start joins the queue group. Messages are judged concurrently; the
// judge bounds how many run at once.
func (s *Server) Start() error {
	sub, err := s.nc.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Handle(s.ctx, msg.Data, msg.Reply)
		}()
	})
	if err != nil {
		return err
	}
	s.sub = sub
	s.logger.Info("listening for requests", "queue", s.queue)
	return nil
}

// Stop stops taking requests and waits for those in progress.
func (s *Server) Stop(ctx context.Context) error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			s.logger.Warn("failed to unsubscribe", "error", err)
		}
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

// Handle judges one encoded api.ExecReq. Without a reply subject the
// result is only recorded.
func (s *Server) Handle(ctx context.Context, data []byte, reply string) {
	var req api.ExecReq
	if err := json.Unmarshal(data, &req); err != nil {
		s.logger.Warn("dropping malformed request", "error", err)
		if reply != "" {
			natsgath.New(s.pub, "", reply, s.logger).Reject("malformed request: " + err.Error())
		}
		return
	}
	if req.EvalUuid == "" {
		req.EvalUuid = uuid.NewString()
	}

	var g gatherer.ResultGatherer
	var stream interface{ Reject(string) }
	if reply != "" {
		ng := natsgath.New(s.pub, req.EvalUuid, reply, s.logger)
		g, stream = ng, ng
	}

	_, err := s.judge.Evaluate(ctx, req, g)
	if err == nil {
		return
	}
	if judge.IsCallerError(err) {
		s.logger.Info("rejected request", "eval", req.EvalUuid, "error", err)
		if stream != nil {
			stream.Reject(err.Error())
		}
		return
	}
	var sysErr *judge.SystemError
	if !errors.As(err, &sysErr) && stream != nil {
		// canceled before the job started, nothing was streamed yet
		stream.Reject(err.Error())
	}
}
