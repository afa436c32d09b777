// Package sqsapi long-polls an SQS queue for judge requests and streams
// progress to the response queue named in each request.
package sqsapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/gatherer/sqsgath"
	"github.com/programme-lv/judge/internal/judge"
	"golang.org/x/sync/errgroup"
)

// Client is the part of *sqs.Client the poller needs.
type Client interface {
	sqsgath.Sender
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

var _ Client = (*sqs.Client)(nil)

type Evaluator interface {
	Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error)
}

// NewClient loads AWS settings from the environment and shared config.
func NewClient(ctx context.Context, region string) (*sqs.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return sqs.NewFromConfig(cfg), nil
}

type Poller struct {
	client   Client
	judge    Evaluator
	queueUrl string
	// messages handled at once
	batch  int32
	logger *slog.Logger
}

func New(client Client, ev Evaluator, queueUrl string, batch int32, logger *slog.Logger) *Poller {
	if batch < 1 || batch > 10 {
		batch = 1
	}
	return &Poller{
		client:   client,
		judge:    ev,
		queueUrl: queueUrl,
		batch:    batch,
		logger:   logger.With("transport", "sqs", "queue", queueUrl),
	}
}

// Run polls until ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("polling for requests")
	for {
		if ctx.Err() != nil {
			return nil
		}
		if err := p.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("failed to receive messages", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
		}
	}
}

// Poll receives one batch and handles it.
func (p *Poller) Poll(ctx context.Context) error {
	out, err := p.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(p.queueUrl),
		MaxNumberOfMessages: p.batch,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   300,
	})
	if err != nil {
		return err
	}

	var eg errgroup.Group
	for _, msg := range out.Messages {
		eg.Go(func() error {
			p.handle(ctx, msg)
			return nil
		})
	}
	return eg.Wait()
}

func (p *Poller) handle(ctx context.Context, msg types.Message) {
	if p.process(ctx, aws.ToString(msg.Body)) {
		return
	}
	_, err := p.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.queueUrl),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		p.logger.Error("failed to delete message", "id", aws.ToString(msg.MessageId), "error", err)
	}
}

// process judges one request. It reports whether the message should stay
// on the queue for another attempt.
func (p *Poller) process(ctx context.Context, body string) (retry bool) {
	var req api.QueuedExecReq
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		p.logger.Warn("dropping malformed request", "error", err)
		return false
	}
	if req.EvalUuid == "" {
		req.EvalUuid = uuid.NewString()
	}

	var g gatherer.ResultGatherer
	var stream interface{ Reject(string) }
	if req.ResponseQueueURL != "" {
		sg := sqsgath.New(p.client, req.EvalUuid, req.ResponseQueueURL, p.logger)
		g, stream = sg, sg
	}

	_, err := p.judge.Evaluate(ctx, req.ExecReq, g)
	switch {
	case err == nil:
		return false
	case judge.IsCallerError(err):
		p.logger.Info("rejected request", "eval", req.EvalUuid, "error", err)
		if stream != nil {
			stream.Reject(err.Error())
		}
		return false
	case errors.Is(err, context.Canceled):
		// shutting down; let another worker take it
		return true
	default:
		// system errors were already streamed as internal errors
		return false
	}
}
