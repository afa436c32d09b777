package sqsgath

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Sender is the part of *sqs.Client the gatherer needs.
type Sender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

var _ Sender = (*sqs.Client)(nil)

// New streams job progress to the SQS queue at queueUrl.
func New(client Sender, evalUuid string, queueUrl string, logger *slog.Logger) *sqsResQueueGatherer {
	return &sqsResQueueGatherer{
		sqsClient: client,
		queueUrl:  queueUrl,
		evalUuid:  evalUuid,
		logger:    logger,
	}
}
