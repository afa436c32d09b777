package sqsapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []types.Message
	sent     []*sqs.SendMessageInput
	deleted  []string
}

func (f *fakeQueue) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeQueue) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeQueue) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

type fakeJudge struct {
	err error
}

func (j fakeJudge) Evaluate(ctx context.Context, req api.ExecReq, g gatherer.ResultGatherer) (*api.ExecResponse, error) {
	if j.err != nil {
		return nil, j.err
	}
	if req.Language == "cancel" {
		return nil, context.Canceled
	}
	g.StartJob("test")
	g.FinishJob(api.Accepted)
	return &api.ExecResponse{}, nil
}

func message(t *testing.T, handle string, req api.QueuedExecReq) types.Message {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return types.Message{Body: aws.String(string(body)), ReceiptHandle: aws.String(handle), MessageId: aws.String(handle)}
}

func TestPollJudgesAndDeletes(t *testing.T) {
	q := &fakeQueue{}
	q.messages = []types.Message{
		message(t, "h1", api.QueuedExecReq{
			ExecReq:          api.ExecReq{Language: "python", SourceCode: "x"},
			ResponseQueueURL: "https://sqs/res",
		}),
		{Body: aws.String("not json"), ReceiptHandle: aws.String("h2")},
		message(t, "h3", api.QueuedExecReq{ExecReq: api.ExecReq{Language: "cancel"}}),
	}
	p := New(q, fakeJudge{}, "https://sqs/req", 10, slog.Default())

	require.NoError(t, p.Poll(context.Background()))
	assert.ElementsMatch(t, []string{"h1", "h2"}, q.deleted)
	require.Len(t, q.sent, 2)
	for _, s := range q.sent {
		assert.Equal(t, "https://sqs/res", aws.ToString(s.QueueUrl))
	}
}

func TestCallerErrorsAreStreamed(t *testing.T) {
	q := &fakeQueue{}
	p := New(q, fakeJudge{err: &toolchain.UnsupportedLanguageError{Language: "cobol"}}, "req", 1, slog.Default())

	body, err := json.Marshal(api.QueuedExecReq{
		ExecReq:          api.ExecReq{EvalUuid: "e-9", Language: "cobol"},
		ResponseQueueURL: "res",
	})
	require.NoError(t, err)
	assert.False(t, p.process(context.Background(), string(body)))

	require.Len(t, q.sent, 1)
	var f api.FinishJob
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(q.sent[0].MessageBody)), &f))
	assert.Equal(t, "e-9", f.EvalUuid)
	assert.Contains(t, *f.ErrorMessage, "cobol")
}
