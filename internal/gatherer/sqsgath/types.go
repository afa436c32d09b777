package sqsgath

import (
	"log/slog"

	"github.com/programme-lv/judge/api"
)

type sqsResQueueGatherer struct {
	sqsClient Sender
	queueUrl  string
	evalUuid  string
	logger    *slog.Logger
}

func (s *sqsResQueueGatherer) StartJob(systemInfo string) {
	s.send(api.NewStartJob(s.evalUuid, systemInfo))
}

func (s *sqsResQueueGatherer) StartCompile() {
	s.send(api.NewStartCompile(s.evalUuid))
}

func (s *sqsResQueueGatherer) FinishCompile(data *api.RuntimeData) {
	s.send(api.NewFinishCompile(s.evalUuid, data))
}

func (s *sqsResQueueGatherer) ReachTest(testId int64, input []byte, answer []byte) {
	s.send(api.NewReachTest(s.evalUuid, testId, input, answer))
}

func (s *sqsResQueueGatherer) IgnoreTest(testId int64) {
	s.send(api.NewIgnoreTest(s.evalUuid, testId))
}

func (s *sqsResQueueGatherer) FinishTest(testId int64, verdict api.Verdict, submission *api.RuntimeData) {
	s.send(api.NewFinishTest(s.evalUuid, testId, verdict, submission))
}

func (s *sqsResQueueGatherer) CompileError(msg string) {
	v := api.CompilationError
	s.send(api.NewFinishJob(s.evalUuid, &v, &msg, true, false))
}

func (s *sqsResQueueGatherer) InternalError(msg string) {
	s.send(api.NewFinishJob(s.evalUuid, nil, &msg, false, true))
}

func (s *sqsResQueueGatherer) FinishJob(verdict api.Verdict) {
	s.send(api.NewFinishJob(s.evalUuid, &verdict, nil, false, false))
}

// Reject ends the stream of a request that was never judged.
func (s *sqsResQueueGatherer) Reject(reason string) {
	s.send(api.NewFinishJob(s.evalUuid, nil, &reason, false, false))
}
