package natsgath

import (
	"log/slog"

	"github.com/programme-lv/judge/api"
)

type natsGatherer struct {
	nc       Publisher
	inbox    string
	evalUuid string
	logger   *slog.Logger
}

func (s *natsGatherer) StartJob(systemInfo string) {
	s.send(api.NewStartJob(s.evalUuid, systemInfo))
}

func (s *natsGatherer) StartCompile() {
	s.send(api.NewStartCompile(s.evalUuid))
}

func (s *natsGatherer) FinishCompile(data *api.RuntimeData) {
	s.send(api.NewFinishCompile(s.evalUuid, data))
}

func (s *natsGatherer) ReachTest(testId int64, input []byte, answer []byte) {
	s.send(api.NewReachTest(s.evalUuid, testId, input, answer))
}

func (s *natsGatherer) IgnoreTest(testId int64) {
	s.send(api.NewIgnoreTest(s.evalUuid, testId))
}

func (s *natsGatherer) FinishTest(testId int64, verdict api.Verdict, submission *api.RuntimeData) {
	s.send(api.NewFinishTest(s.evalUuid, testId, verdict, submission))
}

func (s *natsGatherer) CompileError(msg string) {
	v := api.CompilationError
	s.send(api.NewFinishJob(s.evalUuid, &v, &msg, true, false))
}

func (s *natsGatherer) InternalError(msg string) {
	s.send(api.NewFinishJob(s.evalUuid, nil, &msg, false, true))
}

func (s *natsGatherer) FinishJob(verdict api.Verdict) {
	s.send(api.NewFinishJob(s.evalUuid, &verdict, nil, false, false))
}

// Reject ends the stream of a request that was never judged.
func (s *natsGatherer) Reject(reason string) {
	s.send(api.NewFinishJob(s.evalUuid, nil, &reason, false, false))
}
