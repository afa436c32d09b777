// Package gatherer defines the progress events of a judging job and
// helpers to combine their consumers.
package gatherer

import "github.com/programme-lv/judge/api"

//go:generate mockgen -source=gatherer.go -destination=mocks/mock_gatherer.go -package=mocks

// ResultGatherer receives the progress of one job. Exactly one of
// CompileError, InternalError and FinishJob ends the stream. With
// parallel testing, test events of different tests may interleave, so
// implementations must be safe for concurrent use.
type ResultGatherer interface {
	StartJob(systemInfo string)

	StartCompile()
	FinishCompile(data *api.RuntimeData)

	ReachTest(testId int64, input []byte, answer []byte)
	IgnoreTest(testId int64)
	FinishTest(testId int64, verdict api.Verdict, subm *api.RuntimeData)

	CompileError(msg string)
	InternalError(msg string)
	FinishJob(verdict api.Verdict)
}

type fanout []ResultGatherer

// Fanout forwards every event to all non-nil gatherers in order.
func Fanout(gs ...ResultGatherer) ResultGatherer {
	var f fanout
	for _, g := range gs {
		if g != nil {
			f = append(f, g)
		}
	}
	return f
}

func (f fanout) StartJob(systemInfo string) {
	for _, g := range f {
		g.StartJob(systemInfo)
	}
}

func (f fanout) StartCompile() {
	for _, g := range f {
		g.StartCompile()
	}
}

func (f fanout) FinishCompile(data *api.RuntimeData) {
	for _, g := range f {
		g.FinishCompile(data)
	}
}

func (f fanout) ReachTest(testId int64, input []byte, answer []byte) {
	for _, g := range f {
		g.ReachTest(testId, input, answer)
	}
}

func (f fanout) IgnoreTest(testId int64) {
	for _, g := range f {
		g.IgnoreTest(testId)
	}
}

func (f fanout) FinishTest(testId int64, verdict api.Verdict, subm *api.RuntimeData) {
	for _, g := range f {
		g.FinishTest(testId, verdict, subm)
	}
}

func (f fanout) CompileError(msg string) {
	for _, g := range f {
		g.CompileError(msg)
	}
}

func (f fanout) InternalError(msg string) {
	for _, g := range f {
		g.InternalError(msg)
	}
}

func (f fanout) FinishJob(verdict api.Verdict) {
	for _, g := range f {
		g.FinishJob(verdict)
	}
}

// Nop ignores every event.
type Nop struct{}

func (Nop) StartJob(string) {}
func (Nop) StartCompile() {}
func (Nop) FinishCompile(*api.RuntimeData) {}
func (Nop) ReachTest(int64, []byte, []byte) {}
func (Nop) IgnoreTest(int64) {}
func (Nop) FinishTest(int64, api.Verdict, *api.RuntimeData) {}
func (Nop) CompileError(string) {}
func (Nop) InternalError(string) {}
func (Nop) FinishJob(api.Verdict) {}
