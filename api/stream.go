package api

import "time"

// MsgType is a message type for streaming responses
type MsgType string

const (
	StartJobMsg      MsgType = "job_start"
	StartCompileMsg  MsgType = "compile_start"
	FinishCompileMsg MsgType = "compile_finish"
	ReachTestMsg     MsgType = "test_reach"
	IgnoreTestMsg    MsgType = "test_ignore"
	FinishTestMsg    MsgType = "test_finish"
	FinishJobMsg     MsgType = "job_finish"
)

// Runtime data size constraints for streaming
const (
	MaxRuntimeDataHeight = 40
	MaxRuntimeDataWidth  = 80
)

// Header is the common header for all streaming response messages
type Header struct {
	EvalUuid string  `json:"eval_uuid"`
	MsgType  MsgType `json:"msg_type"`
}

type StartJob struct {
	Header
	SystemInfo  string `json:"system_info"`
	StartedTime string `json:"started_time"`
}

type StartCompile struct {
	Header
}

type FinishCompile struct {
	Header
	RuntimeData *RuntimeData `json:"runtime_data"`
}

type ReachTest struct {
	Header
	TestId int64   `json:"test_id"`
	Input  *string `json:"input"`
	Answer *string `json:"answer"`
}

type IgnoreTest struct {
	Header
	TestId int64 `json:"test_id"`
}

type FinishTest struct {
	Header
	TestId     int64        `json:"test_id"`
	Verdict    Verdict      `json:"verdict"`
	Submission *RuntimeData `json:"submission"`
}

// FinishJob is always the last message of a job.
type FinishJob struct {
	Header
	Verdict       *Verdict `json:"verdict"`
	ErrorMessage  *string  `json:"error_message"`
	CompileError  bool     `json:"compile_error"`
	InternalError bool     `json:"internal_error"`
}

func NewHeader(evalUuid string, msgType MsgType) Header {
	return Header{
		EvalUuid: evalUuid,
		MsgType:  msgType,
	}
}

func NewStartJob(evalUuid, systemInfo string) StartJob {
	return StartJob{
		Header:      NewHeader(evalUuid, StartJobMsg),
		SystemInfo:  systemInfo,
		StartedTime: time.Now().Format(time.RFC3339),
	}
}

func NewStartCompile(evalUuid string) StartCompile {
	return StartCompile{
		Header: NewHeader(evalUuid, StartCompileMsg),
	}
}

func NewFinishCompile(evalUuid string, runtimeData *RuntimeData) FinishCompile {
	return FinishCompile{
		Header:      NewHeader(evalUuid, FinishCompileMsg),
		RuntimeData: runtimeData.Trimmed(),
	}
}

// NewReachTest trims input and answer for streaming.
func NewReachTest(evalUuid string, testId int64, input, answer []byte) ReachTest {
	return ReachTest{
		Header: NewHeader(evalUuid, ReachTestMsg),
		TestId: testId,
		Input:  StrPtrOrNil(TrimStrToRect(string(input), MaxRuntimeDataHeight, MaxRuntimeDataWidth)),
		Answer: StrPtrOrNil(TrimStrToRect(string(answer), MaxRuntimeDataHeight, MaxRuntimeDataWidth)),
	}
}

func NewIgnoreTest(evalUuid string, testId int64) IgnoreTest {
	return IgnoreTest{
		Header: NewHeader(evalUuid, IgnoreTestMsg),
		TestId: testId,
	}
}

func NewFinishTest(evalUuid string, testId int64, verdict Verdict, submission *RuntimeData) FinishTest {
	return FinishTest{
		Header:     NewHeader(evalUuid, FinishTestMsg),
		TestId:     testId,
		Verdict:    verdict,
		Submission: submission.Trimmed(),
	}
}

func NewFinishJob(evalUuid string, verdict *Verdict, errorMessage *string, compileError, internalError bool) FinishJob {
	return FinishJob{
		Header:        NewHeader(evalUuid, FinishJobMsg),
		Verdict:       verdict,
		ErrorMessage:  errorMessage,
		CompileError:  compileError,
		InternalError: internalError,
	}
}
