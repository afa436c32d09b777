package natsgath

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/programme-lv/judge/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu   sync.Mutex
	subj []string
	msgs [][]byte
	err  error
}

func (c *recordingConn) Publish(subj string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subj = append(c.subj, subj)
	c.msgs = append(c.msgs, data)
	return c.err
}

func TestStreamsJobToInbox(t *testing.T) {
	conn := &recordingConn{}
	g := New(conn, "eval-1", "_INBOX.abc", slog.Default())

	g.StartJob("info")
	g.ReachTest(1, []byte("1 2\n"), []byte("3\n"))
	g.FinishTest(1, api.Accepted, &api.RuntimeData{Stdout: strings.Repeat("x", 200)})
	g.FinishJob(api.Accepted)

	require.Len(t, conn.msgs, 4)
	for _, s := range conn.subj {
		assert.Equal(t, "_INBOX.abc", s)
	}

	var header api.Header
	require.NoError(t, json.Unmarshal(conn.msgs[0], &header))
	assert.Equal(t, api.StartJobMsg, header.MsgType)
	assert.Equal(t, "eval-1", header.EvalUuid)

	var finishTest api.FinishTest
	require.NoError(t, json.Unmarshal(conn.msgs[2], &finishTest))
	assert.Equal(t, api.Accepted, finishTest.Verdict)
	assert.Len(t, finishTest.Submission.Stdout, api.MaxRuntimeDataWidth+len("[...]"))

	var finishJob api.FinishJob
	require.NoError(t, json.Unmarshal(conn.msgs[3], &finishJob))
	assert.Equal(t, api.FinishJobMsg, finishJob.MsgType)
	require.NotNil(t, finishJob.Verdict)
	assert.Equal(t, api.Accepted, *finishJob.Verdict)
	assert.False(t, finishJob.CompileError)
}

func TestCompileErrorEndsJob(t *testing.T) {
	conn := &recordingConn{}
	g := New(conn, "eval-2", "inbox", slog.Default())
	g.CompileError("boom")

	var finishJob api.FinishJob
	require.NoError(t, json.Unmarshal(conn.msgs[0], &finishJob))
	assert.True(t, finishJob.CompileError)
	assert.Equal(t, "boom", *finishJob.ErrorMessage)
	assert.Equal(t, api.CompilationError, *finishJob.Verdict)
}

func TestPublishFailureDoesNotPanic(t *testing.T) {
	conn := &recordingConn{err: errors.New("disconnected")}
	g := New(conn, "eval-3", "inbox", slog.Default())
	assert.NotPanics(t, func() { g.InternalError("x") })
}
