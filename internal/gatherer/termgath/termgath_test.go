package termgath_test

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer/termgath"
	"github.com/stretchr/testify/assert"
)

func TestPrintsVerdicts(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	g := termgath.New(&buf)
	g.Verbose = true

	g.StartJob("")
	g.ReachTest(1, []byte("1 2\n"), []byte("3\n"))
	g.FinishTest(1, api.WrongAnswer, &api.RuntimeData{Stdout: "4\n"})
	g.FinishJob(api.WrongAnswer)

	out := buf.String()
	assert.Contains(t, out, "Evaluation started")
	assert.Contains(t, out, "<- Test 1 Wrong Answer")
	assert.Contains(t, out, "  1 2")
	assert.Contains(t, out, "  4")
	assert.Contains(t, out, "== Wrong Answer in")
}
