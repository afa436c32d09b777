package isolate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

type Cmd struct {
	cmd          *exec.Cmd
	metaFilePath string
	Constraints  Constraints
}

// Args returns the full isolate invocation.
func (process *Cmd) Args() []string {
	return process.cmd.Args
}

// Run executes the command and returns the metrics isolate recorded.
// A failing program is not an error; isolate itself failing is.
func (process *Cmd) Run(stdin io.Reader, stdout, stderr io.Writer) (*Metrics, error) {
	defer os.Remove(process.metaFilePath)

	process.cmd.Stdin = stdin
	process.cmd.Stdout = stdout
	process.cmd.Stderr = stderr

	err := process.cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, err
		}
		// 1 means the sandboxed program failed
		if exitErr.ExitCode() != 1 {
			return nil, fmt.Errorf("isolate exited with %d", exitErr.ExitCode())
		}
	}

	metaFileBytes, err := os.ReadFile(process.metaFilePath)
	if err != nil {
		return nil, err
	}

	metrics, err := parseMetaFile(metaFileBytes)
	if err != nil {
		return nil, err
	}

	if metrics.Status == StatusInternal {
		return metrics, fmt.Errorf("isolate internal error: %s", metrics.Message)
	}

	return metrics, nil
}
