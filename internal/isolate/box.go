package isolate

import (
	"context"
	"os"
	"os/exec"
)

type Box struct {
	id      int
	path    string
	isolate *Isolate
}

func newIsolateBox(isolate *Isolate, id int, path string) *Box {
	return &Box{
		id:      id,
		path:    path,
		isolate: isolate,
	}
}

func (box *Box) Id() int {
	return box.id
}

func (box *Box) Path() string {
	return box.path
}

// Close cleans the box up and frees its id. It uses a fresh context so
// that cleanup still happens after the job's context is done.
func (box *Box) Close() error {
	return box.isolate.eraseBox(context.Background(), box.id)
}

// DirRule binds a host directory into the box (--dir).
type DirRule struct {
	Inside  string
	Outside string
	RW      bool
}

func (d DirRule) arg() string {
	a := "--dir=" + d.Inside + "=" + d.Outside
	if d.RW {
		a += ":rw"
	}
	return a
}

// RunOptions configure a single --run invocation.
type RunOptions struct {
	Dirs        []DirRule
	Chdir       string
	Env         []string
	Constraints *Constraints
}

// Command prepares argv to run inside the box. The command is passed to
// isolate as separate arguments; no shell is involved.
func (box *Box) Command(ctx context.Context, argv []string, opts RunOptions) (*Cmd, error) {
	constraints := opts.Constraints
	if constraints == nil {
		c := DefaultConstraints()
		constraints = &c
	}

	metaFilePath, err := newTempIsolateFilePath()
	if err != nil {
		return nil, err
	}

	args := box.isolate.baseArgs(box.id)
	args = append(args, "--meta="+metaFilePath)
	for _, d := range opts.Dirs {
		args = append(args, d.arg())
	}
	if opts.Chdir != "" {
		args = append(args, "--chdir="+opts.Chdir)
	}
	for _, e := range opts.Env {
		args = append(args, "--env="+e)
	}
	args = append(args, constraints.ToArgs(box.isolate.cgroups)...)
	args = append(args, "--run", "--")
	args = append(args, argv...)

	return &Cmd{
		cmd:          exec.CommandContext(ctx, box.isolate.bin, args...),
		metaFilePath: metaFilePath,
		Constraints:  *constraints,
	}, nil
}

func newTempIsolateFilePath() (string, error) {
	file, err := os.CreateTemp("", "isolate.*.meta")
	if err != nil {
		return "", err
	}
	err = file.Close()
	if err != nil {
		return "", err
	}
	return file.Name(), nil
}
