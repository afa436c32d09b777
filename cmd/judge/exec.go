package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer/termgath"
	"github.com/urfave/cli/v3"
)

func execCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "judge a source file locally",
		ArgsUsage: "<source file>",
		Description: "With --tests the program is judged against a JSON array of\n" +
			"{\"input\", \"expectedOutput\"} objects. Otherwise it runs once with\n" +
			"--stdin as standard input and its output is printed.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "lang",
				Aliases:  []string{"l"},
				Usage:    "language id or alias",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "tests",
				Usage: "JSON file with test cases",
			},
			&cli.StringFlag{
				Name:  "stdin",
				Usage: "file used as standard input of a single run",
			},
			&cli.DurationFlag{
				Name:  "time-limit",
				Usage: "wall time limit per run",
			},
			&cli.Int64Flag{
				Name:  "memory-kib",
				Usage: "memory limit per run",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print inputs and outputs of every test",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the response as JSON",
			},
		},
		Action: execAction,
	}
}

func execAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() != 1 {
		return cli.Exit("exactly one source file is required", 2)
	}
	src, err := os.ReadFile(cmd.Args().First())
	if err != nil {
		return err
	}

	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.String("tests") != "" {
		return judgeFile(ctx, cmd, a, string(src))
	}
	return runFile(ctx, cmd, a, string(src))
}

func judgeFile(ctx context.Context, cmd *cli.Command, a *app, src string) error {
	raw, err := os.ReadFile(cmd.String("tests"))
	if err != nil {
		return err
	}
	var tests []api.TestCase
	if err := json.Unmarshal(raw, &tests); err != nil {
		return fmt.Errorf("failed to decode tests: %w", err)
	}
	req := api.ExecReq{
		Language:       cmd.String("lang"),
		SourceCode:     src,
		TestCases:      tests,
		TimeLimitMs:    cmd.Duration("time-limit").Milliseconds(),
		MemoryLimitKiB: cmd.Int64("memory-kib"),
	}

	var resp *api.ExecResponse
	if cmd.Bool("json") {
		resp, err = a.judge.Evaluate(ctx, req, nil)
		if resp != nil {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
		}
	} else {
		g := termgath.New(os.Stdout)
		g.Verbose = cmd.Bool("verbose")
		resp, err = a.judge.Evaluate(ctx, req, g)
	}
	if err != nil {
		return err
	}
	if resp.OverallVerdict != api.Accepted {
		return cli.Exit("", 1)
	}
	return nil
}

func runFile(ctx context.Context, cmd *cli.Command, a *app, src string) error {
	var stdin string
	if path := cmd.String("stdin"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		stdin = string(b)
	}
	resp, err := a.judge.Run(ctx, api.RunReq{
		Language:    cmd.String("lang"),
		SourceCode:  src,
		Stdin:       stdin,
		TimeLimitMs: cmd.Duration("time-limit").Milliseconds(),
	})
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	if resp.CompileOutput != nil && *resp.CompileOutput != "" {
		fmt.Fprintln(os.Stderr, strings.TrimRight(*resp.CompileOutput, "\n"))
	}
	fmt.Fprint(os.Stdout, resp.Stdout)
	fmt.Fprint(os.Stderr, resp.Stderr)
	fmt.Fprintf(os.Stderr, "%s (exit %d, %d ms)\n", resp.Status, resp.ExitCode, resp.WallMillis)
	if resp.Status != api.RunSuccess {
		return cli.Exit("", 1)
	}
	return nil
}
