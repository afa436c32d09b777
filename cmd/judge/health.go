package main

import (
	"context"
	"os"

	"github.com/programme-lv/judge/internal/health"
	"github.com/urfave/cli/v3"
)

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "check the sandbox and every language's hello world",
		Action: healthAction,
	}
}

func healthAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(ctx, cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	rows := health.Check(ctx, a.runtime.Name(), a.probe, a.judge, a.registry.List())
	health.Render(os.Stdout, rows)
	if !health.Healthy(rows) {
		return cli.Exit("", 1)
	}
	return nil
}
