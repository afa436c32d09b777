package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "judge",
		Usage: "compile and run untrusted submissions against test cases",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "TOML configuration file",
				Sources: cli.EnvVars("JUDGE_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "runtime",
				Usage: "sandbox runtime: docker, isolate or process",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			execCommand(),
			behaveCommand(),
			healthCommand(),
			languagesCommand(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
