package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/programme-lv/judge/internal/behave"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/gatherer/termgath"
	"github.com/programme-lv/judge/internal/toolchain"
	"github.com/urfave/cli/v3"
)

func behaveCommand() *cli.Command {
	return &cli.Command{
		Name:      "behave",
		Usage:     "run behaviour scenarios against the configured sandbox",
		ArgsUsage: "<scenario.toml>...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print judging progress of every scenario",
			},
		},
		Action: behaveAction,
	}
}

func behaveAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return cli.Exit("at least one scenario file is required", 2)
	}
	var (
		langs []toolchain.Spec
		cases []behave.Case
	)
	for _, path := range cmd.Args().Slice() {
		suite, err := behave.ParseFile(path)
		if err != nil {
			return err
		}
		langs = append(langs, suite.Languages...)
		cases = append(cases, suite.Cases...)
	}

	a, err := newApp(ctx, cmd, appOptions{languages: langs})
	if err != nil {
		return err
	}
	defer a.Close()

	var newGatherer func(behave.Case) gatherer.ResultGatherer
	if cmd.Bool("verbose") {
		newGatherer = func(c behave.Case) gatherer.ResultGatherer {
			fmt.Printf("\n%s\n", color.New(color.Bold).Sprint(c.Name))
			return termgath.New(os.Stdout)
		}
	}
	outcomes := behave.Run(ctx, a.judge, cases, newGatherer)

	pass := color.New(color.FgGreen, color.Bold).Sprint("PASS")
	fail := color.New(color.FgRed, color.Bold).Sprint("FAIL")
	ok := true
	fmt.Println()
	for i := range outcomes {
		o := &outcomes[i]
		if o.Passed() {
			fmt.Printf("%s %s\n", pass, o.Case.Name)
			continue
		}
		ok = false
		fmt.Printf("%s %s\n", fail, o.Case.Name)
		if o.Err != nil {
			fmt.Printf("     error: %v\n", o.Err)
		}
		for _, f := range o.Failures {
			fmt.Printf("     %s\n", f)
		}
	}
	fmt.Println(behave.Summary(outcomes))
	if !ok {
		return cli.Exit("", 1)
	}
	return nil
}
