package main

import (
	"context"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

func languagesCommand() *cli.Command {
	return &cli.Command{
		Name:   "languages",
		Usage:  "list supported languages",
		Action: languagesAction,
	}
}

func languagesAction(ctx context.Context, cmd *cli.Command) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg, nil)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Name", "Aliases", "Compile", "Run", "Image"})
	for _, l := range reg.List() {
		compile := "-"
		if l.Compiled() {
			compile = strings.Join(l.CompileCmd, " ")
		}
		t.AppendRow(table.Row{l.ID, l.Name, strings.Join(l.Aliases, ", "), compile, strings.Join(l.RunCmd, " "), l.Image})
	}
	t.Render()
	return nil
}
