// Package health checks that the sandbox works and every language can run
// its hello world program.
package health

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/gatherer"
	"github.com/programme-lv/judge/internal/toolchain"
)

type Level int

const (
	OK Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case OK:
		return "OKAY"
	case Warn:
		return "WARN"
	default:
		return "ERROR"
	}
}

type Row struct {
	Unit    string
	Level   Level
	Message string
}

const helloOutput = "Hello, World!"

type Evaluator interface {
	Evaluate(ctx context.Context, req api.ExecReq, gath gatherer.ResultGatherer) (*api.ExecResponse, error)
}

// Probe reports the sandbox runtime version or why it is unusable.
type Probe func(ctx context.Context) (string, error)

// Check probes the runtime and, when it works, judges every language's
// hello world program.
func Check(ctx context.Context, runtime string, probe Probe, ev Evaluator, langs []toolchain.Spec) []Row {
	rows := make([]Row, 0, len(langs)+1)
	if probe != nil {
		version, err := probe(ctx)
		if err != nil {
			return append(rows, Row{Unit: runtime, Level: Error, Message: err.Error()})
		}
		rows = append(rows, Row{Unit: runtime, Level: OK, Message: strings.TrimSpace(version)})
	}
	for _, lang := range langs {
		rows = append(rows, checkLanguage(ctx, ev, lang))
	}
	return rows
}

func checkLanguage(ctx context.Context, ev Evaluator, lang toolchain.Spec) Row {
	row := Row{Unit: lang.Name}
	if row.Unit == "" {
		row.Unit = lang.ID
	}
	if lang.HelloWorld == "" {
		row.Level = Warn
		row.Message = "no hello world program"
		return row
	}

	resp, err := ev.Evaluate(ctx, api.ExecReq{
		Language:   lang.ID,
		SourceCode: lang.HelloWorld,
		TestCases:  []api.TestCase{{ExpectedOutput: helloOutput}},
	}, nil)
	switch {
	case err != nil:
		row.Level = Error
		row.Message = err.Error()
	case resp.OverallVerdict == api.Accepted:
		row.Message = fmt.Sprintf("%s in %d ms", resp.OverallVerdict, resp.TotalTimeMs)
	default:
		row.Level = Error
		row.Message = string(resp.OverallVerdict)
		if resp.ErrorMessage != nil {
			row.Message += ": " + *resp.ErrorMessage
		} else if len(resp.Results) > 0 && resp.Results[0].Stderr != nil {
			row.Message += ": " + *resp.Results[0].Stderr
		}
	}
	return row
}

// Healthy reports whether no row is an error.
func Healthy(rows []Row) bool {
	for _, r := range rows {
		if r.Level == Error {
			return false
		}
	}
	return true
}

func Render(w io.Writer, rows []Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Unit", "Health", "Message"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.Unit, r.Level.String(), r.Message})
	}
	t.SetStyle(table.StyleColoredDark)
	t.SetColumnConfigs([]table.ColumnConfig{
		{
			Name:  "Health",
			Align: text.AlignCenter,
			Transformer: text.Transformer(func(v interface{}) string {
				s := fmt.Sprint(v)
				switch s {
				case "OKAY":
					return text.FgHiGreen.Sprint(s)
				case "WARN":
					return text.FgHiYellow.Sprint(s)
				case "ERROR":
					return text.FgHiRed.Sprint(s)
				}
				return s
			}),
		},
		{Name: "Message", WidthMax: 80},
	})
	t.Render()
}
