package api

import "fmt"

// Verdict is the judgement for a single test or a whole submission.
type Verdict string

const (
	Accepted          Verdict = "Accepted"
	WrongAnswer       Verdict = "Wrong Answer"
	RuntimeError      Verdict = "Runtime Error"
	CompilationError  Verdict = "Compilation Error"
	TimeLimitExceeded Verdict = "Time Limit Exceeded"
)

var verdicts = []Verdict{Accepted, WrongAnswer, RuntimeError, CompilationError, TimeLimitExceeded}

// ParseVerdict accepts the display form ("Wrong Answer") as well as the
// usual abbreviations ("WA").
func ParseVerdict(s string) (Verdict, error) {
	for _, v := range verdicts {
		if string(v) == s {
			return v, nil
		}
	}
	switch s {
	case "AC", "OK":
		return Accepted, nil
	case "WA":
		return WrongAnswer, nil
	case "RE":
		return RuntimeError, nil
	case "CE":
		return CompilationError, nil
	case "TLE", "TL":
		return TimeLimitExceeded, nil
	}
	return "", fmt.Errorf("unknown verdict %q", s)
}

// Short returns the two or three letter abbreviation.
func (v Verdict) Short() string {
	switch v {
	case Accepted:
		return "AC"
	case WrongAnswer:
		return "WA"
	case RuntimeError:
		return "RE"
	case CompilationError:
		return "CE"
	case TimeLimitExceeded:
		return "TLE"
	}
	return "??"
}
