// Package verdict turns run outcomes into verdicts.
package verdict

import (
	"strings"
	"unicode"

	"github.com/programme-lv/judge/api"
	"github.com/programme-lv/judge/internal/sandbox"
)

// Matches compares outputs after trimming trailing whitespace from both.
// Nothing else is normalized: leading whitespace, inner spacing and case
// all matter.
func Matches(expected, actual string) bool {
	return strings.TrimRightFunc(expected, unicode.IsSpace) ==
		strings.TrimRightFunc(actual, unicode.IsSpace)
}

// Of judges a single executed test.
func Of(outcome sandbox.Outcome, expected, actual string) api.Verdict {
	switch outcome {
	case sandbox.TimeLimitExceeded:
		return api.TimeLimitExceeded
	case sandbox.RuntimeError:
		return api.RuntimeError
	}
	if Matches(expected, actual) {
		return api.Accepted
	}
	return api.WrongAnswer
}

// Aggregate returns Accepted when every test is accepted, otherwise the
// first other verdict in test order. An empty list is accepted.
func Aggregate(verdicts []api.Verdict) api.Verdict {
	for _, v := range verdicts {
		if v != api.Accepted {
			return v
		}
	}
	return api.Accepted
}
