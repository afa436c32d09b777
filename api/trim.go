package api

import "strings"

// TrimStrToRect cuts s to at most maxHeight lines of maxWidth bytes,
// marking every cut with "[...]".
func TrimStrToRect(s string, maxHeight int, maxWidth int) string {
	if s == "" {
		return ""
	}
	var res strings.Builder
	lines := strings.Split(s, "\n")
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
		lines = append(lines, "[...]")
	}
	for i, line := range lines {
		if i > 0 {
			res.WriteByte('\n')
		}
		if len(line) > maxWidth {
			res.WriteString(line[:maxWidth])
			res.WriteString("[...]")
		} else {
			res.WriteString(line)
		}
	}
	return res.String()
}

// StrPtrOrNil returns nil for empty strings.
func StrPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
