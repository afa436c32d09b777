package materialize

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

type javaIdent struct {
	text       string
	start, end int
	depth      int
	// last significant byte before the identifier, 0 at file start
	prev byte
}

var javaTypeKeywords = []string{"class", "interface", "enum", "record"}

var javaModifiers = []string{"public", "final", "abstract", "strictfp", "sealed", "static"}

// RenamePublicClass renames the single public top-level type declared in
// src, and every reference to it, to name. Comments and literals are
// left untouched.
func RenamePublicClass(src, name string) (string, error) {
	idents, err := scanJava(src)
	if err != nil {
		return "", &MaterializationError{Reason: err.Error()}
	}

	var public []string
	for i, id := range idents {
		if id.depth != 0 || !slices.Contains(javaTypeKeywords, id.text) || id.prev == '.' {
			continue
		}
		if i+1 >= len(idents) || idents[i+1].depth != 0 {
			continue
		}
		if id.text == "record" && !isRecordDecl(src, idents[i+1]) {
			continue
		}
		if isPublic(idents[:i]) {
			public = append(public, idents[i+1].text)
		}
	}

	switch len(public) {
	case 0:
		return "", &MaterializationError{Reason: "no public top-level class found"}
	case 1:
	default:
		return "", &MaterializationError{Reason: fmt.Sprintf(
			"expected exactly one public top-level class, found %d: %s",
			len(public), strings.Join(public, ", "))}
	}

	old := public[0]
	var b strings.Builder
	b.Grow(len(src) + len(name))
	last := 0
	for _, id := range idents {
		if id.text != old {
			continue
		}
		b.WriteString(src[last:id.start])
		b.WriteString(name)
		last = id.end
	}
	b.WriteString(src[last:])
	return b.String(), nil
}

// isPublic walks back over the modifiers preceding a type keyword.
func isPublic(before []javaIdent) bool {
	for i := len(before) - 1; i >= 0; i-- {
		id := before[i]
		if id.depth != 0 || !slices.Contains(javaModifiers, id.text) {
			return false
		}
		if id.text == "public" {
			return true
		}
	}
	return false
}

// record is a contextual keyword; a declaration has "(" after the name
// or after its type parameters.
func isRecordDecl(src string, name javaIdent) bool {
	rest := strings.TrimLeftFunc(src[name.end:], unicode.IsSpace)
	return strings.HasPrefix(rest, "(") || strings.HasPrefix(rest, "<")
}

func scanJava(src string) ([]javaIdent, error) {
	var idents []javaIdent
	depth := 0
	var prev byte
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == '/' && strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				return idents, nil
			}
			i += end
		case c == '/' && strings.HasPrefix(src[i:], "/*"):
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				return nil, fmt.Errorf("unterminated comment")
			}
			i += 2 + end + 2
		case strings.HasPrefix(src[i:], `"""`):
			end := closing(src, i+3, `"""`)
			if end < 0 {
				return nil, fmt.Errorf("unterminated text block")
			}
			i = end
			prev = '"'
		case c == '"' || c == '\'':
			end := closing(src, i+1, string(c))
			if end < 0 {
				return nil, fmt.Errorf("unterminated literal")
			}
			i = end
			prev = c
		case c == '{':
			depth++
			prev = c
			i++
		case c == '}':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced braces")
			}
			prev = c
			i++
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			if isIdentStart(r) {
				start := i
				i += size
				for i < len(src) {
					r, size = utf8.DecodeRuneInString(src[i:])
					if !isIdentPart(r) {
						break
					}
					i += size
				}
				idents = append(idents, javaIdent{
					text:  src[start:i],
					start: start,
					end:   i,
					depth: depth,
					prev:  prev,
				})
				prev = 'a'
				continue
			}
			if !unicode.IsSpace(r) {
				prev = c
			}
			i += size
		}
	}
	return idents, nil
}

// closing returns the index just past the delimiter ending a literal that
// starts at from, honoring backslash escapes. Plain string and char
// literals may not span lines.
func closing(src string, from int, delim string) int {
	for i := from; i < len(src); i++ {
		switch {
		case src[i] == '\\':
			i++
		case src[i] == '\n' && len(delim) == 1:
			return -1
		case strings.HasPrefix(src[i:], delim):
			return i + len(delim)
		}
	}
	return -1
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}
