package querypanel

import (
	"strings"
	"unicode"
)

// CheckStatement accepts a single SELECT or WITH statement and returns it
// without the trailing semicolon. Quoted text and comments are skipped when
// looking for statement separators.
func CheckStatement(q string) (string, error) {
	body, err := stripTerminator(q)
	if err != nil {
		return "", err
	}
	word := strings.ToUpper(firstWord(body))
	if word != "SELECT" && word != "WITH" {
		return "", ErrNotReadOnly
	}
	return body, nil
}

func stripTerminator(q string) (string, error) {
	q = strings.TrimSpace(q)
	end := -1
	for i := 0; i < len(q); i++ {
		switch c := q[i]; {
		case c == '\'' || c == '"':
			if end >= 0 {
				return "", ErrNotReadOnly
			}
			j := strings.IndexByte(q[i+1:], c)
			if j < 0 {
				return "", ErrNotReadOnly.Msg("unterminated quoted text")
			}
			i += j + 1
		case c == '-' && i+1 < len(q) && q[i+1] == '-':
			j := strings.IndexByte(q[i:], '\n')
			if j < 0 {
				i = len(q)
			} else {
				i += j
			}
		case c == '/' && i+1 < len(q) && q[i+1] == '*':
			j := strings.Index(q[i+2:], "*/")
			if j < 0 {
				return "", ErrNotReadOnly.Msg("unterminated comment")
			}
			i += j + 3
		case c == ';':
			if end >= 0 {
				return "", ErrNotReadOnly
			}
			end = i
		default:
			if end >= 0 && !unicode.IsSpace(rune(c)) {
				return "", ErrNotReadOnly
			}
		}
	}
	if end >= 0 {
		q = strings.TrimSpace(q[:end])
	}
	if q == "" {
		return "", ErrNotReadOnly.Msg("query is empty")
	}
	return q, nil
}

// firstWord skips leading comments and parentheses.
func firstWord(q string) string {
	for {
		q = strings.TrimLeftFunc(q, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
		switch {
		case strings.HasPrefix(q, "--"):
			if i := strings.IndexByte(q, '\n'); i >= 0 {
				q = q[i+1:]
				continue
			}
			return ""
		case strings.HasPrefix(q, "/*"):
			if i := strings.Index(q, "*/"); i >= 0 {
				q = q[i+2:]
				continue
			}
			return ""
		}
		end := strings.IndexFunc(q, func(r rune) bool { return !unicode.IsLetter(r) })
		if end < 0 {
			return q
		}
		return q[:end]
	}
}
