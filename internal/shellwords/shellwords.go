// Package shellwords splits configured command lines into argv using POSIX
// shell quoting rules, without invoking a shell.
package shellwords

import (
	"errors"
	"strings"
)

// ErrUnterminatedQuote is returned when a quoted section is not closed.
var ErrUnterminatedQuote = errors.New("shellwords: unterminated quote")

type quoteState int

const (
	unquoted quoteState = iota
	singleQuoted
	doubleQuoted
)

// Split breaks line into words. Single quotes are literal, double quotes
// honour backslash escapes of '"', '\\' and '$', and a backslash outside
// quotes escapes the next character. Empty quoted words are kept.
func Split(line string) ([]string, error) {
	var (
		words   []string
		word    strings.Builder
		inWord  bool
		state   = unquoted
		escaped bool
	)

	flush := func() {
		if inWord {
			words = append(words, word.String())
			word.Reset()
			inWord = false
		}
	}

	for _, r := range line {
		if escaped {
			if state == doubleQuoted && !strings.ContainsRune(`"\$`, r) {
				word.WriteRune('\\')
			}
			word.WriteRune(r)
			escaped = false
			continue
		}

		switch state {
		case singleQuoted:
			if r == '\'' {
				state = unquoted
			} else {
				word.WriteRune(r)
			}

		case doubleQuoted:
			switch r {
			case '"':
				state = unquoted
			case '\\':
				escaped = true
			default:
				word.WriteRune(r)
			}

		default:
			switch r {
			case '\'':
				state, inWord = singleQuoted, true
			case '"':
				state, inWord = doubleQuoted, true
			case '\\':
				escaped, inWord = true, true
			case ' ', '\t', '\n', '\r':
				flush()
			default:
				word.WriteRune(r)
				inWord = true
			}
		}
	}

	if state != unquoted {
		return nil, ErrUnterminatedQuote
	}
	if escaped {
		// A trailing backslash stands for itself.
		word.WriteRune('\\')
	}
	flush()
	return words, nil
}

// Join quotes words so that Split(Join(words)) returns them unchanged.
func Join(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = quote(w)
	}
	return strings.Join(quoted, " ")
}

func quote(w string) string {
	if w == "" {
		return "''"
	}
	if !strings.ContainsAny(w, " \t\n\r'\"\\$") {
		return w
	}
	return "'" + strings.ReplaceAll(w, "'", `'\''`) + "'"
}
