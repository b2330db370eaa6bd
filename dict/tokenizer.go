package dict

import (
	"errors"
	"strings"
)

// Constants

const (
	// Separator splits positional fields inside a lookup key.
	Separator = '"'

	// EscapeChar makes the following character literal.
	EscapeChar = '\\'
)

// Variables

// ErrInvalidEscape is returned when the input ends
// with an escape character that has nothing to escape.
var ErrInvalidEscape = errors.New("escape character at end of input")

// Functions

// SplitAndUnescape splits s on unescaped double quotes
// and removes one level of backslash escaping from each
// field. The result always contains at least one field,
// the last one possibly empty.
func SplitAndUnescape(s string) ([]string, error) {

	var fields []string
	var cur strings.Builder

	for i := 0; i < len(s); i++ {

		switch s[i] {

		case EscapeChar:
			i++
			if i == len(s) {
				return nil, ErrInvalidEscape
			}
			cur.WriteByte(s[i])

		case Separator:
			fields = append(fields, cur.String())
			cur.Reset()

		default:
			cur.WriteByte(s[i])
		}
	}

	return append(fields, cur.String()), nil
}

// Escape is the inverse of SplitAndUnescape: it escapes
// separators and escape characters in every field and
// joins the fields with the separator.
func Escape(fields ...string) string {

	var b strings.Builder

	for i, f := range fields {

		if i > 0 {
			b.WriteByte(Separator)
		}

		for j := 0; j < len(f); j++ {

			if f[j] == Separator || f[j] == EscapeChar {
				b.WriteByte(EscapeChar)
			}
			b.WriteByte(f[j])
		}
	}

	return b.String()
}
