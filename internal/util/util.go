// Package util provides small string helpers for console input.
package util

import "strings"

// Unquote strips one pair of surrounding double quotes from a console field and
// turns each "" inside it back into ". Unquoted fields are returned unchanged.
func Unquote(field string) string {
	if len(field) < 2 || field[0] != '"' || field[len(field)-1] != '"' {
		return field
	}
	return strings.ReplaceAll(field[1:len(field)-1], `""`, `"`)
}

// SplitArgs splits a console line on whitespace. A double-quoted field may contain
// spaces and keeps its quotes; "" inside it is an escaped quote.
func SplitArgs(line string) []string {
	var (
		out     []string
		b       strings.Builder
		quoted  bool
		started bool
	)

	flush := func() {
		if started {
			out = append(out, b.String())
		}
		b.Reset()
		started = false
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"' && quoted && i+1 < len(line) && line[i+1] == '"':
			b.WriteString(`""`)
			i++
		case c == '"':
			quoted = !quoted
			b.WriteByte(c)
			started = true
		case !quoted && (c == ' ' || c == '\t'):
			flush()
		default:
			b.WriteByte(c)
			started = true
		}
	}
	flush()
	return out
}
