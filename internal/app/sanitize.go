package app

import (
	"regexp"
	"strings"
)

// Server text is written straight into the terminal, so escape sequences
// and control characters are stripped first.
var terminalEscapePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\x1b\[[<>?=]?[0-9;]*[A-Za-z@^` + "`" + `~{|}!]`),
	regexp.MustCompile(`\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)`),
	regexp.MustCompile(`\x1b[()][AB012]`),
	regexp.MustCompile(`\[<[0-9]+;[0-9]+;[0-9]+[Mm]`),
}

func sanitizeText(input string) string {
	return sanitize(input, true)
}

// sanitizeLine flattens input onto one line.
func sanitizeLine(input string) string {
	return strings.Join(strings.Fields(sanitize(input, false)), " ")
}

func sanitize(input string, keepNewlines bool) string {
	if input == "" {
		return ""
	}
	for _, pattern := range terminalEscapePatterns {
		input = pattern.ReplaceAllString(input, "")
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		switch {
		case r == '\n':
			if keepNewlines {
				b.WriteRune(r)
			} else {
				b.WriteRune(' ')
			}
		case r == '\t':
			b.WriteString("    ")
		case r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0):
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
