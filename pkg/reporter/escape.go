package reporter

import "strings"

var singleLine = strings.NewReplacer(
	"\r", `\r`,
	"\n", `\n`,
	"\t", `\t`,
	"\x00", `\0`,
)

// Escape renders control characters as two-character escapes so text stays
// on one line.
func Escape(text string) string {
	return singleLine.Replace(text)
}

// EscapeMultiLineIndent keeps line breaks but indents every continuation line
// with indent. NUL is still escaped.
func EscapeMultiLineIndent(text, indent string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\n", "\n"+indent)
	return strings.ReplaceAll(text, "\x00", `\0`)
}
