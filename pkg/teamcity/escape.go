package teamcity

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// Escape encodes a value for a service message attribute. Characters at or
// above U+007F are written as UTF-16 code units, so characters outside the
// basic plane become a surrogate pair of escapes.
func Escape(value string) string {
	var sb strings.Builder
	sb.Grow(len(value))
	for _, ch := range value {
		switch ch {
		case '\\':
			sb.WriteString("|0x005C")
		case '|':
			sb.WriteString("||")
		case '\'':
			sb.WriteString("|'")
		case '\n':
			sb.WriteString("|n")
		case '\r':
			sb.WriteString("|r")
		case '[':
			sb.WriteString("|[")
		case ']':
			sb.WriteString("|]")
		default:
			switch {
			case ch < 0x7f:
				sb.WriteRune(ch)
			case ch > 0xffff:
				hi, lo := utf16.EncodeRune(ch)
				fmt.Fprintf(&sb, "|0x%04x|0x%04x", hi, lo)
			default:
				fmt.Fprintf(&sb, "|0x%04x", ch)
			}
		}
	}
	return sb.String()
}
