package teamcity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{`\`, "|0x005C"},
		{"|", "||"},
		{"'", "|'"},
		{"\n", "|n"},
		{"\r", "|r"},
		{"[", "|["},
		{"]", "|]"},
		{"\u2018", "|0x2018"},
		{"\u007f", "|0x007f"},
		{"\u00e9", "|0x00e9"},
		{"plain text\t~", "plain text\t~"},
		{"\U0001F600", "|0xd83d|0xde00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Escape(tt.in), "%q", tt.in)
	}
}

func TestEscape_ConcatenatesMappingsInOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "|0x005C|||'|n|r|[|]|0x2018", Escape("\\|'\n\r[]\u2018"))
}
