package runlog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSpy_RecordsLevelsAndFrames(t *testing.T) {
	t.Parallel()

	s := NewSpy()
	s.LogMessage(None, "plain")
	s.LogImportantMessage(None, "important")
	s.LogWarning(None, "warn")
	s.LogError(StackFrameInfo{FileName: "foo.go", LineNumber: 12}, "boom")
	s.LogRaw("##teamcity[x]")

	assert.Equal(t, []string{
		"[---] => plain",
		"[Imp] => important",
		"[Warn] => warn",
		"[Err @ foo.go:12] => boom",
		"[Raw] => ##teamcity[x]",
	}, s.Messages())

	s.Reset()
	assert.Empty(t, s.Messages())
}

func TestConsole_WritesOneLinePerCall(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, WithNoColor(true))

	c.LogImportantMessage(None, "  Starting:    asm")
	c.LogError(None, "    test [FAIL]")
	c.LogRaw("##teamcity[flowStarted]")

	assert.Equal(t, "  Starting:    asm\n    test [FAIL]\n##teamcity[flowStarted]\n", buf.String())
	assert.Equal(t, "mono", c.Theme().Name)
}

func TestConsole_NonTerminalWriter_HasNoEscapeCodes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, WithTheme("orca"))

	c.LogWarning(None, "    name [SKIP]")
	c.LogMessage(None, "      with\ttab")

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "with\ttab")
	assert.Equal(t, "orca", c.Theme().Name)
}

func TestConsole_MultiLineMessage_NotPadded(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf)

	c.LogImportantMessage(None, "      short\n      a much longer line")

	assert.Equal(t, "      short\n      a much longer line\n", buf.String())
}

func TestConsole_ConcurrentLinesDoNotInterleave(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, WithNoColor(true))

	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			for j := 0; j < 50; j++ {
				c.LogImportantMessage(None, strings.Repeat("x", 40))
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, strings.Repeat("x", 40), line)
	}
}

func TestThemeByName_DefaultsToDefault(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	c := NewConsole(&buf, WithTheme("unknown"))
	assert.Equal(t, "default", c.Theme().Name)
}
