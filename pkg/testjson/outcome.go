package testjson

import (
	"regexp"
	"strings"

	"github.com/dkoosis/runreport/pkg/message"
)

// locationLine matches the "file.go:NN: text" prefix the testing package puts
// on t.Log, t.Error and t.Skip output.
var locationLine = regexp.MustCompile(`^\s+(\S+\.go:\d+): (.*)$`)

// outcome is the test output split into the parts a result message carries.
type outcome struct {
	messages   []string // located log lines, continuation lines folded in
	frames     []string // "file.go:NN" for each message
	other      []string // unlocated output, newline-terminated
	panicMsg   string
	panicStack []string
	panicked   bool
}

// framing reports lines the test runner prints around a test rather than
// output the test itself produced.
func framing(line string) bool {
	trimmed := strings.TrimLeft(line, " ")
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS:", "--- FAIL:", "--- SKIP:"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func parseOutcome(output []string) outcome {
	var o outcome
	lastLocated := -1
	for _, raw := range output {
		line := strings.TrimRight(raw, "\r\n")
		if framing(line) {
			lastLocated = -1
			continue
		}
		if o.panicked {
			o.panicStack = append(o.panicStack, line)
			continue
		}
		if rest, ok := strings.CutPrefix(line, "panic: "); ok {
			o.panicked = true
			o.panicMsg = strings.TrimSuffix(rest, " [recovered]")
			continue
		}
		if m := locationLine.FindStringSubmatch(line); m != nil {
			o.frames = append(o.frames, m[1])
			o.messages = append(o.messages, m[2])
			lastLocated = len(o.messages) - 1
			continue
		}
		// Multi-line log output is indented one level deeper than its first line.
		if lastLocated >= 0 && strings.HasPrefix(line, "        ") {
			o.messages[lastLocated] += "\n" + strings.TrimSpace(line)
			continue
		}
		lastLocated = -1
		o.other = append(o.other, line+"\n")
	}
	return o
}

// logOutput renders every non-framing line: what a passed test printed.
func (o outcome) logOutput() string {
	var sb strings.Builder
	for i, msg := range o.messages {
		sb.WriteString(o.frames[i])
		sb.WriteString(": ")
		sb.WriteString(msg)
		sb.WriteString("\n")
	}
	for _, line := range o.other {
		sb.WriteString(line)
	}
	return sb.String()
}

func (o outcome) otherOutput() string {
	return strings.Join(o.other, "")
}

// failure builds the error metadata of a failed test. fallback is used when
// the test failed without saying why.
func (o outcome) failure(fallback string) message.ErrorMetadata {
	if o.panicked {
		return message.ErrorMetadata{
			ExceptionTypes:         []string{"panic"},
			Messages:               []string{o.panicMsg},
			StackTraces:            []string{strings.TrimRight(strings.Join(o.panicStack, "\n"), "\n")},
			ExceptionParentIndices: []int{-1},
		}
	}
	if len(o.messages) == 0 {
		return message.ErrorMetadata{
			Messages:               []string{fallback},
			ExceptionParentIndices: []int{-1},
		}
	}
	return message.ErrorMetadata{
		Messages:               []string{strings.Join(o.messages, "\n")},
		StackTraces:            []string{strings.Join(o.frames, "\n")},
		ExceptionParentIndices: []int{-1},
	}
}

// reason is the skip message, or fallback when the test gave none.
func (o outcome) reason(fallback string) string {
	if len(o.messages) == 0 {
		return fallback
	}
	return strings.Join(o.messages, "\n")
}
