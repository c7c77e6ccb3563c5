package reporter

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/runlog"
)

var (
	// "at Namespace.Type.Method() in /path/file.cs:line 42"
	managedFrame = regexp.MustCompile(`^\s*at (?P<method>.*) in (?P<file>.*):(line )?(?P<line>\d+)$`)
	// "\t/path/to/file.go:42 +0x1d"
	goFrame = regexp.MustCompile(`^\s*(?P<file>\S+\.go):(?P<line>\d+)(?: \+0x[0-9a-f]+)?$`)
)

// TransformFrame shortens the file path of a stack frame relative to dir.
// Frames that do not look like a source location are returned unchanged.
func TransformFrame(frame, dir string) string {
	if m := managedFrame.FindStringSubmatch(frame); m != nil {
		file := trimDir(m[managedFrame.SubexpIndex("file")], dir)
		return file + "(" + m[managedFrame.SubexpIndex("line")] + ",0): at " + m[managedFrame.SubexpIndex("method")]
	}
	if m := goFrame.FindStringSubmatch(frame); m != nil {
		return trimDir(m[goFrame.SubexpIndex("file")], dir) + ":" + m[goFrame.SubexpIndex("line")]
	}
	return frame
}

func trimDir(file, dir string) string {
	if dir == "" {
		return file
	}
	prefix := strings.TrimRight(dir, `/\`) + string(filepath.Separator)
	if len(file) >= len(prefix) && strings.EqualFold(file[:len(prefix)], prefix) {
		return file[len(prefix):]
	}
	return file
}

// FrameInfo returns the location of the first frame in e's combined stack
// trace that names a file and line.
func FrameInfo(e message.ErrorMetadata) runlog.StackFrameInfo {
	for _, frame := range splitLines(message.CombineStackTraces(e)) {
		for _, re := range []*regexp.Regexp{managedFrame, goFrame} {
			m := re.FindStringSubmatch(frame)
			if m == nil {
				continue
			}
			line, err := strconv.Atoi(m[re.SubexpIndex("line")])
			if err != nil {
				continue
			}
			return runlog.StackFrameInfo{FileName: m[re.SubexpIndex("file")], LineNumber: line}
		}
	}
	return runlog.None
}

// splitLines splits on "\n", dropping a trailing "\r" from each line. An
// empty string is one empty line.
func splitLines(s string) []string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
