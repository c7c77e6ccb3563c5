// Package runlog provides the line loggers reporters write through.
package runlog

import (
	"fmt"
	"sync"
)

// StackFrameInfo locates the source of a logged line. The zero value means
// no location is known.
type StackFrameInfo struct {
	FileName   string
	LineNumber int
}

// None is the empty frame.
var None = StackFrameInfo{}

// IsZero reports whether no location is known.
func (f StackFrameInfo) IsZero() bool { return f.FileName == "" && f.LineNumber == 0 }

func (f StackFrameInfo) String() string {
	if f.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", f.FileName, f.LineNumber)
}

// Logger receives report lines. Each call writes one line atomically.
// Callers that emit several lines which must stay together hold Locker for
// the duration; implementations must not take that lock themselves.
type Logger interface {
	LogMessage(frame StackFrameInfo, msg string)
	LogImportantMessage(frame StackFrameInfo, msg string)
	LogWarning(frame StackFrameInfo, msg string)
	LogError(frame StackFrameInfo, msg string)
	// LogRaw writes msg verbatim, without styling or decoration.
	LogRaw(msg string)
	Locker() sync.Locker
}
