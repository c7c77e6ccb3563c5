package runlog

import (
	"fmt"
	"sync"
)

// Spy records every line it is given, prefixed with its level. It is used to
// assert on reporter output.
type Spy struct {
	mu       sync.Mutex
	section  sync.Mutex
	messages []string
}

// NewSpy returns an empty Spy.
func NewSpy() *Spy { return &Spy{} }

// Messages returns a copy of the recorded lines.
func (s *Spy) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages...)
}

// Reset discards the recorded lines.
func (s *Spy) Reset() {
	s.mu.Lock()
	s.messages = nil
	s.mu.Unlock()
}

func (s *Spy) LogMessage(frame StackFrameInfo, msg string)          { s.add("---", frame, msg) }
func (s *Spy) LogImportantMessage(frame StackFrameInfo, msg string) { s.add("Imp", frame, msg) }
func (s *Spy) LogWarning(frame StackFrameInfo, msg string)          { s.add("Warn", frame, msg) }
func (s *Spy) LogError(frame StackFrameInfo, msg string)            { s.add("Err", frame, msg) }
func (s *Spy) LogRaw(msg string)                                    { s.add("Raw", None, msg) }

func (s *Spy) Locker() sync.Locker { return &s.section }

func (s *Spy) add(category string, frame StackFrameInfo, msg string) {
	var line string
	if frame.IsZero() {
		line = fmt.Sprintf("[%s] => %s", category, msg)
	} else {
		line = fmt.Sprintf("[%s @ %s] => %s", category, frame, msg)
	}
	s.mu.Lock()
	s.messages = append(s.messages, line)
	s.mu.Unlock()
}
