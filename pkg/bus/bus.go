// Package bus dispatches lifecycle messages to a sink and decides, per
// message, whether the producer should keep scheduling work.
package bus

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/dkoosis/runreport/pkg/message"
)

// Sink is the final consumer of queued messages. Deliver returns false to ask
// the producer to stop.
type Sink interface {
	Deliver(m *message.Message) bool
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(m *message.Message) bool

// Deliver calls f(m).
func (f SinkFunc) Deliver(m *message.Message) bool { return f(m) }

// Fanout delivers each message to every sink in order. The result is the
// conjunction of all sink results; a false from one sink does not prevent
// delivery to the rest.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

type fanout []Sink

func (f fanout) Deliver(m *message.Message) bool {
	keep := true
	for _, s := range f {
		if !s.Deliver(m) {
			keep = false
		}
	}
	return keep
}

func (f fanout) Close() error {
	var first error
	for _, s := range f {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Bus is a synchronous dispatcher. It is safe for concurrent use.
type Bus struct {
	sink       Sink
	stopOnFail bool
	stopped    atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

// New returns a bus delivering to sink. With stopOnFail set, the first
// failure message makes every later Queue call return false.
func New(sink Sink, stopOnFail bool) *Bus {
	if sink == nil {
		panic(fmt.Errorf("%w: nil sink", message.ErrContractViolation))
	}
	return &Bus{sink: sink, stopOnFail: stopOnFail}
}

// Queue delivers m to the sink and reports whether the run should continue.
// Every message is delivered, even after the bus has stopped.
func (b *Bus) Queue(m *message.Message) bool {
	message.MustValidate(m)

	keep := b.sink.Deliver(m)
	if b.stopOnFail && m.Kind.IsFailure() {
		b.stopped.Store(true)
	}
	return keep && !b.stopped.Load()
}

// Stopped reports whether stop-on-fail has tripped.
func (b *Bus) Stopped() bool { return b.stopped.Load() }

// Close releases the sink if it implements io.Closer. It is idempotent and
// dispatches nothing.
func (b *Bus) Close() error {
	b.closeOnce.Do(func() {
		if c, ok := b.sink.(io.Closer); ok {
			b.closeErr = c.Close()
		}
	})
	return b.closeErr
}
