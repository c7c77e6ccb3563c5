// Package reporter renders a message stream as human-readable log lines.
package reporter

import (
	"sort"

	"github.com/dkoosis/runreport/pkg/message"
)

// Handler processes one message.
type Handler func(m *message.Message)

// Registry routes each message to the handlers registered for its kind, in
// registration order. Registration must finish before the first Deliver;
// after that the registry is read-only and safe for concurrent delivery.
type Registry struct {
	handlers map[message.Kind][]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[message.Kind][]Handler)}
}

// Handle appends h to the handlers for kind.
func (r *Registry) Handle(kind message.Kind, h Handler) {
	r.handlers[kind] = append(r.handlers[kind], h)
}

// Deliver runs every handler registered for m's kind. It implements bus.Sink
// and never asks the run to stop.
func (r *Registry) Deliver(m *message.Message) bool {
	message.MustValidate(m)
	for _, h := range r.handlers[m.Kind] {
		h(m)
	}
	return true
}

// Kinds returns the kinds with at least one handler, sorted.
func (r *Registry) Kinds() []message.Kind {
	out := make([]message.Kind, 0, len(r.handlers))
	for k := range r.handlers {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
