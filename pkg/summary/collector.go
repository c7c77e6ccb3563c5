package summary

import (
	"sync"

	"github.com/dkoosis/runreport/pkg/message"
)

// Collector tallies per-assembly counters from a message stream. It
// implements bus.Sink and is safe for concurrent use.
//
// Totals and time come from AssemblyFinished. Errors count every cleanup
// failure plus each ErrorMessage that names an assembly; error messages
// without an assembly are counted separately.
type Collector struct {
	mu           sync.Mutex
	order        []string
	byID         map[string]*message.Summary
	orphanErrors int
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{byID: make(map[string]*message.Summary)}
}

// Deliver records m. It never asks the run to stop.
func (c *Collector) Deliver(m *message.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case m.Kind == message.AssemblyStarting:
		c.entry(m.AssemblyID)
	case m.Kind == message.AssemblyFinished:
		s := c.entry(m.AssemblyID)
		s.Total = m.TestsTotal
		s.Failed = m.TestsFailed
		s.Skipped = m.TestsSkipped
		s.NotRun = m.TestsNotRun
		s.Time = m.ExecutionTime
	case m.Kind == message.ErrorMessage:
		if m.AssemblyID == "" {
			c.orphanErrors++
			return true
		}
		c.entry(m.AssemblyID).Errors++
	case m.Kind.IsCleanupFailure():
		c.entry(m.AssemblyID).Errors++
	}
	return true
}

func (c *Collector) entry(id string) *message.Summary {
	s, ok := c.byID[id]
	if !ok {
		s = &message.Summary{}
		c.byID[id] = s
		c.order = append(c.order, id)
	}
	return s
}

// Summaries returns the counters per assembly, in the order assemblies were
// first seen.
func (c *Collector) Summaries() []message.AssemblySummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]message.AssemblySummary, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, message.AssemblySummary{AssemblyID: id, Summary: *c.byID[id]})
	}
	return out
}

// OrphanErrors returns the number of error messages not tied to an assembly.
func (c *Collector) OrphanErrors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orphanErrors
}

// Failed reports whether any test failed or any error was recorded.
func (c *Collector) Failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.orphanErrors > 0 {
		return true
	}
	for _, s := range c.byID {
		if s.Failed > 0 || s.Errors > 0 {
			return true
		}
	}
	return false
}
