// Package teamcity writes a message stream as TeamCity service messages,
// grouping each assembly and collection into its own flow.
package teamcity

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/metacache"
	"github.com/dkoosis/runreport/pkg/reporter"
	"github.com/dkoosis/runreport/pkg/runlog"
)

const timestampLayout = "2006-01-02T15:04:05.000"

// Reporter writes the console report of reporter.Default and, after each
// message, the matching service messages. It keeps its own metadata cache,
// which evicts assemblies when they finish.
type Reporter struct {
	def      *reporter.Default
	logger   runlog.Logger
	cache    *metacache.Cache
	rootFlow string
	now      func() time.Time
	registry *reporter.Registry

	defaultOpts []reporter.Option
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithRootFlowID parents every assembly flow under id.
func WithRootFlowID(id string) Option {
	return func(r *Reporter) { r.rootFlow = id }
}

// WithClock replaces the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) { r.now = now }
}

// WithDefaultOptions configures the embedded console reporter.
func WithDefaultOptions(opts ...reporter.Option) Option {
	return func(r *Reporter) { r.defaultOpts = append(r.defaultOpts, opts...) }
}

// New returns a Reporter writing to logger.
func New(logger runlog.Logger, opts ...Option) *Reporter {
	r := &Reporter{
		logger: logger,
		cache:  metacache.New(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.def = reporter.NewDefault(logger, r.defaultOpts...)
	r.registry = reporter.NewRegistry()
	r.def.Register(r.registry)
	r.register(r.registry)
	return r
}

// Deliver implements bus.Sink.
func (r *Reporter) Deliver(m *message.Message) bool {
	return r.registry.Deliver(m)
}

// Default returns the console reporter whose handlers run first.
func (r *Reporter) Default() *reporter.Default { return r.def }

func (r *Reporter) register(reg *reporter.Registry) {
	reg.Handle(message.ErrorMessage, func(m *message.Message) {
		r.logError("", m.ErrorMetadata, "FATAL ERROR")
	})

	reg.Handle(message.AssemblyStarting, func(m *message.Message) {
		r.cache.Set(m)
		r.suiteStarted(m.AssemblyID, r.assemblyName(m), r.rootFlow)
	})
	reg.Handle(message.AssemblyFinished, func(m *message.Message) {
		r.suiteFinished(m.AssemblyID, r.assemblyName(m))
		r.cache.TryRemove(m)
	})
	reg.Handle(message.AssemblyCleanupFailure, func(m *message.Message) {
		r.logError(m.AssemblyID, m.ErrorMetadata, fmt.Sprintf("Test Assembly Cleanup Failure (%s)", r.assemblyName(m)))
	})

	reg.Handle(message.CollectionStarting, func(m *message.Message) {
		r.cache.Set(m)
		r.suiteStarted(m.CollectionID, r.collectionName(m), m.AssemblyID)
	})
	reg.Handle(message.CollectionFinished, func(m *message.Message) {
		r.suiteFinished(m.CollectionID, r.collectionName(m))
		r.cache.TryRemove(m)
	})
	reg.Handle(message.CollectionCleanupFailure, func(m *message.Message) {
		r.logError(m.CollectionID, m.ErrorMetadata, fmt.Sprintf("Test Collection Cleanup Failure (%s)", r.collectionName(m)))
	})

	for _, kind := range []message.Kind{message.ClassStarting, message.MethodStarting, message.CaseStarting} {
		reg.Handle(kind, r.cache.Set)
	}
	for _, kind := range []message.Kind{message.ClassFinished, message.MethodFinished, message.CaseFinished} {
		reg.Handle(kind, func(m *message.Message) { r.cache.TryRemove(m) })
	}
	reg.Handle(message.ClassCleanupFailure, func(m *message.Message) {
		r.logError(m.CollectionID, m.ErrorMetadata, fmt.Sprintf("Test Class Cleanup Failure (%s)", r.className(m)))
	})
	reg.Handle(message.MethodCleanupFailure, func(m *message.Message) {
		r.logError(m.CollectionID, m.ErrorMetadata, fmt.Sprintf("Test Method Cleanup Failure (%s)", r.methodName(m)))
	})
	reg.Handle(message.CaseCleanupFailure, func(m *message.Message) {
		r.logError(m.CollectionID, m.ErrorMetadata, fmt.Sprintf("Test Case Cleanup Failure (%s)", r.caseName(m)))
	})
	reg.Handle(message.TestCleanupFailure, func(m *message.Message) {
		r.logError(m.CollectionID, m.ErrorMetadata, fmt.Sprintf("Test Cleanup Failure (%s)", r.testName(m)))
	})

	reg.Handle(message.TestStarting, r.handleTestStarting)
	reg.Handle(message.TestFailed, r.handleTestFailed)
	reg.Handle(message.TestSkipped, r.handleTestSkipped)
	reg.Handle(message.TestFinished, r.handleTestFinished)
}

func (r *Reporter) handleTestStarting(m *message.Message) {
	r.cache.Set(m)
	r.emit(m.CollectionID, "testStarted", fmt.Sprintf("name='%s'", Escape(r.testName(m))))
}

func (r *Reporter) handleTestFailed(m *message.Message) {
	r.emit(m.CollectionID, "testFailed", fmt.Sprintf("name='%s' details='%s|r|n%s'",
		Escape(r.testName(m)),
		Escape(message.CombineMessages(m.ErrorMetadata)),
		Escape(message.CombineStackTraces(m.ErrorMetadata)),
	))
}

func (r *Reporter) handleTestSkipped(m *message.Message) {
	r.emit(m.CollectionID, "testIgnored", fmt.Sprintf("name='%s' message='%s'",
		Escape(r.testName(m)), Escape(m.Reason)))
}

func (r *Reporter) handleTestFinished(m *message.Message) {
	name := Escape(r.testName(m))
	if strings.TrimSpace(m.Output) != "" {
		r.emit(m.CollectionID, "testStdOut", fmt.Sprintf("name='%s' out='%s' tc:tags='tc:parseServiceMessagesInside'",
			name, Escape(m.Output)))
	}
	r.emit(m.CollectionID, "testFinished", fmt.Sprintf("name='%s' duration='%d'", name, milliseconds(m.ExecutionTime)))
	r.cache.TryRemove(m)
}

// milliseconds truncates a duration in seconds. The epsilon absorbs binary
// representation error, so 1.005s is 1005ms rather than 1004ms.
func milliseconds(seconds float64) int {
	return int(math.Floor(seconds*1000 + 1e-6))
}

func (r *Reporter) logError(flowID string, e message.ErrorMetadata, failureType string) {
	text := fmt.Sprintf("[%s] %s: %s", failureType, e.FirstExceptionType(), message.CombineMessages(e))
	r.emit(flowID, "message", fmt.Sprintf("status='ERROR' text='%s' errorDetails='%s'",
		Escape(text), Escape(message.CombineStackTraces(e))))
}

func (r *Reporter) suiteStarted(flowID, name, parentFlowID string) {
	extra := ""
	if parentFlowID != "" {
		extra = fmt.Sprintf("parent='%s'", Escape(parentFlowID))
	}
	r.emit(flowID, "flowStarted", extra)
	r.emit(flowID, "testSuiteStarted", fmt.Sprintf("name='%s'", Escape(name)))
}

func (r *Reporter) suiteFinished(flowID, name string) {
	r.emit(flowID, "testSuiteFinished", fmt.Sprintf("name='%s'", Escape(name)))
	r.emit(flowID, "flowFinished", "")
}

func (r *Reporter) emit(flowID, messageType, extra string) {
	var sb strings.Builder
	sb.WriteString("##teamcity[")
	sb.WriteString(messageType)
	sb.WriteString(" timestamp='")
	sb.WriteString(Escape(r.now().UTC().Format(timestampLayout)))
	sb.WriteString("+0000'")
	if flowID != "" {
		sb.WriteString(" flowId='")
		sb.WriteString(Escape(flowID))
		sb.WriteString("'")
	}
	if extra != "" {
		sb.WriteString(" ")
		sb.WriteString(extra)
	}
	sb.WriteString("]")
	r.logger.LogRaw(sb.String())
}

func (r *Reporter) assemblyName(m *message.Message) string {
	rec := r.cache.Assembly(m)
	if rec == nil {
		return "<unknown test assembly>"
	}
	if rec.Path != "" {
		return rec.Path
	}
	return rec.SimpleName()
}

func (r *Reporter) collectionName(m *message.Message) string {
	rec := r.cache.Collection(m)
	if rec == nil {
		return "<unknown test collection>"
	}
	return fmt.Sprintf("%s (%s)", rec.Name, m.CollectionID)
}

func (r *Reporter) className(m *message.Message) string {
	if rec := r.cache.Class(m); rec != nil {
		return rec.Name
	}
	return "<unknown test class>"
}

// methodName qualifies the method with its class when the class is known.
func (r *Reporter) methodName(m *message.Message) string {
	method := r.cache.Method(m)
	if method == nil {
		return "<unknown test method>"
	}
	class := r.cache.Class(m)
	if class == nil {
		return method.Name
	}
	return class.Name + "." + method.Name
}

func (r *Reporter) caseName(m *message.Message) string {
	if rec := r.cache.Case(m); rec != nil {
		return rec.Name
	}
	return "<unknown test case>"
}

func (r *Reporter) testName(m *message.Message) string {
	if rec := r.cache.Test(m); rec != nil {
		return rec.Name
	}
	return "<unknown test>"
}
