package reporter

import (
	"fmt"
	"os"
	"strings"

	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/metacache"
	"github.com/dkoosis/runreport/pkg/runlog"
)

const (
	unknownTest       = "<unknown test>"
	unknownCase       = "<unknown test case>"
	unknownClass      = "<unknown test class>"
	unknownMethod     = "<unknown test method>"
	unknownCollection = "<unknown test collection>"
	unknownAssembly   = "<unknown test assembly>"
)

// Default writes the console report: assembly progress, failures, skips and
// the final summary.
type Default struct {
	logger   runlog.Logger
	cache    *metacache.Cache
	options  *optionsByAssembly
	dir      string
	registry *Registry
}

// Option configures a Default reporter.
type Option func(*Default)

// WithWorkingDirectory sets the directory stack frame paths are shortened
// against. It defaults to the process working directory.
func WithWorkingDirectory(dir string) Option {
	return func(d *Default) { d.dir = dir }
}

// NewDefault returns a reporter writing to logger.
func NewDefault(logger runlog.Logger, opts ...Option) *Default {
	if logger == nil {
		panic(fmt.Errorf("%w: nil logger", message.ErrContractViolation))
	}
	d := &Default{
		logger:  logger,
		cache:   metacache.New(),
		options: newOptionsByAssembly(),
	}
	if wd, err := os.Getwd(); err == nil {
		d.dir = wd
	}
	for _, opt := range opts {
		opt(d)
	}
	d.registry = NewRegistry()
	d.Register(d.registry)
	return d
}

// Deliver implements bus.Sink.
func (d *Default) Deliver(m *message.Message) bool {
	return d.registry.Deliver(m)
}

// Logger returns the logger the reporter writes to.
func (d *Default) Logger() runlog.Logger { return d.logger }

// Cache returns the metadata cache the reporter resolves names from.
func (d *Default) Cache() *metacache.Cache { return d.cache }

// ExecutionOptions returns the options recorded for the assembly at path, or
// the zero options.
func (d *Default) ExecutionOptions(path string) message.ExecutionOptions {
	return d.options.get(path)
}

// Register adds the reporter's handlers to r. Reporters that build on this
// one register their own handlers afterwards so they run second.
func (d *Default) Register(r *Registry) {
	r.Handle(message.ErrorMessage, d.handleErrorMessage)

	r.Handle(message.DiscoveryStarting, d.handleDiscoveryStarting)
	r.Handle(message.DiscoveryFinished, d.handleDiscoveryFinished)
	r.Handle(message.ExecutionStarting, d.handleExecutionStarting)
	r.Handle(message.ExecutionFinished, d.handleExecutionFinished)
	r.Handle(message.ExecutionSummaries, d.handleExecutionSummaries)

	// The assembly record outlives AssemblyFinished: the summary needs it.
	r.Handle(message.AssemblyStarting, d.cache.Set)
	r.Handle(message.AssemblyCleanupFailure, d.handleAssemblyCleanupFailure)

	for _, kind := range []message.Kind{
		message.CollectionStarting, message.ClassStarting, message.MethodStarting,
		message.CaseStarting, message.TestStarting,
	} {
		r.Handle(kind, d.cache.Set)
	}
	for _, kind := range []message.Kind{
		message.CollectionFinished, message.ClassFinished, message.MethodFinished,
		message.CaseFinished, message.TestFinished,
	} {
		r.Handle(kind, d.remove)
	}

	r.Handle(message.CollectionCleanupFailure, d.handleCollectionCleanupFailure)
	r.Handle(message.ClassCleanupFailure, d.handleClassCleanupFailure)
	r.Handle(message.MethodCleanupFailure, d.handleMethodCleanupFailure)
	r.Handle(message.CaseCleanupFailure, d.handleCaseCleanupFailure)
	r.Handle(message.TestCleanupFailure, d.handleTestCleanupFailure)

	r.Handle(message.TestFailed, d.handleTestFailed)
	r.Handle(message.TestPassed, d.handleTestPassed)
	r.Handle(message.TestSkipped, d.handleTestSkipped)
}

func (d *Default) remove(m *message.Message) { d.cache.TryRemove(m) }

// LogError writes a failure header followed by the combined exception
// messages and stack trace, as one uninterrupted block.
func (d *Default) LogError(e message.ErrorMetadata, failureType string) {
	frame := FrameInfo(e)

	lock := d.logger.Locker()
	lock.Lock()
	defer lock.Unlock()

	d.logger.LogError(frame, fmt.Sprintf("    [%s] %s", failureType, Escape(e.FirstExceptionType())))
	for _, line := range splitLines(message.CombineMessages(e)) {
		d.logger.LogImportantMessage(frame, "      "+line)
	}
	d.logStackTrace(frame, message.CombineStackTraces(e))
}

func (d *Default) logStackTrace(frame runlog.StackFrameInfo, stackTrace string) {
	if stackTrace == "" {
		return
	}
	d.logger.LogMessage(frame, "      Stack Trace:")
	for _, f := range splitLines(stackTrace) {
		d.logger.LogImportantMessage(frame, "        "+TransformFrame(f, d.dir))
	}
}

func (d *Default) logOutput(frame runlog.StackFrameInfo, output string) {
	if output == "" {
		return
	}
	// Output is newline terminated; the last terminator would print as a blank line.
	output = strings.TrimSuffix(output, "\n")
	output = strings.TrimSuffix(output, "\r")

	d.logger.LogMessage(frame, "      Output:")
	for _, line := range splitLines(output) {
		d.logger.LogImportantMessage(frame, "        "+line)
	}
}

func (d *Default) logWarnings(frame runlog.StackFrameInfo, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	d.logger.LogMessage(frame, "      Warnings:")
	for _, w := range warnings {
		for i, line := range splitLines(w) {
			bullet := " "
			if i == 0 {
				bullet = "•"
			}
			d.logger.LogWarning(frame, "        "+bullet+" "+line)
		}
	}
}

func (d *Default) handleErrorMessage(m *message.Message) {
	d.LogError(m.ErrorMetadata, "FATAL ERROR")
}

func (d *Default) handleDiscoveryStarting(m *message.Message) {
	name := m.AssemblyDisplayName()
	opts := m.DiscoveryOptions
	if opts == nil || !opts.Diagnostics {
		d.logger.LogImportantMessage(runlog.None, "  Discovering: "+name)
		return
	}
	display := opts.MethodDisplay
	if display == "" {
		display = "ClassAndMethod"
	}
	displayOpts := opts.MethodDisplayOptions
	if displayOpts == "" {
		displayOpts = "None"
	}
	d.logger.LogImportantMessage(runlog.None, fmt.Sprintf(
		"  Discovering: %s (method display = %s, method display options = %s)", name, display, displayOpts))
}

func (d *Default) handleDiscoveryFinished(m *message.Message) {
	name := m.AssemblyDisplayName()
	if m.DiscoveryOptions == nil || !m.DiscoveryOptions.Diagnostics {
		d.logger.LogImportantMessage(runlog.None, "  Discovered:  "+name)
		return
	}
	d.logger.LogImportantMessage(runlog.None, fmt.Sprintf(
		"  Discovered:  %s (%d test case%s to be run)", name, m.TestCasesToRun, plural(m.TestCasesToRun)))
}

func (d *Default) handleExecutionStarting(m *message.Message) {
	var opts message.ExecutionOptions
	if m.ExecutionOptions != nil {
		opts = *m.ExecutionOptions
	}
	d.options.add(m.AssemblyPath, opts)

	name := m.AssemblyDisplayName()
	if !opts.Diagnostics {
		d.logger.LogImportantMessage(runlog.None, "  Starting:    "+name)
		return
	}
	d.logger.LogImportantMessage(runlog.None,
		fmt.Sprintf("  Starting:    %s (%s)", name, describeExecution(opts, m.Seed)))
}

func (d *Default) handleExecutionFinished(m *message.Message) {
	d.logger.LogImportantMessage(runlog.None, "  Finished:    "+m.AssemblyDisplayName())
	d.options.remove(m.AssemblyPath)
}

func (d *Default) handleExecutionSummaries(m *message.Message) {
	d.WriteSummary(d.logger, m.Summaries, m.Elapsed)
}

func (d *Default) handleAssemblyCleanupFailure(m *message.Message) {
	name := unknownAssembly
	if rec := d.cache.Assembly(m); rec != nil && rec.Path != "" {
		name = rec.Path
	}
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Assembly Cleanup Failure (%s)", name))
}

func (d *Default) handleCollectionCleanupFailure(m *message.Message) {
	name := unknownCollection
	if rec := d.cache.Collection(m); rec != nil {
		name = rec.Name
	}
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Collection Cleanup Failure (%s)", name))
}

func (d *Default) handleClassCleanupFailure(m *message.Message) {
	name := unknownClass
	if rec := d.cache.Class(m); rec != nil {
		name = rec.Name
	}
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Class Cleanup Failure (%s)", name))
}

func (d *Default) handleMethodCleanupFailure(m *message.Message) {
	name := unknownMethod
	if rec := d.cache.Method(m); rec != nil {
		name = rec.Name
	}
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Method Cleanup Failure (%s)", name))
}

func (d *Default) handleCaseCleanupFailure(m *message.Message) {
	name := unknownCase
	if rec := d.cache.Case(m); rec != nil {
		name = rec.Name
	}
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Case Cleanup Failure (%s)", name))
}

func (d *Default) handleTestCleanupFailure(m *message.Message) {
	d.LogError(m.ErrorMetadata, fmt.Sprintf("Test Cleanup Failure (%s)", d.testName(m)))
}

func (d *Default) testName(m *message.Message) string {
	if rec := d.cache.Test(m); rec != nil {
		return rec.Name
	}
	return unknownTest
}

func (d *Default) handleTestFailed(m *message.Message) {
	frame := FrameInfo(m.ErrorMetadata)

	lock := d.logger.Locker()
	lock.Lock()
	defer lock.Unlock()

	d.logger.LogError(frame, "    "+Escape(d.testName(m))+" [FAIL]")
	for _, line := range splitLines(message.CombineMessages(m.ErrorMetadata)) {
		d.logger.LogImportantMessage(frame, "      "+line)
	}
	d.logStackTrace(frame, message.CombineStackTraces(m.ErrorMetadata))
	d.logOutput(frame, m.Output)
	d.logWarnings(frame, m.Warnings)
}

// handleTestPassed is silent unless the test produced warnings, or produced
// output while its assembly runs with diagnostics on. An assembly whose
// metadata is unknown is treated as running without diagnostics.
func (d *Default) handleTestPassed(m *message.Message) {
	var path string
	if rec := d.cache.Assembly(m); rec != nil {
		path = rec.Path
	}
	diagnostics := d.options.get(path).Diagnostics

	if len(m.Warnings) == 0 && (!diagnostics || m.Output == "") {
		return
	}

	lock := d.logger.Locker()
	lock.Lock()
	defer lock.Unlock()

	d.logger.LogImportantMessage(runlog.None, "    "+Escape(d.testName(m))+" [PASS]")
	d.logOutput(runlog.None, m.Output)
	d.logWarnings(runlog.None, m.Warnings)
}

func (d *Default) handleTestSkipped(m *message.Message) {
	lock := d.logger.Locker()
	lock.Lock()
	defer lock.Unlock()

	d.logger.LogWarning(runlog.None, "    "+Escape(d.testName(m))+" [SKIP]")
	d.logger.LogImportantMessage(runlog.None, "      "+EscapeMultiLineIndent(m.Reason, "      "))
	d.logOutput(runlog.None, m.Output)
	d.logWarnings(runlog.None, m.Warnings)
}
