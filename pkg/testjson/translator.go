package testjson

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/dkoosis/runreport/pkg/message"
)

const (
	fallbackFailure       = "test failed"
	fallbackSubtest       = "one or more subtests failed"
	fallbackSkip          = "skipped"
	fallbackPackage       = "package failed without a failing test"
	packageFailureType    = "package failure"
	collectionNameSuffix  = " (tests)"
	collectionIDSeparator = "#tests"
)

// Emit receives each translated message. Returning false means the consumer
// wants no more input; see Translator.Process.
type Emit func(*message.Message) bool

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithIDPrefix prepends prefix to every lineage ID and assembly path, keeping
// streams that replay the same package apart when they share a bus.
func WithIDPrefix(prefix string) TranslatorOption {
	return func(t *Translator) { t.prefix = prefix }
}

// WithExecutionOptions attaches opts to every ExecutionStarting message.
func WithExecutionOptions(opts message.ExecutionOptions) TranslatorOption {
	return func(t *Translator) { t.execOpts = &opts }
}

// Translator turns go test -json events into lifecycle messages. A package
// becomes an assembly with a single collection; each top-level test opens a
// class; every test and subtest becomes a method, a case and a test.
//
// A Translator is not safe for concurrent use. Run one per input stream.
type Translator struct {
	emit     Emit
	prefix   string
	execOpts *message.ExecutionOptions

	packages map[string]*pkgState
	order    []string
	runs     map[string]int
	build    map[string][]string // build output by import path
	stopped  bool
}

type pkgState struct {
	name         string
	assemblyID   string
	collectionID string

	passed  int
	failed  int
	skipped int
	notRun  int

	tests   map[string]*testState
	runs    map[string]int    // starts per test name, for -count and reruns
	open    []string          // running tests, in start order
	classes map[string]string // open class IDs by top-level test name
	output  []string          // package-level output
}

type testState struct {
	name        string
	id          string
	classID     string
	output      []string
	childFailed bool
}

// NewTranslator returns a Translator that hands every message to emit.
func NewTranslator(emit Emit, opts ...TranslatorOption) *Translator {
	if emit == nil {
		panic(fmt.Errorf("%w: nil emit func", message.ErrContractViolation))
	}
	t := &Translator{
		emit:     emit,
		packages: make(map[string]*pkgState),
		runs:     make(map[string]int),
		build:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Process translates one event. It returns false once any emitted message was
// refused; the caller should stop feeding events but may still call Finish.
func (t *Translator) Process(e TestEvent) bool {
	switch {
	case e.Action == ActionBuildOutput:
		t.build[e.ImportPath] = append(t.build[e.ImportPath], e.Output)
	case e.Action == ActionBuildFail || e.Package == "":
	case e.Test == "":
		t.processPackage(e)
	default:
		t.processTest(t.pkg(e.Package), e)
	}
	return !t.stopped
}

// Finish closes every package the stream left open, reporting tests that
// never finished as not run.
func (t *Translator) Finish() {
	for _, name := range append([]string(nil), t.order...) {
		if p, ok := t.packages[name]; ok {
			t.finishPackage(p, 0, false, "")
		}
	}
}

func (t *Translator) send(m *message.Message) {
	if !t.emit(m) {
		t.stopped = true
	}
}

// pkg returns the state of an open package, starting it if needed.
func (t *Translator) pkg(name string) *pkgState {
	if p, ok := t.packages[name]; ok {
		return p
	}
	t.runs[name]++
	id := t.prefix + name
	if n := t.runs[name]; n > 1 {
		id = fmt.Sprintf("%s#%d", id, n)
	}
	p := &pkgState{
		name:         name,
		assemblyID:   id,
		collectionID: id + collectionIDSeparator,
		tests:        make(map[string]*testState),
		runs:         make(map[string]int),
		classes:      make(map[string]string),
	}
	t.packages[name] = p
	t.order = append(t.order, name)

	t.send(&message.Message{
		Kind:             message.ExecutionStarting,
		AssemblyName:     name,
		AssemblyPath:     p.path(t.prefix),
		ExecutionOptions: t.execOpts,
	})
	t.send(&message.Message{
		Kind:         message.AssemblyStarting,
		AssemblyID:   p.assemblyID,
		AssemblyName: name,
		AssemblyPath: p.path(t.prefix),
	})
	t.send(&message.Message{
		Kind:           message.CollectionStarting,
		AssemblyID:     p.assemblyID,
		CollectionID:   p.collectionID,
		CollectionName: name + collectionNameSuffix,
	})
	return p
}

func (t *Translator) processPackage(e TestEvent) {
	p := t.pkg(e.Package)
	switch e.Action {
	case ActionOutput:
		p.output = append(p.output, e.Output)
	case ActionPass, ActionSkip:
		t.finishPackage(p, e.Elapsed, false, "")
	case ActionFail:
		t.finishPackage(p, e.Elapsed, true, e.FailedBuild)
	}
}

func (t *Translator) processTest(p *pkgState, e TestEvent) {
	ts, ok := p.tests[e.Test]
	if !ok {
		ts = t.startTest(p, e.Test)
	}
	switch e.Action {
	case ActionOutput:
		ts.output = append(ts.output, e.Output)
	case ActionPass, ActionFail, ActionSkip:
		t.finishTest(p, ts, e.Action, e.Elapsed)
	}
}

// path is the assembly path reporters key execution options by.
func (p *pkgState) path(prefix string) string { return prefix + p.name }

func topLevel(name string) string {
	top, _, _ := strings.Cut(name, "/")
	return top
}

func (p *pkgState) lineage(kind message.Kind) *message.Message {
	return &message.Message{Kind: kind, AssemblyID: p.assemblyID, CollectionID: p.collectionID}
}

func (p *pkgState) testMessage(kind message.Kind, ts *testState) *message.Message {
	m := p.lineage(kind)
	m.ClassID = ts.classID
	m.MethodID = ts.id
	m.CaseID = ts.id
	m.TestID = ts.id
	return m
}

// runID names the nth start of a test within its package; repeats get a #n
// suffix so no ID is reused.
func (p *pkgState) runID(name string, n int) string {
	id := p.assemblyID + "/" + name
	if n > 1 {
		id = fmt.Sprintf("%s#%d", id, n)
	}
	return id
}

func (t *Translator) startTest(p *pkgState, name string) *testState {
	top := topLevel(name)
	p.runs[name]++
	ts := &testState{
		name:    name,
		id:      p.runID(name, p.runs[name]),
		classID: p.runID(top, p.runs[top]),
	}
	p.tests[name] = ts
	p.open = append(p.open, name)

	if _, ok := p.classes[top]; !ok {
		p.classes[top] = ts.classID
		m := p.lineage(message.ClassStarting)
		m.ClassID = ts.classID
		m.ClassName = path.Base(p.name)
		t.send(m)
	}

	m := p.testMessage(message.MethodStarting, ts)
	m.CaseID, m.TestID = "", ""
	m.MethodName = name
	t.send(m)

	m = p.testMessage(message.CaseStarting, ts)
	m.TestID = ""
	m.CaseName = name
	t.send(m)

	m = p.testMessage(message.TestStarting, ts)
	m.TestName = name
	t.send(m)
	return ts
}

// finishTest emits the result of ts and closes its lifetime. action is pass,
// fail or skip; anything else reports the test as not run.
func (t *Translator) finishTest(p *pkgState, ts *testState, action string, elapsed float64) {
	o := parseOutcome(ts.output)

	var result *message.Message
	switch action {
	case ActionPass:
		p.passed++
		result = p.testMessage(message.TestPassed, ts)
		result.Output = o.logOutput()
	case ActionFail:
		p.failed++
		fallback := fallbackFailure
		if ts.childFailed {
			fallback = fallbackSubtest
		}
		result = p.testMessage(message.TestFailed, ts)
		result.ErrorMetadata = o.failure(fallback)
		result.Output = o.otherOutput()
		t.markAncestorsFailed(p, ts.name)
	case ActionSkip:
		p.skipped++
		result = p.testMessage(message.TestSkipped, ts)
		result.Reason = o.reason(fallbackSkip)
		result.Output = o.otherOutput()
	default:
		p.notRun++
		result = p.testMessage(message.TestNotRun, ts)
	}
	result.TestName = ts.name
	result.ExecutionTime = elapsed
	t.send(result)

	finished := p.testMessage(message.TestFinished, ts)
	finished.TestName = ts.name
	finished.ExecutionTime = elapsed
	finished.Output = result.Output
	t.send(finished)

	m := p.testMessage(message.CaseFinished, ts)
	m.TestID = ""
	t.send(m)

	m = p.testMessage(message.MethodFinished, ts)
	m.CaseID, m.TestID = "", ""
	t.send(m)

	delete(p.tests, ts.name)
	p.removeOpen(ts.name)

	if top := topLevel(ts.name); top == ts.name {
		if _, ok := p.classes[top]; ok {
			t.finishClass(p, top, ts.classID)
		}
	}
}

func (t *Translator) finishClass(p *pkgState, top, classID string) {
	delete(p.classes, top)
	m := p.lineage(message.ClassFinished)
	m.ClassID = classID
	t.send(m)
}

func (t *Translator) markAncestorsFailed(p *pkgState, name string) {
	for {
		i := strings.LastIndex(name, "/")
		if i < 0 {
			return
		}
		name = name[:i]
		if parent, ok := p.tests[name]; ok {
			parent.childFailed = true
		}
	}
}

func (p *pkgState) removeOpen(name string) {
	for i, n := range p.open {
		if n == name {
			p.open = append(p.open[:i], p.open[i+1:]...)
			return
		}
	}
}

func (t *Translator) finishPackage(p *pkgState, elapsed float64, failed bool, failedBuild string) {
	// Innermost first, so subtests close before their parents.
	for len(p.open) > 0 {
		name := p.open[len(p.open)-1]
		t.finishTest(p, p.tests[name], "", 0)
	}
	tops := make([]string, 0, len(p.classes))
	for top := range p.classes {
		tops = append(tops, top)
	}
	slices.Sort(tops)
	for _, top := range tops {
		t.finishClass(p, top, p.classes[top])
	}

	output := p.output
	if failedBuild != "" {
		output = append(t.build[failedBuild], output...)
		delete(t.build, failedBuild)
	}
	pkgOutcome := parseOutcome(output)
	if failed && (p.failed == 0 || pkgOutcome.panicked) {
		m := p.lineage(message.AssemblyCleanupFailure)
		m.CollectionID = ""
		m.ErrorMetadata = packageFailure(pkgOutcome, output)
		t.send(m)
	}

	total := p.passed + p.failed + p.skipped + p.notRun

	m := p.lineage(message.CollectionFinished)
	m.ExecutionTime = elapsed
	m.TestsTotal, m.TestsFailed, m.TestsSkipped, m.TestsNotRun = total, p.failed, p.skipped, p.notRun
	t.send(m)

	m = p.lineage(message.AssemblyFinished)
	m.CollectionID = ""
	m.ExecutionTime = elapsed
	m.TestsTotal, m.TestsFailed, m.TestsSkipped, m.TestsNotRun = total, p.failed, p.skipped, p.notRun
	t.send(m)

	t.send(&message.Message{
		Kind:         message.ExecutionFinished,
		AssemblyName: p.name,
		AssemblyPath: p.path(t.prefix),
	})

	delete(t.packages, p.name)
	for i, n := range t.order {
		if n == p.name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// packageFailure describes a package that failed outside any test: a build
// error, a panic in TestMain or init, or a non-zero exit.
func packageFailure(o outcome, output []string) message.ErrorMetadata {
	if o.panicked {
		return o.failure(fallbackPackage)
	}
	var lines []string
	for _, raw := range output {
		line := strings.TrimRight(raw, "\r\n")
		if packageNoise(line) {
			continue
		}
		lines = append(lines, line)
	}
	msg := strings.TrimSpace(strings.Join(lines, "\n"))
	if msg == "" {
		msg = fallbackPackage
	}
	return message.ErrorMetadata{
		ExceptionTypes:         []string{packageFailureType},
		Messages:               []string{msg},
		ExceptionParentIndices: []int{-1},
	}
}

// packageNoise reports the summary lines go test prints for every package.
func packageNoise(line string) bool {
	switch {
	case line == "PASS", line == "FAIL", line == "":
		return true
	case strings.HasPrefix(line, "ok  \t"), strings.HasPrefix(line, "FAIL\t"), strings.HasPrefix(line, "?   \t"):
		return true
	case strings.HasPrefix(line, "coverage: "), strings.HasPrefix(line, "exit status "):
		return true
	}
	return false
}
