// Package message defines the lifecycle events a test run emits and the
// payloads each event kind carries.
package message

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrContractViolation marks a malformed or misrouted message. It indicates a
// bug in whoever produced the message, not a runtime condition.
var ErrContractViolation = errors.New("message contract violation")

// Kind discriminates the payload carried by a Message.
type Kind string

const (
	AssemblyStarting       Kind = "AssemblyStarting"
	AssemblyFinished       Kind = "AssemblyFinished"
	AssemblyCleanupFailure Kind = "AssemblyCleanupFailure"

	CollectionStarting       Kind = "CollectionStarting"
	CollectionFinished       Kind = "CollectionFinished"
	CollectionCleanupFailure Kind = "CollectionCleanupFailure"

	ClassStarting       Kind = "ClassStarting"
	ClassFinished       Kind = "ClassFinished"
	ClassCleanupFailure Kind = "ClassCleanupFailure"

	MethodStarting       Kind = "MethodStarting"
	MethodFinished       Kind = "MethodFinished"
	MethodCleanupFailure Kind = "MethodCleanupFailure"

	CaseStarting       Kind = "CaseStarting"
	CaseFinished       Kind = "CaseFinished"
	CaseCleanupFailure Kind = "CaseCleanupFailure"

	TestStarting       Kind = "TestStarting"
	TestPassed         Kind = "TestPassed"
	TestFailed         Kind = "TestFailed"
	TestSkipped        Kind = "TestSkipped"
	TestNotRun         Kind = "TestNotRun"
	TestFinished       Kind = "TestFinished"
	TestCleanupFailure Kind = "TestCleanupFailure"

	ErrorMessage Kind = "ErrorMessage"

	// Runner-level kinds describe work around execution rather than a node
	// of the test hierarchy.
	DiscoveryStarting  Kind = "DiscoveryStarting"
	DiscoveryFinished  Kind = "DiscoveryFinished"
	ExecutionStarting  Kind = "ExecutionStarting"
	ExecutionFinished  Kind = "ExecutionFinished"
	ExecutionSummaries Kind = "ExecutionSummaries"
)

// Level is a tier of the test hierarchy.
type Level int

const (
	LevelNone Level = iota
	LevelAssembly
	LevelCollection
	LevelClass
	LevelMethod
	LevelCase
	LevelTest
)

func (l Level) String() string {
	switch l {
	case LevelAssembly:
		return "assembly"
	case LevelCollection:
		return "collection"
	case LevelClass:
		return "class"
	case LevelMethod:
		return "method"
	case LevelCase:
		return "case"
	case LevelTest:
		return "test"
	default:
		return "none"
	}
}

type kindInfo struct {
	level    Level
	starting bool
	finished bool
	failure  bool
}

var kinds = map[Kind]kindInfo{
	AssemblyStarting:       {level: LevelAssembly, starting: true},
	AssemblyFinished:       {level: LevelAssembly, finished: true},
	AssemblyCleanupFailure: {level: LevelAssembly, failure: true},

	CollectionStarting:       {level: LevelCollection, starting: true},
	CollectionFinished:       {level: LevelCollection, finished: true},
	CollectionCleanupFailure: {level: LevelCollection, failure: true},

	ClassStarting:       {level: LevelClass, starting: true},
	ClassFinished:       {level: LevelClass, finished: true},
	ClassCleanupFailure: {level: LevelClass, failure: true},

	MethodStarting:       {level: LevelMethod, starting: true},
	MethodFinished:       {level: LevelMethod, finished: true},
	MethodCleanupFailure: {level: LevelMethod, failure: true},

	CaseStarting:       {level: LevelCase, starting: true},
	CaseFinished:       {level: LevelCase, finished: true},
	CaseCleanupFailure: {level: LevelCase, failure: true},

	TestStarting:       {level: LevelTest, starting: true},
	TestPassed:         {level: LevelTest},
	TestFailed:         {level: LevelTest, failure: true},
	TestSkipped:        {level: LevelTest},
	TestNotRun:         {level: LevelTest},
	TestFinished:       {level: LevelTest, finished: true},
	TestCleanupFailure: {level: LevelTest, failure: true},

	ErrorMessage: {failure: true},

	DiscoveryStarting:  {},
	DiscoveryFinished:  {},
	ExecutionStarting:  {},
	ExecutionFinished:  {},
	ExecutionSummaries: {},
}

// Known reports whether k is a recognized kind.
func (k Kind) Known() bool {
	_, ok := kinds[k]
	return ok
}

// Level returns the hierarchy level whose ID the kind is about.
func (k Kind) Level() Level { return kinds[k].level }

// IsStarting reports whether k opens the lifetime of its entity.
func (k Kind) IsStarting() bool { return kinds[k].starting }

// IsFinished reports whether k closes the lifetime of its entity.
func (k Kind) IsFinished() bool { return kinds[k].finished }

// IsFailure reports whether k signals a failure: a failed test, any cleanup
// failure, or a generic error message.
func (k Kind) IsFailure() bool { return kinds[k].failure }

// IsCleanupFailure reports whether k is one of the per-level cleanup failures.
func (k Kind) IsCleanupFailure() bool {
	info := kinds[k]
	return info.failure && info.level != LevelNone && k != TestFailed
}

// ErrorMetadata describes one or more (possibly nested) exceptions.
// ExceptionParentIndices[i] is the index of exception i's parent, or -1.
type ErrorMetadata struct {
	ExceptionTypes         []string `json:"exceptionTypes,omitempty"`
	Messages               []string `json:"messages,omitempty"`
	StackTraces            []string `json:"stackTraces,omitempty"`
	ExceptionParentIndices []int    `json:"exceptionParentIndices,omitempty"`
}

// FirstExceptionType returns the outermost exception type, or a placeholder.
func (e ErrorMetadata) FirstExceptionType() string {
	if len(e.ExceptionTypes) == 0 || e.ExceptionTypes[0] == "" {
		return "(Unknown Exception Type)"
	}
	return e.ExceptionTypes[0]
}

// ExplicitOption controls how tests marked explicit are treated.
type ExplicitOption string

const (
	ExplicitOff  ExplicitOption = "Off"
	ExplicitOn   ExplicitOption = "On"
	ExplicitOnly ExplicitOption = "Only"
)

// ExecutionOptions is the per-assembly configuration recorded when an
// assembly begins executing.
type ExecutionOptions struct {
	DisableParallelization bool           `json:"disableParallelization,omitempty"`
	MaxParallelThreads     int            `json:"maxParallelThreads,omitempty"` // 0 = default, <0 = unlimited
	StopOnFail             bool           `json:"stopOnFail,omitempty"`
	Diagnostics            bool           `json:"diagnostics,omitempty"`
	Explicit               ExplicitOption `json:"explicit,omitempty"`
	Culture                *string        `json:"culture,omitempty"` // nil = not set, "" = invariant
}

// DiscoveryOptions is the configuration used while discovering an assembly.
type DiscoveryOptions struct {
	Diagnostics          bool   `json:"diagnostics,omitempty"`
	MethodDisplay        string `json:"methodDisplay,omitempty"`
	MethodDisplayOptions string `json:"methodDisplayOptions,omitempty"`
}

// Summary holds the execution counters for one assembly.
type Summary struct {
	Total   int     `json:"total"`
	Errors  int     `json:"errors"`
	Failed  int     `json:"failed"`
	Skipped int     `json:"skipped"`
	NotRun  int     `json:"notRun"`
	Time    float64 `json:"time"` // seconds
}

// Add accumulates other into s.
func (s *Summary) Add(other Summary) {
	s.Total += other.Total
	s.Errors += other.Errors
	s.Failed += other.Failed
	s.Skipped += other.Skipped
	s.NotRun += other.NotRun
	s.Time += other.Time
}

// AssemblySummary pairs a Summary with the assembly it describes.
type AssemblySummary struct {
	AssemblyID string  `json:"assemblyId"`
	Summary    Summary `json:"summary"`
}

// Message is a single lifecycle event. Kind selects which payload fields are
// meaningful; the lineage IDs identify the entity and all of its ancestors.
type Message struct {
	Kind Kind `json:"kind"`

	AssemblyID   string `json:"assemblyId,omitempty"`
	CollectionID string `json:"collectionId,omitempty"`
	ClassID      string `json:"classId,omitempty"`
	MethodID     string `json:"methodId,omitempty"`
	CaseID       string `json:"caseId,omitempty"`
	TestID       string `json:"testId,omitempty"`

	AssemblyName    string `json:"assemblyName,omitempty"`
	AssemblyPath    string `json:"assemblyPath,omitempty"`
	ConfigFilePath  string `json:"configFilePath,omitempty"`
	TargetFramework string `json:"targetFramework,omitempty"`
	CollectionName  string `json:"collectionName,omitempty"`
	ClassName       string `json:"className,omitempty"`
	MethodName      string `json:"methodName,omitempty"`
	CaseName        string `json:"caseName,omitempty"`
	SourceFile      string `json:"sourceFile,omitempty"`
	SourceLine      int    `json:"sourceLine,omitempty"`
	TestName        string `json:"testName,omitempty"`

	ExecutionTime float64  `json:"executionTime,omitempty"`
	Output        string   `json:"output,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	Reason        string   `json:"reason,omitempty"`

	ErrorMetadata

	TestsTotal   int `json:"testsTotal,omitempty"`
	TestsFailed  int `json:"testsFailed,omitempty"`
	TestsSkipped int `json:"testsSkipped,omitempty"`
	TestsNotRun  int `json:"testsNotRun,omitempty"`

	DiscoveryOptions *DiscoveryOptions `json:"discoveryOptions,omitempty"`
	ExecutionOptions *ExecutionOptions `json:"executionOptions,omitempty"`
	Seed             *int              `json:"seed,omitempty"`
	TestCasesToRun   int               `json:"testCasesToRun,omitempty"`
	Summaries        []AssemblySummary `json:"summaries,omitempty"`
	Elapsed          float64           `json:"elapsed,omitempty"` // wall-clock seconds
}

// ID returns the unique ID of the entity the message is about, which is the
// ID at the kind's level.
func (m *Message) ID() string {
	return m.IDAt(m.Kind.Level())
}

// IDAt returns the lineage ID for level l.
func (m *Message) IDAt(l Level) string {
	switch l {
	case LevelAssembly:
		return m.AssemblyID
	case LevelCollection:
		return m.CollectionID
	case LevelClass:
		return m.ClassID
	case LevelMethod:
		return m.MethodID
	case LevelCase:
		return m.CaseID
	case LevelTest:
		return m.TestID
	default:
		return ""
	}
}

// AssemblyDisplayName returns the name runner-level messages are shown under:
// the assembly name when present, else the file name of the path without its
// extension.
func (m *Message) AssemblyDisplayName() string {
	if m.AssemblyName != "" {
		return m.AssemblyName
	}
	base := filepath.Base(m.AssemblyPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Validate checks that the kind is known and that every lineage ID its level
// requires is present. Class and method IDs are optional below the collection
// level, matching frameworks that have no class or method concept.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: nil message", ErrContractViolation)
	}
	if !m.Kind.Known() {
		return fmt.Errorf("%w: unknown kind %q", ErrContractViolation, m.Kind)
	}
	level := m.Kind.Level()
	if level == LevelNone {
		return nil
	}
	required := []Level{LevelAssembly}
	if level >= LevelCollection {
		required = append(required, LevelCollection)
	}
	if level >= LevelClass {
		required = append(required, level)
	}
	for _, l := range required {
		if m.IDAt(l) == "" {
			return fmt.Errorf("%w: %s message missing %s ID", ErrContractViolation, m.Kind, l)
		}
	}
	return nil
}

// MustValidate panics with a wrapped ErrContractViolation when m is invalid.
func MustValidate(m *Message) {
	if err := m.Validate(); err != nil {
		panic(err)
	}
}
