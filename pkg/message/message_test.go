package message

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     Kind
		level    Level
		failure  bool
		cleanup  bool
		starting bool
		finished bool
	}{
		{AssemblyStarting, LevelAssembly, false, false, true, false},
		{AssemblyFinished, LevelAssembly, false, false, false, true},
		{AssemblyCleanupFailure, LevelAssembly, true, true, false, false},
		{CollectionCleanupFailure, LevelCollection, true, true, false, false},
		{ClassCleanupFailure, LevelClass, true, true, false, false},
		{MethodCleanupFailure, LevelMethod, true, true, false, false},
		{CaseCleanupFailure, LevelCase, true, true, false, false},
		{TestCleanupFailure, LevelTest, true, true, false, false},
		{TestFailed, LevelTest, true, false, false, false},
		{TestPassed, LevelTest, false, false, false, false},
		{TestSkipped, LevelTest, false, false, false, false},
		{TestFinished, LevelTest, false, false, false, true},
		{ErrorMessage, LevelNone, true, false, false, false},
		{ExecutionSummaries, LevelNone, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.level, tt.kind.Level())
			assert.Equal(t, tt.failure, tt.kind.IsFailure())
			assert.Equal(t, tt.cleanup, tt.kind.IsCleanupFailure())
			assert.Equal(t, tt.starting, tt.kind.IsStarting())
			assert.Equal(t, tt.finished, tt.kind.IsFinished())
		})
	}
}

func TestMessage_ID_UsesOwnLevel(t *testing.T) {
	t.Parallel()

	m := &Message{Kind: CaseCleanupFailure, AssemblyID: "a", CollectionID: "c", CaseID: "k"}
	assert.Equal(t, "k", m.ID())
	assert.Equal(t, "c", m.IDAt(LevelCollection))
	assert.Empty(t, m.IDAt(LevelNone))
}

func TestMessage_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		msg     *Message
		wantErr bool
	}{
		{"nil message", nil, true},
		{"unknown kind", &Message{Kind: "Bogus"}, true},
		{"assembly without id", &Message{Kind: AssemblyStarting}, true},
		{"assembly", &Message{Kind: AssemblyStarting, AssemblyID: "a"}, false},
		{"collection without assembly", &Message{Kind: CollectionStarting, CollectionID: "c"}, true},
		{"test without test id", &Message{Kind: TestPassed, AssemblyID: "a", CollectionID: "c"}, true},
		{"test", &Message{Kind: TestPassed, AssemblyID: "a", CollectionID: "c", TestID: "t"}, false},
		{"error message without ids", &Message{Kind: ErrorMessage}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.msg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrContractViolation))
				assert.Panics(t, func() { MustValidate(tt.msg) })
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMessage_AssemblyDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Named", (&Message{AssemblyName: "Named", AssemblyPath: "/x/y.dll"}).AssemblyDisplayName())
	assert.Equal(t, "test-assembly", (&Message{AssemblyPath: "/path/to/test-assembly.exe"}).AssemblyDisplayName())
}

func TestCombineMessages_Nested(t *testing.T) {
	t.Parallel()

	e := ErrorMetadata{
		ExceptionTypes:         []string{"Outer", "Inner", "Innermost"},
		Messages:               []string{"outer msg", "inner msg", "innermost msg"},
		ExceptionParentIndices: []int{-1, 0, 1},
	}

	assert.Equal(t, "Outer : outer msg\n---- Inner : inner msg\n-------- Innermost : innermost msg", CombineMessages(e))
}

func TestCombineMessages_Single(t *testing.T) {
	t.Parallel()

	e := ErrorMetadata{
		ExceptionTypes:         []string{"ExceptionType"},
		Messages:               []string{"This is my message \t\r\n"},
		ExceptionParentIndices: []int{-1},
	}
	assert.Equal(t, "ExceptionType : This is my message \t\r\n", CombineMessages(e))
	assert.Empty(t, CombineMessages(ErrorMetadata{}))
}

func TestCombineStackTraces(t *testing.T) {
	t.Parallel()

	single := ErrorMetadata{
		ExceptionTypes:         []string{"Outer", "Inner"},
		StackTraces:            []string{"outer trace", "inner trace"},
		ExceptionParentIndices: []int{-1, 0},
	}
	assert.Equal(t, "outer trace\n----- Inner Stack Trace -----\ninner trace", CombineStackTraces(single))

	aggregate := ErrorMetadata{
		ExceptionTypes:         []string{"Aggregate", "First", "Second"},
		StackTraces:            []string{"agg", "one", "two"},
		ExceptionParentIndices: []int{-1, 0, 0},
	}
	assert.Equal(t,
		"agg\n----- Inner Stack Trace #1 (First) -----\none\n----- Inner Stack Trace #2 (Second) -----\ntwo",
		CombineStackTraces(aggregate))

	assert.Empty(t, CombineStackTraces(ErrorMetadata{}))
}

func TestErrorMetadata_FirstExceptionType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(Unknown Exception Type)", ErrorMetadata{}.FirstExceptionType())
	assert.Equal(t, "X", ErrorMetadata{ExceptionTypes: []string{"X", "Y"}}.FirstExceptionType())
}

func TestSummary_Add(t *testing.T) {
	t.Parallel()

	var s Summary
	s.Add(Summary{Total: 10, Errors: 1, Failed: 2, Skipped: 3, NotRun: 4, Time: 1.5})
	s.Add(Summary{Total: 100, Time: 0.25})
	assert.Equal(t, Summary{Total: 110, Errors: 1, Failed: 2, Skipped: 3, NotRun: 4, Time: 1.75}, s)
}

func TestParseStream_DecodesLines(t *testing.T) {
	t.Parallel()

	input := strings.Join([]string{
		`{"kind":"AssemblyStarting","assemblyId":"a","assemblyPath":"/p/a.dll"}`,
		``,
		`{"kind":"TestFailed","assemblyId":"a","collectionId":"c","testId":"t","exceptionTypes":["E"],"messages":["m"],"exceptionParentIndices":[-1]}`,
	}, "\n") + "\n"

	msgs, err := ParseStream(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, AssemblyStarting, msgs[0].Kind)
	assert.Equal(t, "/p/a.dll", msgs[0].AssemblyPath)
	assert.Equal(t, []string{"E"}, msgs[1].ExceptionTypes)
	assert.Equal(t, []int{-1}, msgs[1].ExceptionParentIndices)
}

func TestParseStream_MalformedLineFailsFast(t *testing.T) {
	t.Parallel()

	input := `{"kind":"AssemblyStarting","assemblyId":"a"}` + "\nnot json\n"

	_, err := ParseStream(strings.NewReader(input))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseStream_MissingLineageFailsFast(t *testing.T) {
	t.Parallel()

	_, err := ParseStream(strings.NewReader(`{"kind":"TestStarting","assemblyId":"a"}` + "\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))
}

func TestDecode_StrictRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	line := []byte(`{"kind":"AssemblyStarting","assemblyId":"a","bogus":1}`)

	_, err := Decode(line)
	require.NoError(t, err, "lenient decoding ignores unknown fields")

	_, err = Decode(line, WithStrict(true))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrContractViolation))
}

func TestDecode_StrictAcceptsValidLine(t *testing.T) {
	t.Parallel()

	line := []byte(`{"kind":"ExecutionStarting","assemblyPath":"a.dll","executionOptions":{"diagnostics":true,"explicit":"On","culture":""}}`)

	m, err := Decode(line, WithStrict(true))
	require.NoError(t, err)
	require.NotNil(t, m.ExecutionOptions)
	assert.True(t, m.ExecutionOptions.Diagnostics)
	require.NotNil(t, m.ExecutionOptions.Culture)
	assert.Empty(t, *m.ExecutionOptions.Culture)
}

func TestEncode_RoundTripsThroughDecode(t *testing.T) {
	t.Parallel()

	in := &Message{Kind: TestSkipped, AssemblyID: "a", CollectionID: "c", TestID: "t", Reason: "because"}
	line, err := Encode(in)
	require.NoError(t, err)

	out, err := Decode(line, WithStrict(true))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStream_StopsWhenFuncReturnsFalse(t *testing.T) {
	t.Parallel()

	input := strings.Repeat(`{"kind":"AssemblyStarting","assemblyId":"a"}`+"\n", 5)

	var count int
	err := Stream(context.Background(), strings.NewReader(input), func(*Message) bool {
		count++
		return count < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStream_RespectsContextCancellation(t *testing.T) {
	t.Parallel()

	input := strings.Repeat(`{"kind":"AssemblyStarting","assemblyId":"a"}`+"\n", 3)
	ctx, cancel := context.WithCancel(context.Background())

	var count int
	err := Stream(ctx, strings.NewReader(input), func(*Message) bool {
		count++
		cancel()
		return true
	})
	if err != nil {
		assert.True(t, errors.Is(err, context.Canceled))
	}
	assert.GreaterOrEqual(t, count, 1)
}
