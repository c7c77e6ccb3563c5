package testjson

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/dkoosis/runreport/internal/ndjson"
	"github.com/dkoosis/runreport/pkg/message"
)

func streamAll(t *testing.T, input string) ([]TestEvent, int) {
	t.Helper()
	var events []TestEvent
	malformed, err := Stream(context.Background(), strings.NewReader(input), func(e TestEvent) bool {
		events = append(events, e)
		return true
	})
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	return events, malformed
}

func TestStream_DecodesBuildAndTestEvents(t *testing.T) {
	input := strings.Join([]string{
		`{"ImportPath":"example.com/bad [example.com/bad.test]","Action":"build-output","Output":"# example.com/bad\n"}`,
		`{"ImportPath":"example.com/bad [example.com/bad.test]","Action":"build-fail"}`,
		`{"Action":"fail","Package":"example.com/bad","Elapsed":0,"FailedBuild":"example.com/bad [example.com/bad.test]"}`,
		`{"Action":"output","Package":"example.com/ok","Test":"TestX/sub","Output":"=== RUN   TestX/sub\n"}`,
	}, "\n") + "\n"

	events, malformed := streamAll(t, input)

	if malformed != 0 {
		t.Errorf("got %d malformed, want 0", malformed)
	}
	want := []TestEvent{
		{Action: ActionBuildOutput, ImportPath: "example.com/bad [example.com/bad.test]", Output: "# example.com/bad\n"},
		{Action: ActionBuildFail, ImportPath: "example.com/bad [example.com/bad.test]"},
		{Action: ActionFail, Package: "example.com/bad", FailedBuild: "example.com/bad [example.com/bad.test]"},
		{Action: ActionOutput, Package: "example.com/ok", Test: "TestX/sub", Output: "=== RUN   TestX/sub\n"},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestStream_CountsCompilerChatter(t *testing.T) {
	// go vet and cgo warnings land on stdout between the JSON events.
	input := strings.Join([]string{
		`# example.com/pkg`,
		`{"Action":"start","Package":"example.com/pkg"}`,
		`./x.go:3:2: declared and not used: y`,
		``,
		`{"Action":"pass","Package":"example.com/pkg","Elapsed":0.1}`,
	}, "\n") + "\n"

	events, malformed := streamAll(t, input)

	if malformed != 2 {
		t.Errorf("got %d malformed, want 2", malformed)
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestStream_CarriesOutputOverOneMegabyte(t *testing.T) {
	dump := strings.Repeat("goroutine 1 [running]:\\n", 60_000)
	input := `{"Action":"output","Package":"p","Test":"T","Output":"` + dump + `"}` + "\n"

	events, _ := streamAll(t, input)

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if got, want := len(events[0].Output), 60_000*len("goroutine 1 [running]:\n"); got != want {
		t.Errorf("output length = %d, want %d", got, want)
	}
}

func TestStream_OversizedLineIsAnError(t *testing.T) {
	input := `{"Action":"start","Package":"p"}` + "\n" + strings.Repeat("x", ndjson.MaxLineSize+1) + "\n"

	var count int
	_, err := Stream(context.Background(), strings.NewReader(input), func(TestEvent) bool {
		count++
		return true
	})

	if !errors.Is(err, ndjson.ErrLineTooLong) {
		t.Fatalf("Stream() error = %v, want ErrLineTooLong", err)
	}
	if count != 1 {
		t.Errorf("got %d events before the error, want 1", count)
	}
}

func TestStream_StopsOnceTranslatorIsRefused(t *testing.T) {
	input := strings.Join([]string{
		`{"Action":"run","Package":"p","Test":"TestA"}`,
		`{"Action":"fail","Package":"p","Test":"TestA"}`,
		`{"Action":"run","Package":"p","Test":"TestB"}`,
		`{"Action":"pass","Package":"p","Test":"TestB"}`,
	}, "\n") + "\n"

	var started []string
	tr := NewTranslator(func(m *message.Message) bool {
		if m.Kind == message.TestStarting {
			started = append(started, m.TestName)
		}
		return m.Kind != message.TestFailed
	})

	if _, err := Stream(context.Background(), strings.NewReader(input), tr.Process); err != nil {
		t.Fatalf("Stream() error: %v", err)
	}
	if diff := cmp.Diff([]string{"TestA"}, started); diff != "" {
		t.Errorf("started tests (-want +got):\n%s", diff)
	}
}

func TestStream_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var count int
	_, err := Stream(ctx, strings.NewReader(strings.Repeat(`{"Action":"run","Package":"p","Test":"T"}`+"\n", 3)), func(TestEvent) bool {
		count++
		cancel()
		return true
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		t.Fatalf("Stream() error = %v, want nil or context.Canceled", err)
	}
	if count == 0 {
		t.Error("no event delivered before cancel")
	}
}

func TestTestEvent_Terminal(t *testing.T) {
	for action, want := range map[string]bool{
		ActionPass: true, ActionFail: true, ActionSkip: true,
		ActionRun: false, ActionOutput: false, ActionStart: false,
	} {
		if got := (TestEvent{Action: action}).Terminal(); got != want {
			t.Errorf("Terminal(%q) = %v, want %v", action, got, want)
		}
	}
}
