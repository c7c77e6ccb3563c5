package cli

import "errors"

// Exit codes for the runreport command.
const (
	// ExitSuccess indicates every test passed or was skipped.
	ExitSuccess = 0
	// ExitFailures indicates failures were reported or stop-on-fail tripped.
	ExitFailures = 1
	// ExitUsage indicates bad flags, configuration or input.
	ExitUsage = 2
)

// ExitError carries the exit code a command wants the process to end with.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return "exit status"
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// errFailures is returned when the run completed but reported failures. It
// carries no message of its own: the report already said what failed.
var errFailures = &ExitError{Code: ExitFailures}

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// exitCode maps an error returned by the command tree to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	// Anything cobra reports itself (unknown flag, bad args) is a usage error.
	return ExitUsage
}
