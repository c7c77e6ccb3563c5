// runreport reports test execution events as a console log or as TeamCity
// service messages.
//
// Usage:
//
//	go test -json ./... | runreport
//	runreport --reporter teamcity run1.ndjson run2.ndjson
//
// Accepts two input formats, sniffed per input:
//   - runreport message NDJSON (one lifecycle event per line)
//   - go test -json (translated into lifecycle events)
//
// Exit codes: 0 clean run, 1 failures reported, 2 usage or input error.
package main

import (
	"context"
	"os"

	"github.com/dkoosis/runreport/internal/cli"
)

func main() {
	os.Exit(cli.Run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
