// Package cli implements the runreport command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dkoosis/runreport/internal/config"
	"github.com/dkoosis/runreport/internal/logging"
	"github.com/dkoosis/runreport/internal/version"
	"github.com/dkoosis/runreport/pkg/bus"
	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/reporter"
	"github.com/dkoosis/runreport/pkg/runlog"
	"github.com/dkoosis/runreport/pkg/summary"
	"github.com/dkoosis/runreport/pkg/teamcity"
)

type rootOptions struct {
	reporter   string
	theme      string
	noColor    bool
	stopOnFail bool
	strict     bool
	debug      bool
	rootFlowID string
}

// Run executes the command tree with args and returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	var exitErr *ExitError
	if err != nil && (!errors.As(err, &exitErr) || exitErr.Err != nil) {
		fmt.Fprintf(stderr, "runreport: %v\n", err)
	}
	return exitCode(err)
}

// NewRootCmd builds the runreport command.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "runreport [flags] [file ...]",
		Short: "Report test execution events as console or TeamCity output",
		Long: `runreport reads test lifecycle events and reports them as they arrive.

Input is either runreport message NDJSON or the output of go test -json; the
format is sniffed per input. Files are replayed concurrently into one report;
with no files, or "-", stdin is read.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, args, stdin, stdout, stderr)
		},
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate(version.String())

	f := cmd.Flags()
	f.StringVar(&opts.reporter, "reporter", "", "Reporter: default, teamcity, auto")
	f.StringVar(&opts.theme, "theme", "", "Console theme: default, orca, mono")
	f.BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	f.BoolVar(&opts.stopOnFail, "stop-on-fail", false, "Stop replaying input after the first failure")
	f.StringVar(&opts.rootFlowID, "root-flow-id", "", "Parent flow ID for TeamCity assembly flows")
	f.BoolVar(&opts.strict, "strict", false, "Validate message input against the wire schema")
	f.BoolVar(&opts.debug, "debug", false, "Write diagnostic logs to stderr")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of runreport",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.String())
		},
	}
}

func cliFlags(cmd *cobra.Command, opts *rootOptions) config.CliFlags {
	changed := cmd.Flags().Changed
	return config.CliFlags{
		Reporter:      opts.reporter,
		Theme:         opts.theme,
		NoColor:       opts.noColor,
		StopOnFail:    opts.stopOnFail,
		Strict:        opts.strict,
		Debug:         opts.debug,
		RootFlowID:    opts.rootFlowID,
		NoColorSet:    changed("no-color"),
		StopOnFailSet: changed("stop-on-fail"),
		StrictSet:     changed("strict"),
		DebugSet:      changed("debug"),
		RootFlowIDSet: changed("root-flow-id"),
	}
}

func runReport(cmd *cobra.Command, opts *rootOptions, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cfg, err := config.ResolveConfig(cliFlags(cmd, opts))
	if err != nil {
		return usageError(err)
	}
	log := logging.New(stderr, cfg.Debug)
	log.Debug("config resolved",
		slog.String("file", cfg.ConfigPath),
		slog.String("reporter", cfg.Reporter), slog.String("reporter_source", cfg.ReporterSource),
		slog.String("theme", cfg.Theme), slog.String("theme_source", cfg.ThemeSource),
		slog.Bool("no_color", cfg.NoColor), slog.String("no_color_source", cfg.NoColorSource),
		slog.Bool("stop_on_fail", cfg.StopOnFail), slog.String("stop_on_fail_source", cfg.StopOnFailSource),
		slog.Bool("strict", cfg.Strict), slog.String("strict_source", cfg.StrictSource))

	console := runlog.NewConsole(stdout,
		runlog.WithTheme(cfg.Theme),
		runlog.WithNoColor(cfg.NoColor || !isTTYWriter(stdout)))
	var failed atomic.Bool
	sink, collector := newSink(cfg, console, bus.SinkFunc(func(m *message.Message) bool {
		if m.Kind.IsFailure() {
			failed.Store(true)
		}
		return true
	}))
	b := bus.New(sink, cfg.StopOnFail)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	start := time.Now()
	replayErr := replayAll(ctx, b, inputsFrom(args, stdin), replayOptions{strict: cfg.Strict, log: logging.Subsystem(log, "replay")})

	b.Queue(&message.Message{
		Kind:      message.ExecutionSummaries,
		Summaries: collector.Summaries(),
		Elapsed:   time.Since(start).Seconds(),
	})
	if err := b.Close(); err != nil {
		log.Warn("closing reporter", slog.Any("error", err))
	}

	switch {
	case replayErr != nil:
		return usageError(replayErr)
	case b.Stopped():
		log.Debug("stopped on first failure")
		return errFailures
	case failed.Load(), collector.Failed():
		return errFailures
	}
	return nil
}

// newSink builds the reporter cfg selects and fans the bus out to it, to the
// summary collector and to any extra sinks.
func newSink(cfg *config.ResolvedConfig, logger runlog.Logger, extra ...bus.Sink) (bus.Sink, *summary.Collector) {
	var rep bus.Sink
	switch cfg.Reporter {
	case config.ReporterTeamCity:
		rep = teamcity.New(logger, teamcity.WithRootFlowID(cfg.RootFlowID))
	default:
		rep = reporter.NewDefault(logger)
	}
	collector := summary.NewCollector()
	return bus.Fanout(append([]bus.Sink{rep, collector}, extra...)...), collector
}

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
