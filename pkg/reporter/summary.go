package reporter

import (
	"github.com/dkoosis/runreport/pkg/message"
	"github.com/dkoosis/runreport/pkg/runlog"
	"github.com/dkoosis/runreport/pkg/summary"
)

const unknownSummaryAssembly = "<unknown assembly>"

// WriteSummary writes the execution summary table to logger. Assemblies are
// named from the reporter's metadata cache.
func (d *Default) WriteSummary(logger runlog.Logger, summaries []message.AssemblySummary, elapsed float64) {
	logger.LogImportantMessage(runlog.None, "=== TEST EXECUTION SUMMARY ===")

	entries := make([]summary.Entry, 0, len(summaries))
	for _, s := range summaries {
		name := unknownSummaryAssembly
		if rec := d.cache.AssemblyByID(s.AssemblyID); rec != nil {
			if simple := rec.SimpleName(); simple != "" {
				name = simple
			}
		}
		entries = append(entries, summary.Entry{Name: name, Summary: s.Summary})
	}
	for _, line := range summary.Lines(entries, elapsed) {
		logger.LogImportantMessage(runlog.None, line)
	}
}
