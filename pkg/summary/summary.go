// Package summary renders the end-of-run table of per-assembly counters and
// tallies those counters from a message stream.
package summary

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dkoosis/runreport/pkg/message"
)

// Entry is one row of the summary table.
type Entry struct {
	Name    string
	Summary message.Summary
}

// Lines renders entries in collation order of their names, one line per assembly. When there is
// more than one entry a separator and a grand total row follow; the grand
// total ends with elapsed, the wall-clock duration of the run in seconds.
// Columns are padded to the width of the grand total.
func Lines(entries []Entry, elapsed float64) []string {
	if len(entries) == 0 {
		return nil
	}

	// Collators are not safe for concurrent use.
	col := collate.New(language.Und)
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	var all message.Summary
	longest := 0
	for _, e := range sorted {
		all.Add(e.Summary)
		if w := runewidth.StringWidth(e.Name); w > longest {
			longest = w
		}
	}

	allTotal := strconv.Itoa(all.Total)
	allErrors := strconv.Itoa(all.Errors)
	allFailed := strconv.Itoa(all.Failed)
	allSkipped := strconv.Itoa(all.Skipped)
	allNotRun := strconv.Itoa(all.NotRun)
	allTime := seconds(all.Time)

	lines := make([]string, 0, len(sorted)+2)
	for _, e := range sorted {
		name := runewidth.FillRight(e.Name, longest)
		s := e.Summary
		if s.Total == 0 {
			lines = append(lines, fmt.Sprintf("   %s  Total: %s", name, padLeft("0", allTotal)))
			continue
		}
		lines = append(lines, fmt.Sprintf(
			"   %s  Total: %s, Errors: %s, Failed: %s, Skipped: %s, Not Run: %s, Time: %s",
			name,
			padLeft(strconv.Itoa(s.Total), allTotal),
			padLeft(strconv.Itoa(s.Errors), allErrors),
			padLeft(strconv.Itoa(s.Failed), allFailed),
			padLeft(strconv.Itoa(s.Skipped), allSkipped),
			padLeft(strconv.Itoa(s.NotRun), allNotRun),
			padLeft(seconds(s.Time), allTime),
		))
	}

	if len(sorted) > 1 {
		lines = append(lines,
			fmt.Sprintf(
				"   %s         %s          %s          %s           %s           %s        %s",
				runewidth.FillRight(" ", longest),
				dashes(allTotal), dashes(allErrors), dashes(allFailed),
				dashes(allSkipped), dashes(allNotRun), dashes(allTime),
			),
			fmt.Sprintf(
				"   %s %s          %s          %s           %s           %s        %s (%s)",
				runewidth.FillLeft("GRAND TOTAL:", longest+8),
				allTotal, allErrors, allFailed, allSkipped, allNotRun, allTime,
				seconds(elapsed),
			),
		)
	}
	return lines
}

func seconds(v float64) string { return fmt.Sprintf("%.3fs", v) }

func padLeft(s, widest string) string {
	return runewidth.FillLeft(s, runewidth.StringWidth(widest))
}

func dashes(widest string) string {
	return strings.Repeat("-", max(1, runewidth.StringWidth(widest)))
}
