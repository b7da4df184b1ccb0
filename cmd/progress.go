package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/cervical-sim/cervical-sim/sim/batch"
)

// progress prints a single updating status line when w is a terminal.
type progress struct {
	w       io.Writer
	enabled bool
	done    int
}

func newProgress(f *os.File) *progress {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return &progress{w: f, enabled: tty}
}

func (p *progress) year(year, years int) {
	if p.enabled {
		fmt.Fprintf(p.w, "\r---> Running model: year %d/%d", year, years)
	}
}

func (p *progress) task(total int) {
	p.done++
	if p.enabled {
		fmt.Fprintf(p.w, "\r---> Runs finished: %d/%d", p.done, total)
	}
}

func (p *progress) finish() {
	if p.enabled {
		fmt.Fprintln(p.w)
	}
}

// printSummary writes a human-readable summary of one run.
func printSummary(w io.Writer, res batch.Result) {
	s := res.Summary
	fmt.Fprintf(w, "=== Run %s ===\n", res.RunID)
	fmt.Fprintf(w, "Scenario:        %s (iteration %d, seed %d)\n", res.Scenario.Name(), res.Iteration, res.Seed)
	fmt.Fprintf(w, "Simulated:       %s agents for %d months (final age %d)\n", humanize.Comma(int64(s.Agents)), s.Months, s.Age)
	fmt.Fprintf(w, "Living:          %s\n", humanize.Comma(int64(s.Living)))
	fmt.Fprintf(w, "HIV positive:    %s\n", humanize.Comma(int64(s.HIVPositive)))
	fmt.Fprintf(w, "Cancer cases:    %s (%s detected, %s deaths)\n", humanize.Comma(int64(s.CancerCases)),
		humanize.Comma(int64(s.CancerDetected)), humanize.Comma(int64(s.CancerDeaths)))
	fmt.Fprintf(w, "Vaccinated:      %s\n", humanize.Comma(int64(s.Vaccinated)))
	if s.Events > 0 || s.StateChanges > 0 {
		fmt.Fprintf(w, "Records:         %s state changes, %s events\n", humanize.Comma(int64(s.StateChanges)), humanize.Comma(int64(s.Events)))
		fmt.Fprintf(w, "Total cost:      %s\n", humanize.CommafWithDigits(s.TotalCost, 2))
	}
	fmt.Fprintf(w, "Elapsed:         %s\n", res.Duration.Round(time.Millisecond))
}

// printBatchSummary writes one line per run and returns the number of failed runs.
func printBatchSummary(w io.Writer, results []batch.Result, elapsed time.Duration) int {
	sorted := make([]batch.Result, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Scenario.Name() != b.Scenario.Name() {
			return a.Scenario.Name() < b.Scenario.Name()
		}
		return a.Iteration < b.Iteration
	})

	failed := 0
	agentMonths := int64(0)
	fmt.Fprintln(w, "=== Batch ===")
	for _, r := range sorted {
		status := "ok"
		if r.Err != nil {
			failed++
			status = "FAILED: " + strings.SplitN(r.Err.Error(), "\n", 2)[0]
		}
		agentMonths += int64(r.Summary.Agents) * int64(r.Summary.Months)
		fmt.Fprintf(w, "%-20s iteration %-3d living %-8s cancers %-6s %s\n", r.Scenario.Name(), r.Iteration,
			humanize.Comma(int64(r.Summary.Living)), humanize.Comma(int64(r.Summary.CancerCases)), status)
	}
	fmt.Fprintf(w, "%d runs, %d failed, %s agent-months in %s\n", len(results), failed,
		humanize.Comma(agentMonths), elapsed.Round(time.Millisecond))
	return failed
}
