package harness

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Manu343726/disfuzz/pkg/utils"
	"github.com/fatih/color"
	"golang.org/x/term"
)

// Reporter receives the progress and the verdicts of a run
type Reporter interface {
	Iteration(phase string, iteration, total int, err error)
	PhaseResult(result PhaseResult)
	Summary(summary Summary)
}

// NopReporter discards everything
type NopReporter struct{}

func (NopReporter) Iteration(string, int, int, error) {}
func (NopReporter) PhaseResult(PhaseResult)           {}
func (NopReporter) Summary(Summary)                   {}

// ConsoleReporter prints human readable progress lines
type ConsoleReporter struct {
	Out io.Writer

	// MaxDetails bounds the number of findings printed per failed phase
	MaxDetails int

	colored bool
	phase   *color.Color
	success *color.Color
	failure *color.Color
	skipped *color.Color
	dim     *color.Color
}

// NewConsoleReporter colors its output only when out is a terminal
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	colored := false
	if file, ok := out.(*os.File); ok {
		colored = term.IsTerminal(int(file.Fd())) && !color.NoColor
	}
	return newConsoleReporter(out, colored)
}

func newConsoleReporter(out io.Writer, colored bool) *ConsoleReporter {
	r := &ConsoleReporter{
		Out:        out,
		MaxDetails: 20,
		colored:    colored,
		phase:      color.New(color.FgCyan),
		success:    color.New(color.FgGreen, color.Bold),
		failure:    color.New(color.FgRed, color.Bold),
		skipped:    color.New(color.FgYellow),
		dim:        color.New(color.FgHiBlack),
	}

	for _, c := range []*color.Color{r.phase, r.success, r.failure, r.skipped, r.dim} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return r
}

func (r *ConsoleReporter) Iteration(phase string, iteration, total int, err error) {
	status := r.success.Sprint("ok")
	if err != nil {
		status = r.failure.Sprint("FAILED")
	}
	fmt.Fprintf(r.Out, "%s iteration %d/%d %s\n", r.phase.Sprintf("[%s]", phase), iteration, total, status)
}

func (r *ConsoleReporter) PhaseResult(result PhaseResult) {
	switch {
	case result.Skipped:
		fmt.Fprintf(r.Out, "%s %s test\n", r.skipped.Sprint("SKIPPED"), result.Phase)
		return
	case result.Passed:
		fmt.Fprintf(r.Out, "%s %s test (%d iterations, %v)\n", r.success.Sprint("SUCCESS"), result.Phase, result.Iterations, result.Duration.Round(time.Millisecond))
		return
	}

	fmt.Fprintf(r.Out, "%s %s test at iteration %d: %v\n", r.failure.Sprint("FAILURE"), result.Phase, result.FailedIteration, result.Err)

	details := errorDetails(result.Err)
	for i, detail := range details {
		if r.MaxDetails > 0 && i == r.MaxDetails {
			fmt.Fprintln(r.Out, r.dim.Sprintf("  ... %d more", len(details)-i))
			break
		}
		for _, line := range utils.Lines(detail) {
			fmt.Fprintf(r.Out, "  %s\n", r.highlight(line))
		}
	}

	if len(result.Artifacts) > 0 {
		fmt.Fprintln(r.Out, "  retained artifacts:")
		for _, artifact := range result.Artifacts {
			fmt.Fprintf(r.Out, "    %s\n", r.dim.Sprint(artifact))
		}
	}
}

func (r *ConsoleReporter) Summary(summary Summary) {
	if summary.Passed() {
		fmt.Fprintf(r.Out, "%s all tests passed\n", r.success.Sprint("SUCCESS"))
		return
	}

	failed := utils.Map(summary.Failed(), func(result PhaseResult) string { return result.Phase })
	fmt.Fprintf(r.Out, "%s %d test(s) failed: %s\n", r.failure.Sprint("FAILURE"), len(failed), strings.Join(failed, ", "))
}

func (r *ConsoleReporter) highlight(line string) string {
	if !r.colored {
		return line
	}
	return utils.HighlightAssembly(line)
}
