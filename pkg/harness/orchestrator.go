package harness

import (
	"context"
	"log/slog"
	"slices"
	"time"
)

// PhaseResult is the outcome of all iterations of one phase
type PhaseResult struct {
	Phase   string
	Passed  bool
	Skipped bool

	// Iterations is the number of iterations that ran, including the failed one
	Iterations int

	// FailedIteration is the 1-based failed iteration, zero if none failed
	FailedIteration int

	Err error

	// Artifacts are the retained files of the failed iteration
	Artifacts []string

	Duration time.Duration
}

// Summary aggregates the results of every phase of a run
type Summary struct {
	Results []PhaseResult
}

// Passed reports whether every phase passed. Skipped phases do not count.
func (s Summary) Passed() bool {
	for _, result := range s.Results {
		if !result.Skipped && !result.Passed {
			return false
		}
	}
	return true
}

// Failed returns the results of the failed phases
func (s Summary) Failed() []PhaseResult {
	var failed []PhaseResult
	for _, result := range s.Results {
		if !result.Skipped && !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// Orchestrator runs phases in order, each for a number of iterations, on
// fresh corpora
type Orchestrator struct {
	Phases     []Phase
	Iterations int

	// Selection names the phases to run, all of them when empty
	Selection []string

	Reporter Reporter
	Logger   *slog.Logger
}

func (o *Orchestrator) selected(name string) bool {
	return len(o.Selection) == 0 || slices.Contains(o.Selection, name)
}

// Run executes every selected phase. A failing phase stops at its first
// failed iteration, the remaining phases still run.
func (o *Orchestrator) Run(ctx context.Context) Summary {
	var summary Summary

	for _, phase := range o.Phases {
		var result PhaseResult
		if o.selected(phase.Name()) {
			result = o.runPhase(ctx, phase)
		} else {
			result = PhaseResult{Phase: phase.Name(), Passed: true, Skipped: true}
		}

		o.reporter().PhaseResult(result)
		summary.Results = append(summary.Results, result)
	}

	o.reporter().Summary(summary)
	return summary
}

func (o *Orchestrator) runPhase(ctx context.Context, phase Phase) PhaseResult {
	logger := o.logger().With("phase", phase.Name())
	workspace := phase.Workspace()
	result := PhaseResult{Phase: phase.Name()}
	start := time.Now()

	logger.Info("starting phase", "iterations", o.Iterations, "workspace", workspace.Dir)

	if err := workspace.Reset(); err != nil {
		logger.Warn("removing stale artifacts", "error", err)
	}

	for iteration := 1; iteration <= o.Iterations; iteration++ {
		result.Iterations = iteration

		err := ctx.Err()
		if err == nil {
			err = phase.Iterate(ctx, iteration)
		}
		o.reporter().Iteration(phase.Name(), iteration, o.Iterations, err)

		if err != nil {
			result.FailedIteration = iteration
			result.Err = err
			result.Artifacts = o.retain(logger, workspace, result)
			result.Duration = time.Since(start)

			logger.Error("phase failed", "iteration", iteration, "error", err, "artifacts", len(result.Artifacts))
			return result
		}

		if err := workspace.Clean(); err != nil {
			logger.Warn("cleaning artifacts", "iteration", iteration, "error", err)
		}
	}

	result.Passed = true
	result.Duration = time.Since(start)
	logger.Info("phase passed", "iterations", result.Iterations, "duration", result.Duration)

	return result
}

// retain keeps the artifacts of a failed iteration and writes the failure manifest
func (o *Orchestrator) retain(logger *slog.Logger, workspace *Workspace, result PhaseResult) []string {
	manifestPath := workspace.Path(FailureManifest)
	artifacts := workspace.Retain()

	if err := WriteManifest(manifestPath, NewManifest(result, artifacts)); err != nil {
		logger.Warn("writing failure manifest", "error", err)
		return artifacts
	}

	return workspace.Retain()
}

func (o *Orchestrator) reporter() Reporter {
	if o.Reporter != nil {
		return o.Reporter
	}
	return NopReporter{}
}

func (o *Orchestrator) logger() *slog.Logger {
	return orDefault(o.Logger)
}
