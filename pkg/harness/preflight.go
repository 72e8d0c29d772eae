package harness

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/reassembly"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
)

// Preflight resolves the toolchain before any phase runs and logs the tool
// versions. A missing tool aborts the run.
func Preflight(ctx context.Context, config *toolchain.Config, logger *slog.Logger) (*toolchain.Toolchain, error) {
	logger = orDefault(logger)

	tc, err := toolchain.Discover(config, logger)
	if err != nil {
		return nil, fmt.Errorf("preflight: %w", err)
	}

	for _, version := range tc.Versions(ctx) {
		if version.Err != nil {
			logger.Debug("tool version unavailable", "tool", version.Name, "path", version.Path, "error", version.Err)
			continue
		}
		logger.Debug("tool", "tool", version.Name, "path", version.Path, "version", version.Version)
	}

	return tc, nil
}

// Options configures NewOrchestrator
type Options struct {
	WorkDir    string
	Iterations int
	CorpusSize int
	Phases     []string

	// Formats checked by the format phase, every format when empty
	Formats []toolchain.InputFormat

	// Seed, if set, replaces random corpora with a fixed one
	Seed *SeedCorpus
}

// NewOrchestrator wires the three phases to a discovered toolchain. Every
// phase gets its own subdirectory of the work directory.
func NewOrchestrator(tc *toolchain.Toolchain, options Options, reporter Reporter, logger *slog.Logger) (*Orchestrator, error) {
	logger = orDefault(logger)

	root, err := NewWorkspace(options.WorkDir)
	if err != nil {
		return nil, err
	}

	var source CorpusSource = &RandomCorpus{Generator: corpus.NewGenerator(options.CorpusSize)}
	iterations := options.Iterations
	if options.Seed != nil {
		source = options.Seed
		iterations = 1
	}

	workspaces := make(map[string]*Workspace, len(PhaseNames))
	for _, name := range PhaseNames {
		if workspaces[name], err = root.Sub(name); err != nil {
			return nil, err
		}
	}

	formatPhase := NewFormatPhase(workspaces[PhaseFormat], source, tc.Converter(), tc.Disassembler(), logger)
	if len(options.Formats) > 0 {
		formatPhase.Formats = options.Formats
	}

	phases := []Phase{
		formatPhase,
		NewDifferentialPhase(workspaces[PhaseDifferential], source, tc.Disassembler(), tc.Reference(), logger),
		NewRoundTripPhase(workspaces[PhaseRoundTrip], source, reassembly.NewPipeline(tc, logger), logger),
	}

	return &Orchestrator{
		Phases:     phases,
		Iterations: iterations,
		Selection:  options.Phases,
		Reporter:   reporter,
		Logger:     logger,
	}, nil
}
