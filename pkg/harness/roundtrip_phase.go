package harness

import (
	"context"
	"log/slog"

	"github.com/Manu343726/disfuzz/pkg/reassembly"
)

// RoundTripper rebuilds a binary from its disassembly
type RoundTripper interface {
	RoundTrip(ctx context.Context, paths reassembly.Paths, corpusPath string) (*reassembly.RoundTrip, error)
}

// RoundTripPhase checks that disassembling, reassembling and disassembling
// again is a fixed point
type RoundTripPhase struct {
	Corpus   CorpusSource
	Pipeline RoundTripper
	Logger   *slog.Logger

	workspace *Workspace
}

func NewRoundTripPhase(workspace *Workspace, source CorpusSource, pipeline RoundTripper, logger *slog.Logger) *RoundTripPhase {
	protectSeed(workspace, source)
	return &RoundTripPhase{
		Corpus:    source,
		Pipeline:  pipeline,
		Logger:    orDefault(logger),
		workspace: workspace,
	}
}

func (p *RoundTripPhase) Name() string {
	return PhaseRoundTrip
}

func (p *RoundTripPhase) Workspace() *Workspace {
	return p.workspace
}

func (p *RoundTripPhase) paths() reassembly.Paths {
	return reassembly.Paths{
		D0:     p.workspace.Path(RoundTripD0),
		Source: p.workspace.Path(ReassemblySource),
		Object: p.workspace.Path(ReassemblyObject),
		ELF:    p.workspace.Path(ReassemblyELF),
		Binary: p.workspace.Path(ReassemblyBinary),
		D1:     p.workspace.Path(RoundTripD1),
	}
}

func (p *RoundTripPhase) Iterate(ctx context.Context, iteration int) error {
	_, binPath, err := writeCorpus(p.workspace, p.Corpus, iteration)
	if err != nil {
		return err
	}

	roundTrip, err := p.Pipeline.RoundTrip(ctx, p.paths(), binPath)
	if err != nil {
		return err
	}

	if !roundTrip.Equal() {
		line, d0, d1 := roundTrip.FirstDifference()
		p.Logger.Error("round trip diverged", "iteration", iteration, "line", line, "d0", d0, "d1", d1)
		return &RoundTripError{RoundTrip: roundTrip}
	}

	p.Logger.Debug("round trip", "iteration", iteration, "lines", roundTrip.Source.Lines, "rawWords", roundTrip.Source.RawWords)
	return nil
}
