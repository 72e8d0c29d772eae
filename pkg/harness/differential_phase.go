package harness

import (
	"context"
	"log/slog"

	"github.com/Manu343726/disfuzz/pkg/compare"
	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
)

// ReferenceDisassembler is the disassembler the one under test is compared with
type ReferenceDisassembler interface {
	Disassemble(ctx context.Context, path string) (string, error)
}

// DifferentialPhase compares the canonical output of the disassembler under
// test with the reference one
type DifferentialPhase struct {
	Corpus       CorpusSource
	Disassembler Disassembler
	Reference    ReferenceDisassembler
	Comparator   *compare.Comparator
	Logger       *slog.Logger

	workspace *Workspace
}

func NewDifferentialPhase(workspace *Workspace, source CorpusSource, disassembler Disassembler, reference ReferenceDisassembler, logger *slog.Logger) *DifferentialPhase {
	protectSeed(workspace, source)
	return &DifferentialPhase{
		Corpus:       source,
		Disassembler: disassembler,
		Reference:    reference,
		Comparator:   compare.NewComparator(),
		Logger:       orDefault(logger),
		workspace:    workspace,
	}
}

func (p *DifferentialPhase) Name() string {
	return PhaseDifferential
}

func (p *DifferentialPhase) Workspace() *Workspace {
	return p.workspace
}

func (p *DifferentialPhase) Iterate(ctx context.Context, iteration int) error {
	data, binPath, err := writeCorpus(p.workspace, p.Corpus, iteration)
	if err != nil {
		return err
	}

	underTestText, err := p.Disassembler.Disassemble(ctx, binPath, toolchain.FormatBinary, toolchain.DisassembleOptions{NoDestinationComments: true})
	if err != nil {
		return err
	}
	if err := corpus.WriteFile(p.workspace.Path(UnderTestOutput), []byte(underTestText)); err != nil {
		return err
	}

	referenceText, err := p.Reference.Disassemble(ctx, binPath)
	if err != nil {
		return err
	}
	if err := corpus.WriteFile(p.workspace.Path(ReferenceOutput), []byte(referenceText)); err != nil {
		return err
	}

	comparator := *p.Comparator
	comparator.OnMismatch = func(m compare.Mismatch) {
		p.Logger.Error("mismatch",
			"iteration", iteration,
			"index", m.Index,
			"reference", m.Reference.String(),
			"underTest", m.UnderTest.String())
	}

	report, err := comparator.CompareText(compare.Context{CorpusSize: len(data)}, referenceText, underTestText)
	if err != nil {
		return err
	}
	for _, suppressed := range report.Suppressed {
		p.Logger.Debug("suppressed difference", "iteration", iteration, "rule", suppressed.Rule, "index", suppressed.Index)
	}
	if report.ReferenceLen != report.UnderTestLen {
		p.Logger.Debug("record counts differ", "iteration", iteration, "reference", report.ReferenceLen, "underTest", report.UnderTestLen)
	}

	if !report.Passed() {
		return &DifferentialError{Report: report}
	}
	return nil
}
