package harness

import (
	"context"
	"log/slog"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
)

// Encoder converts a raw binary into another container format
type Encoder interface {
	Encode(ctx context.Context, binPath, outPath string, format toolchain.InputFormat) error
}

// FormatPhase checks that the disassembler produces the same text for the
// same corpus no matter which container format it reads
type FormatPhase struct {
	Corpus       CorpusSource
	Encoder      Encoder
	Disassembler Disassembler
	Formats      []toolchain.InputFormat
	Logger       *slog.Logger

	workspace *Workspace
}

func NewFormatPhase(workspace *Workspace, source CorpusSource, encoder Encoder, disassembler Disassembler, logger *slog.Logger) *FormatPhase {
	protectSeed(workspace, source)
	return &FormatPhase{
		Corpus:       source,
		Encoder:      encoder,
		Disassembler: disassembler,
		Formats:      toolchain.AllFormats,
		Logger:       orDefault(logger),
		workspace:    workspace,
	}
}

func (p *FormatPhase) Name() string {
	return PhaseFormat
}

func (p *FormatPhase) Workspace() *Workspace {
	return p.workspace
}

func (p *FormatPhase) Iterate(ctx context.Context, iteration int) error {
	_, binPath, err := writeCorpus(p.workspace, p.Corpus, iteration)
	if err != nil {
		return err
	}

	outputs := make(map[toolchain.InputFormat]string, len(p.Formats))
	for _, format := range p.Formats {
		path := binPath
		if format != toolchain.FormatBinary {
			path = p.workspace.Path(CorpusFile(format))
			if err := p.Encoder.Encode(ctx, binPath, path, format); err != nil {
				return err
			}
		}

		output, err := p.Disassembler.Disassemble(ctx, path, format, toolchain.DisassembleOptions{})
		if err != nil {
			return err
		}
		outputs[format] = output
	}

	baseline := outputs[toolchain.FormatBinary]
	var diverging []toolchain.InputFormat
	for _, format := range p.Formats {
		if outputs[format] != baseline {
			diverging = append(diverging, format)
		}
	}

	if len(diverging) == 0 {
		return nil
	}

	for _, format := range p.Formats {
		if err := corpus.WriteFile(p.workspace.Path(FormatOutputFile(format)), []byte(outputs[format])); err != nil {
			return err
		}
	}
	p.Logger.Error("disassembly depends on the input format", "iteration", iteration, "formats", diverging)

	return &FormatDivergenceError{Formats: diverging}
}
