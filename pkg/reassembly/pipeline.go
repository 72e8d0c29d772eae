package reassembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/Manu343726/disfuzz/pkg/utils"
	"github.com/google/go-cmp/cmp"
)

// ErrReassembly reports a failure of the assemble, link or extract steps
var ErrReassembly = errors.New("reassembly failed")

type Disassembler interface {
	Disassemble(ctx context.Context, path string, format toolchain.InputFormat, opts toolchain.DisassembleOptions) (string, error)
}

type Assembler interface {
	Assemble(ctx context.Context, srcPath, objPath string) error
}

type Linker interface {
	Link(ctx context.Context, objPath, elfPath string) error
}

type Converter interface {
	Extract(ctx context.Context, elfPath, binPath string) error
}

// Paths names the files one round trip writes
type Paths struct {
	D0     string
	Source string
	Object string
	ELF    string
	Binary string
	D1     string
}

// Pipeline rebuilds a binary from its disassembly
type Pipeline struct {
	Disassembler Disassembler
	Assembler    Assembler
	Linker       Linker
	Converter    Converter
	Options      Options
	Logger       *slog.Logger
}

// RoundTrip holds both disassemblies of one round trip
type RoundTrip struct {
	D0     string
	D1     string
	Source *Source
}

// Equal reports whether both disassemblies are textually identical
func (r *RoundTrip) Equal() bool {
	return r.D0 == r.D1
}

// Diff renders a line diff between D0 and D1 (-d0 +d1)
func (r *RoundTrip) Diff() string {
	return cmp.Diff(utils.Lines(r.D0), utils.Lines(r.D1))
}

// FirstDifference returns the first differing line pair, 1-based, or 0 when
// the disassemblies are equal
func (r *RoundTrip) FirstDifference() (int, string, string) {
	d0, d1 := utils.Lines(r.D0), utils.Lines(r.D1)
	for i := range max(len(d0), len(d1)) {
		if i >= len(d0) || i >= len(d1) || d0[i] != d1[i] {
			return i + 1, lineAt(d0, i), lineAt(d1, i)
		}
	}
	return 0, "", ""
}

func lineAt(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

// RoundTrip disassembles the raw binary at corpusPath (D0), reassembles the
// result and disassembles the rebuilt binary (D1). Every intermediate file is
// written to paths.
func (p *Pipeline) RoundTrip(ctx context.Context, paths Paths, corpusPath string) (*RoundTrip, error) {
	logger := p.logger()
	noComments := toolchain.DisassembleOptions{NoDestinationComments: true}

	d0, err := p.Disassembler.Disassemble(ctx, corpusPath, toolchain.FormatBinary, noComments)
	if err != nil {
		return nil, err
	}
	if err := corpus.WriteFile(paths.D0, []byte(d0)); err != nil {
		return nil, err
	}

	source, err := Synthesize(d0, p.Options)
	if err != nil {
		return nil, err
	}
	if err := corpus.WriteFile(paths.Source, []byte(source.Text)); err != nil {
		return nil, err
	}
	logger.Debug("synthesized source", "path", paths.Source, "lines", source.Lines, "labels", source.Labels, "rawWords", source.RawWords)

	if err := p.Assembler.Assemble(ctx, paths.Source, paths.Object); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReassembly, err)
	}
	if err := p.Linker.Link(ctx, paths.Object, paths.ELF); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReassembly, err)
	}
	if err := p.Converter.Extract(ctx, paths.ELF, paths.Binary); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReassembly, err)
	}

	d1, err := p.Disassembler.Disassemble(ctx, paths.Binary, toolchain.FormatBinary, noComments)
	if err != nil {
		return nil, err
	}
	if err := corpus.WriteFile(paths.D1, []byte(d1)); err != nil {
		return nil, err
	}

	return &RoundTrip{D0: d0, D1: d1, Source: source}, nil
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// NewPipeline wires a pipeline to a discovered toolchain
func NewPipeline(tc *toolchain.Toolchain, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		Disassembler: tc.Disassembler(),
		Assembler:    tc.Assembler(),
		Linker:       tc.Linker(),
		Converter:    tc.Converter(),
		Options:      Options{Arch: tc.Arch(), LabelPrefix: DefaultLabelPrefix},
		Logger:       logger,
	}
}
