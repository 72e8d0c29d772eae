// Package harness runs the fuzzing phases against the disassembler under test
// and reports their outcome.
package harness

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/Manu343726/disfuzz/pkg/utils"
)

// Phase names
const (
	PhaseFormat       = "format"
	PhaseDifferential = "differential"
	PhaseRoundTrip    = "roundtrip"
)

// PhaseNames lists every phase in execution order
var PhaseNames = []string{PhaseFormat, PhaseDifferential, PhaseRoundTrip}

// Phase is one kind of test, run once per iteration on a fresh corpus
type Phase interface {
	Name() string

	// Iterate runs a single iteration. A nil error means the iteration passed.
	Iterate(ctx context.Context, iteration int) error

	// Workspace holds the artifacts of the current iteration
	Workspace() *Workspace
}

// Disassembler is the disassembler under test
type Disassembler interface {
	Disassemble(ctx context.Context, path string, format toolchain.InputFormat, opts toolchain.DisassembleOptions) (string, error)
}

// CorpusSource supplies the corpus of every iteration
type CorpusSource interface {
	Corpus(iteration int) ([]byte, error)
}

// RandomCorpus draws a fresh random corpus every iteration
type RandomCorpus struct {
	Generator *corpus.Generator
}

func (r *RandomCorpus) Corpus(int) ([]byte, error) {
	return r.Generator.Generate()
}

// SeedCorpus replays a fixed corpus, usually one retained by a failed run
type SeedCorpus struct {
	Data []byte

	// Path is the file the corpus was read from, empty if it was not read
	// from disk. Phases never write over or remove it.
	Path string
}

func (s *SeedCorpus) Corpus(int) ([]byte, error) {
	return s.Data, nil
}

// LoadSeed reads a corpus file to replay
func LoadSeed(path string) (*SeedCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed corpus: %w", err)
	}
	if len(data) == 0 {
		return nil, utils.MakeError(corpus.ErrInvalidSize, "seed corpus %s is empty", path)
	}
	if len(data)%2 != 0 {
		return nil, utils.MakeError(corpus.ErrOddLength, "seed corpus %s has %d bytes", path, len(data))
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &SeedCorpus{Data: data, Path: path}, nil
}

// protectSeed keeps a replayed seed file out of the artifacts a workspace
// cleans, in case it is the corpus file of that very workspace
func protectSeed(workspace *Workspace, source CorpusSource) {
	if seed, ok := source.(*SeedCorpus); ok && seed.Path != "" {
		workspace.Protect(seed.Path)
	}
}

// writeCorpus draws the iteration's corpus and stores it in the workspace
func writeCorpus(workspace *Workspace, source CorpusSource, iteration int) ([]byte, string, error) {
	data, err := source.Corpus(iteration)
	if err != nil {
		return nil, "", err
	}

	path := workspace.Path(CorpusBinary)
	if workspace.Protected(path) {
		return data, path, nil
	}
	if err := corpus.WriteFile(path, data); err != nil {
		return nil, "", err
	}

	return data, path, nil
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}
