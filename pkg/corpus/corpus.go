// Package corpus produces the random byte buffers fed to the disassemblers and
// their in-process container encodings.
package corpus

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

// DefaultSize is large enough to cover the whole opcode space several times per
// corpus and to end, most of the time, with a truncated 32-bit instruction.
const DefaultSize = 16384

var (
	ErrEntropy     = errors.New("entropy source unavailable")
	ErrOddLength   = errors.New("corpus length is not a whole number of words")
	ErrInvalidSize = errors.New("invalid corpus size")
)

// Generator produces fresh corpora of a fixed size
type Generator struct {
	Size   int
	Source io.Reader
}

// NewGenerator returns a generator backed by the system CSPRNG
func NewGenerator(size int) *Generator {
	return &Generator{
		Size:   size,
		Source: rand.Reader,
	}
}

// Generate returns exactly Size freshly read bytes
func (g *Generator) Generate() ([]byte, error) {
	if g.Size <= 0 {
		return nil, utils.MakeError(ErrInvalidSize, "%d bytes", g.Size)
	}

	source := g.Source
	if source == nil {
		source = rand.Reader
	}

	data := make([]byte, g.Size)
	if _, err := io.ReadFull(source, data); err != nil {
		return nil, utils.MakeError(ErrEntropy, "reading %d bytes: %v", g.Size, err)
	}

	return data, nil
}

// EncodeGeneric renders data as an Atmel Generic image: one line per 16-bit
// word, 24-bit word address, high byte first
func EncodeGeneric(data []byte) (string, error) {
	if len(data)%2 != 0 {
		return "", utils.MakeError(ErrOddLength, "%d bytes", len(data))
	}

	var builder strings.Builder
	builder.Grow(len(data) / 2 * len("000000:0000\n"))

	for i := 0; i < len(data)/2; i++ {
		fmt.Fprintf(&builder, "%06x:%02x%02x\n", i, data[2*i+1], data[2*i])
	}

	return builder.String(), nil
}

// WriteFile writes data to path, replacing any previous content
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
