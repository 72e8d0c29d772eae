package corpus

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ExactLength(t *testing.T) {
	g := NewGenerator(DefaultSize)

	data, err := g.Generate()
	require.NoError(t, err)
	assert.Len(t, data, DefaultSize)
}

func TestGenerate_FreshEveryCall(t *testing.T) {
	g := NewGenerator(64)

	first, err := g.Generate()
	require.NoError(t, err)
	second, err := g.Generate()
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "two corpora must not share entropy")
}

func TestGenerate_DeterministicSource(t *testing.T) {
	g := &Generator{Size: 4, Source: bytes.NewReader([]byte{1, 2, 3, 4, 5})}

	data, err := g.Generate()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

func TestGenerate_EntropyFailure(t *testing.T) {
	g := &Generator{Size: 16, Source: failingReader{}}

	_, err := g.Generate()
	assert.ErrorIs(t, err, ErrEntropy)

	g = &Generator{Size: 16, Source: bytes.NewReader([]byte{1, 2, 3})}
	_, err = g.Generate()
	assert.ErrorIs(t, err, ErrEntropy, "short reads are entropy failures")
}

func TestGenerate_InvalidSize(t *testing.T) {
	_, err := NewGenerator(0).Generate()
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestEncodeGeneric(t *testing.T) {
	text, err := EncodeGeneric([]byte{0x0e, 0x94, 0xaa, 0x00})
	require.NoError(t, err)

	assert.Equal(t, "000000:940e\n000001:00aa\n", text)
}

func TestEncodeGeneric_OddLength(t *testing.T) {
	_, err := EncodeGeneric([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrOddLength)
}

func TestWriteFile_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.bin")

	require.NoError(t, WriteFile(path, []byte{1, 2, 3, 4}))
	require.NoError(t, WriteFile(path, []byte{9, 9}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, data)
}
