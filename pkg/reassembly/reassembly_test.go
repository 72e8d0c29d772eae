package reassembly

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const d0 = `   0:	00 55 94 0c	jmp	0x0055
   4:	cf ff	rjmp	.-2
   6:	c0 01	rjmp	.+4
   8:	bf 8f	out	$3f, R24
   a:	91 00 00 28	lds	R16, 0x0028
   e:	a0 08	lds	R16, 0x28
  10:	f3 f1	breq	.-4
  12:	d0 7f	rcall	.+254
  14:	94 0e	.dw	0x940e
  16:	ab	.db	0xab
`

func TestSynthesize(t *testing.T) {
	source, err := Synthesize(d0, Options{Arch: "avrxmega6"})
	require.NoError(t, err)

	assert.Equal(t, 10, source.Lines)
	assert.Equal(t, 1, source.RawWords)
	assert.Equal(t, 2, source.Labels)

	assert.True(t, strings.HasPrefix(source.Text, "; reassembled by disfuzz for avrxmega6\n"))
	assert.Contains(t, source.Text, "\t.text\n")
	for _, expected := range []string{
		"A_0000:\n\tjmp\t0xaa\n",
		"A_0004:\n\trjmp\tA_0004\n",
		"A_0006:\n\trjmp\t.+6\n",
		"A_0008:\n\tout\t0x3f, R24\n",
		"A_000a:\n\tlds\tR16, 0x0028\n",
		"A_000e:\n\t.word\t0xa008\n",
		"A_0010:\n\tbreq\tA_000e\n",
		"A_0012:\n\trcall\t.+256\n",
		"A_0014:\n\t.word\t0x940e\n",
		"A_0016:\n\t.byte\t0xab\n",
	} {
		assert.Contains(t, source.Text, expected)
	}
	assert.NotContains(t, source.Text, "94 0c", "opcode bytes must be dropped")
}

func TestSynthesize_AbsoluteTargetLabels(t *testing.T) {
	source, err := Synthesize("   0:\t94 0c 00 02\tjmp\t0x0002\n   4:\t00 00\tnop\t\n", Options{})
	require.NoError(t, err)

	assert.Contains(t, source.Text, "A_0000:\n\tjmp\tA_0004\n")
	assert.Contains(t, source.Text, "A_0004:\n\tnop\n")
	assert.Contains(t, source.Text, "for "+toolchain.DefaultArch)
}

func TestSynthesize_CustomLabelPrefix(t *testing.T) {
	source, err := Synthesize("   0:\tcf ff\trjmp\t.-2\n", Options{LabelPrefix: "L"})
	require.NoError(t, err)
	assert.Contains(t, source.Text, "L0000:\n\trjmp\tL0000\n")
}

func TestSynthesize_Empty(t *testing.T) {
	_, err := Synthesize("vavrdisasm: no input\n", Options{})
	assert.ErrorIs(t, err, ErrReassembly)
}

type fakeDisassembler struct {
	outputs map[string]string
	calls   []toolchain.DisassembleOptions
}

func (f *fakeDisassembler) Disassemble(_ context.Context, path string, format toolchain.InputFormat, opts toolchain.DisassembleOptions) (string, error) {
	if format != toolchain.FormatBinary {
		return "", errors.New("unexpected format")
	}
	f.calls = append(f.calls, opts)
	return f.outputs[path], nil
}

type fakeBuild struct {
	err   error
	steps []string
}

func (f *fakeBuild) Assemble(_ context.Context, srcPath, objPath string) error {
	f.steps = append(f.steps, "as "+filepath.Base(srcPath)+" "+filepath.Base(objPath))
	return f.err
}

func (f *fakeBuild) Link(_ context.Context, objPath, elfPath string) error {
	f.steps = append(f.steps, "ld "+filepath.Base(objPath)+" "+filepath.Base(elfPath))
	return nil
}

func (f *fakeBuild) Extract(_ context.Context, elfPath, binPath string) error {
	f.steps = append(f.steps, "objcopy "+filepath.Base(elfPath)+" "+filepath.Base(binPath))
	return nil
}

func paths(dir string) Paths {
	return Paths{
		D0:     filepath.Join(dir, "d0.txt"),
		Source: filepath.Join(dir, "reassembly.s"),
		Object: filepath.Join(dir, "reassembly.o"),
		ELF:    filepath.Join(dir, "reassembly.elf"),
		Binary: filepath.Join(dir, "reassembly.bin"),
		D1:     filepath.Join(dir, "d1.txt"),
	}
}

func newPipeline(disassembler *fakeDisassembler, build *fakeBuild) *Pipeline {
	return &Pipeline{
		Disassembler: disassembler,
		Assembler:    build,
		Linker:       build,
		Converter:    build,
	}
}

func TestPipeline_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := paths(dir)
	corpusPath := filepath.Join(dir, "corpus.bin")

	disassembler := &fakeDisassembler{outputs: map[string]string{
		corpusPath: d0,
		p.Binary:   d0,
	}}
	build := &fakeBuild{}

	roundTrip, err := newPipeline(disassembler, build).RoundTrip(context.Background(), p, corpusPath)
	require.NoError(t, err)

	assert.True(t, roundTrip.Equal())
	assert.Empty(t, roundTrip.Diff())
	line, _, _ := roundTrip.FirstDifference()
	assert.Zero(t, line)

	assert.Equal(t, []string{
		"as reassembly.s reassembly.o",
		"ld reassembly.o reassembly.elf",
		"objcopy reassembly.elf reassembly.bin",
	}, build.steps)
	for _, opts := range disassembler.calls {
		assert.True(t, opts.NoDestinationComments)
	}

	written, err := os.ReadFile(p.Source)
	require.NoError(t, err)
	assert.Equal(t, roundTrip.Source.Text, string(written))
	written, err = os.ReadFile(p.D1)
	require.NoError(t, err)
	assert.Equal(t, d0, string(written))
}

func TestPipeline_Divergence(t *testing.T) {
	dir := t.TempDir()
	p := paths(dir)
	corpusPath := filepath.Join(dir, "corpus.bin")

	rebuilt := strings.Replace(d0, "lds\tR16, 0x28", ".dw\t0xa008", 1)
	disassembler := &fakeDisassembler{outputs: map[string]string{
		corpusPath: d0,
		p.Binary:   rebuilt,
	}}

	roundTrip, err := newPipeline(disassembler, &fakeBuild{}).RoundTrip(context.Background(), p, corpusPath)
	require.NoError(t, err)

	assert.False(t, roundTrip.Equal())
	assert.Contains(t, roundTrip.Diff(), "lds")

	line, left, right := roundTrip.FirstDifference()
	assert.Equal(t, 6, line)
	assert.Contains(t, left, "lds")
	assert.Contains(t, right, ".dw")
}

func TestPipeline_AssemblerFailure(t *testing.T) {
	dir := t.TempDir()
	p := paths(dir)
	corpusPath := filepath.Join(dir, "corpus.bin")

	disassembler := &fakeDisassembler{outputs: map[string]string{corpusPath: d0}}
	build := &fakeBuild{err: toolchain.ErrToolFailed}

	_, err := newPipeline(disassembler, build).RoundTrip(context.Background(), p, corpusPath)

	assert.ErrorIs(t, err, ErrReassembly)
	assert.ErrorIs(t, err, toolchain.ErrToolFailed)
	assert.Len(t, build.steps, 1, "nothing runs after a failed step")
	assert.FileExists(t, p.Source, "the source is kept for diagnosis")
}
