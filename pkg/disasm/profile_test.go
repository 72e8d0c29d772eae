package disasm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const objdumpListing = `
corpus.bin:     file format binary


Disassembly of section .data:

00000000 <.data>:
   0:	0c 94 55 00 	jmp	0xaa	;  0xaa
   4:	ff cf       	rjmp	.-2      	;  0x4
   6:	0f ef       	ldi	r16, 0xFF	; 255
   8:	8f bf       	out	0x3f, r24	; 63
   a:	1b 94       	des	1
   c:	00 00       	nop
  10:	0e 94 aa 00 	call	0x154	;  0x154
	...
  14:	0e 94       	.word	0x940e	; ????
`

const underTestListing = `   0:	00 55 94 0c	jmp	0x0055
   4:	cf ff      	rjmp	.-2
   6:	ef 0f      	ser	R16
   8:	bf 8f      	out	$3f, R24
   a:	94 1b      	des	0x1
   c:	00 00      	nop	
  10:	00 aa 94 0e	call	0x00aa
  14:	94 0e      	.dw	0x940e
`

func TestNormalize_Reference(t *testing.T) {
	output, err := ReferenceProfile.Normalize(objdumpListing)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0:\t00 55 94 0c\tjmp\t0xaa",
		"4:\tcf ff\trjmp\t.-2",
		"6:\tef 0f\tldi\tr16, 0xff",
		"8:\tbf 8f\tout\t0x3f, r24",
		"a:\t94 1b\tdes\t0x1",
		"c:\t00 00\tnop\t",
		"10:\t00 aa 94 0e\tcall\t0x154",
		"14:\t94 0e\t.dw\t0x940e",
	}, output.Lines())
}

func TestNormalize_UnderTest(t *testing.T) {
	output, err := UnderTestProfile.Normalize(underTestListing)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"0:\t00 55 94 0c\tjmp\t0xaa",
		"4:\tcf ff\trjmp\t.-2",
		"6:\tef 0f\tser\tr16",
		"8:\tbf 8f\tout\t0x3f, r24",
		"a:\t94 1b\tdes\t0x1",
		"c:\t00 00\tnop\t",
		"10:\t00 aa 94 0e\tcall\t0x154",
		"14:\t94 0e\t.dw\t0x940e",
	}, output.Lines())
}

func TestNormalize_WordTargetScenario(t *testing.T) {
	reference, err := ReferenceProfile.Normalize("00000000 <.data>:\n  10:\t0e 94 aa 00 \tcall\t0x154\t;  0x154\n")
	require.NoError(t, err)
	underTest, err := UnderTestProfile.Normalize("  10:\t00 aa 94 0e\tcall\t0x00aa\n")
	require.NoError(t, err)

	require.Len(t, reference, 1)
	require.Len(t, underTest, 1)

	expected := InstructionRecord{
		Address:  0x10,
		Opcode:   []byte{0x00, 0xaa, 0x94, 0x0e},
		Mnemonic: "call",
		Operands: "0x154",
	}
	assert.True(t, expected.Equal(reference[0]), "reference: %v", reference[0])
	assert.True(t, expected.Equal(underTest[0]), "under test: %v", underTest[0])
	assert.Equal(t, 4, underTest[0].Width())
}

func TestNormalize_MissingPreamble(t *testing.T) {
	_, err := ReferenceProfile.Normalize("avr-objdump: corpus.bin: file format not recognized\n")
	assert.ErrorIs(t, err, ErrPreambleNotFound)
}

func TestNormalize_DropsUnparseableLines(t *testing.T) {
	output, err := UnderTestProfile.Normalize("banner\tline\twith tabs\n   0:\t00 00\tnop\t\n")
	require.NoError(t, err)
	require.Len(t, output, 1)
	assert.Equal(t, "nop", output[0].Mnemonic)
}

func TestParseRecord(t *testing.T) {
	record, err := ParseRecord([]string{"3ffe:", "94 0e", ".dw", "0x940e"})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x3ffe), record.Address)
	assert.Equal(t, []byte{0x94, 0x0e}, record.Opcode)
	assert.Equal(t, "94 0e", record.OpcodeText())

	_, err = ParseRecord([]string{"zz:", "94 0e", ".dw", "0x940e"})
	assert.ErrorIs(t, err, ErrNotInstruction)
	_, err = ParseRecord([]string{"0:", "", "nop", ""})
	assert.ErrorIs(t, err, ErrNotInstruction)
	_, err = ParseRecord([]string{"0:", "00 00", "nop"})
	assert.ErrorIs(t, err, ErrNotInstruction)
}

func TestInstructionRecord_Equal(t *testing.T) {
	a := InstructionRecord{Address: 4, Opcode: []byte{0xcf, 0xff}, Mnemonic: "rjmp", Operands: ".-2"}
	b := InstructionRecord{Address: 4, Opcode: []byte{0xcf, 0xff}, Mnemonic: "rjmp", Operands: ".-2"}

	assert.True(t, a.Equal(b))

	b.Operands = ".+2"
	assert.False(t, a.Equal(b))
	b = a
	b.Opcode = []byte{0xcf}
	assert.False(t, a.Equal(b))
}

func TestOperands(t *testing.T) {
	assert.Equal(t, []string{"r16", "0xff"}, SplitOperands(" r16 ,0xff"))
	assert.Nil(t, SplitOperands("  "))
	assert.Equal(t, "r16, 0xff", JoinOperands([]string{"r16", "0xff"}))
}

func TestDescribe(t *testing.T) {
	description := ReferenceProfile.Describe()

	assert.True(t, strings.HasPrefix(description, "avr-objdump:"))
	assert.Contains(t, description, "skip-preamble")
	for _, rule := range ReferenceProfile.Rules {
		assert.Contains(t, description, rule.Name)
	}
	assert.NotContains(t, UnderTestProfile.Describe(), "skip-preamble")
}
