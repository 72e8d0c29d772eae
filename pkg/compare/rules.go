// Package compare matches the canonical outputs of two disassemblers record by
// record, tolerating the known, documented differences between them.
package compare

import (
	"bytes"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/disasm"
)

// Context carries the properties of the corpus the rules depend on
type Context struct {
	CorpusSize int
}

// LastInstructionStart is the address of the last complete 16-bit word
func (c Context) LastInstructionStart() uint32 {
	if c.CorpusSize < 2 {
		return 0
	}
	return uint32(c.CorpusSize - 2)
}

// EquivalenceRule declares a pair of unequal records equivalent
type EquivalenceRule struct {
	Name        string
	Description string
	Match       func(ctx Context, reference, underTest disasm.InstructionRecord) bool
}

// longOnlyMnemonics only exist as 32-bit instructions on the default architecture
var longOnlyMnemonics = map[string]bool{
	"call": true,
	"jmp":  true,
	"lds":  true,
	"sts":  true,
}

var truncationMarkers = []string{"out of bounds", "truncated", "????"}

func sameOpcode(a, b disasm.InstructionRecord) bool {
	return a.Address == b.Address && bytes.Equal(a.Opcode, b.Opcode)
}

func isPair(a, b disasm.InstructionRecord, first, second string) bool {
	return (a.Mnemonic == first && b.Mnemonic == second) || (a.Mnemonic == second && b.Mnemonic == first)
}

// IsTruncated reports whether the record is the rendering of an instruction
// cut short by the end of the input
func IsTruncated(record disasm.InstructionRecord) bool {
	text := strings.ToLower(record.Mnemonic + " " + record.Operands)
	for _, marker := range truncationMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return longOnlyMnemonics[record.Mnemonic] && record.Width() < 4
}

// StoreLoadDirectAlias accepts encodings that one tool reads as a
// displacement store/load and the other as a direct load/store
var StoreLoadDirectAlias = EquivalenceRule{
	Name:        "store-load-direct-alias",
	Description: "identical opcode decoded as std/lds or sts/ldd, in either orientation",
	Match: func(_ Context, reference, underTest disasm.InstructionRecord) bool {
		return sameOpcode(reference, underTest) &&
			(isPair(reference, underTest, "std", "lds") || isPair(reference, underTest, "sts", "ldd"))
	},
}

// SetRegisterAlias accepts "ser rX" against "ldi rX, 0xff"
var SetRegisterAlias = EquivalenceRule{
	Name:        "set-register-alias",
	Description: "identical opcode decoded as ser rX and ldi rX, 0xff, in either orientation",
	Match: func(_ Context, reference, underTest disasm.InstructionRecord) bool {
		if !sameOpcode(reference, underTest) || !isPair(reference, underTest, "ser", "ldi") {
			return false
		}

		ser, ldi := reference, underTest
		if ser.Mnemonic != "ser" {
			ser, ldi = ldi, ser
		}

		operands := disasm.SplitOperands(ldi.Operands)
		return len(operands) == 2 &&
			operands[0] == strings.TrimSpace(ser.Operands) &&
			operands[1] == "0xff"
	},
}

// TrailingTruncation accepts a truncated instruction on one side and raw data
// on the other, only at the last instruction start of the corpus
var TrailingTruncation = EquivalenceRule{
	Name:        "trailing-truncation",
	Description: "at the last instruction start, a truncated 32-bit instruction against raw .dw/.db data",
	Match: func(ctx Context, reference, underTest disasm.InstructionRecord) bool {
		last := ctx.LastInstructionStart()
		if reference.Address != last || underTest.Address != last {
			return false
		}

		return (IsTruncated(reference) && disasm.IsRawData(underTest.Mnemonic)) ||
			(IsTruncated(underTest) && disasm.IsRawData(reference.Mnemonic))
	},
}

// DefaultRules is the complete, ordered rule set
var DefaultRules = []EquivalenceRule{
	StoreLoadDirectAlias,
	SetRegisterAlias,
	TrailingTruncation,
}
