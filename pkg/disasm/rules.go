package disasm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

// Rule is one named transformation of a tokenized disassembly line. Apply
// never modifies its input and returns false to drop the line.
type Rule struct {
	Name        string
	Description string
	Apply       func(fields []string) ([]string, bool)
}

// wordAddressedControlTransfers render their target as a word address in the
// under-test output and as a byte address in objdump's
var wordAddressedControlTransfers = map[string]bool{
	"call": true,
	"jmp":  true,
}

// rawDataDirectives maps every raw data directive spelling to its canonical name
var rawDataDirectives = map[string]string{
	".dw":   ".dw",
	".word": ".dw",
	".db":   ".db",
	".byte": ".db",
}

// IsWordAddressedControlTransfer reports whether the mnemonic takes a 22-bit
// absolute word address
func IsWordAddressedControlTransfer(mnemonic string) bool {
	return wordAddressedControlTransfers[strings.ToLower(mnemonic)]
}

// IsRawData reports whether the mnemonic is a raw data directive in any spelling
func IsRawData(mnemonic string) bool {
	_, ok := rawDataDirectives[strings.ToLower(mnemonic)]
	return ok
}

func withField(fields []string, index int, value string) []string {
	result := make([]string, len(fields))
	copy(result, fields)
	result[index] = value
	return result
}

func hasInstructionFields(fields []string) bool {
	return len(fields) >= InstructionFields
}

// TrimAnnotations drops every field beyond address, opcode, mnemonic and operands
var TrimAnnotations = Rule{
	Name:        "trim-annotations",
	Description: "drop trailing comment fields beyond address, opcode, mnemonic and operands",
	Apply: func(fields []string) ([]string, bool) {
		if len(fields) <= InstructionFields {
			return fields, true
		}
		return append([]string(nil), fields[:InstructionFields]...), true
	},
}

// DropNonInstructions discards lines that cannot hold address, opcode and mnemonic
var DropNonInstructions = Rule{
	Name:        "drop-non-instructions",
	Description: "discard lines with fewer than three fields",
	Apply: func(fields []string) ([]string, bool) {
		return fields, len(fields) >= 3
	},
}

// PadOperands gives zero-operand instructions an explicit empty operand field
var PadOperands = Rule{
	Name:        "pad-operands",
	Description: "insert an empty operand field for zero-operand instructions",
	Apply: func(fields []string) ([]string, bool) {
		if len(fields) != InstructionFields-1 {
			return fields, true
		}
		return append(append([]string(nil), fields...), ""), true
	},
}

var Lowercase = Rule{
	Name:        "lowercase",
	Description: "lowercase every field",
	Apply: func(fields []string) ([]string, bool) {
		return utils.Map(fields, strings.ToLower), true
	},
}

var TrimSpace = Rule{
	Name:        "trim-space",
	Description: "trim surrounding whitespace of every field",
	Apply: func(fields []string) ([]string, bool) {
		return utils.Map(fields, strings.TrimSpace), true
	},
}

// OpcodeHighByteFirst reverses memory-order opcode bytes into the display
// order used by the disassembler under test
var OpcodeHighByteFirst = Rule{
	Name:        "opcode-high-byte-first",
	Description: "reverse opcode bytes printed in memory order so the most significant byte comes first",
	Apply: func(fields []string) ([]string, bool) {
		if len(fields) <= FieldOpcode {
			return fields, true
		}
		reversed := utils.Reversed(strings.Fields(fields[FieldOpcode]))
		return withField(fields, FieldOpcode, strings.Join(reversed, " ")), true
	},
}

// RawDataDirective unifies raw data directive spellings (.word/.dw, .byte/.db)
var RawDataDirective = Rule{
	Name:        "raw-data-directive",
	Description: "spell raw data directives as .dw and .db",
	Apply: func(fields []string) ([]string, bool) {
		if len(fields) <= FieldMnemonic {
			return fields, true
		}
		if canonical, ok := rawDataDirectives[fields[FieldMnemonic]]; ok {
			return withField(fields, FieldMnemonic, canonical), true
		}
		return fields, true
	},
}

// WordToByteTarget converts word addressed call/jmp targets into byte addresses
var WordToByteTarget = Rule{
	Name:        "word-to-byte-target",
	Description: "convert call/jmp word address targets into byte addresses (word * 2)",
	Apply: func(fields []string) ([]string, bool) {
		if !hasInstructionFields(fields) || !IsWordAddressedControlTransfer(fields[FieldMnemonic]) {
			return fields, true
		}

		target, err := strconv.ParseUint(strings.TrimSpace(fields[FieldOperands]), 0, 32)
		if err != nil {
			return fields, true
		}
		return withField(fields, FieldOperands, fmt.Sprintf("0x%x", target*2)), true
	},
}

// IORegisterPrefix rewrites AVRASM style "$3f" literals (I/O registers and
// bit instruction addresses) with the 0x prefix
var IORegisterPrefix = Rule{
	Name:        "io-register-prefix",
	Description: "rewrite $-prefixed I/O register and bit-instruction literals with the 0x prefix",
	Apply: func(fields []string) ([]string, bool) {
		if !hasInstructionFields(fields) || !strings.Contains(fields[FieldOperands], "$") {
			return fields, true
		}

		operands := utils.Map(SplitOperands(fields[FieldOperands]), func(operand string) string {
			if strings.HasPrefix(operand, "$") {
				return "0x" + operand[1:]
			}
			return operand
		})
		return withField(fields, FieldOperands, JoinOperands(operands)), true
	},
}

// DesRoundPrefix gives bare decimal DES round numbers the 0x prefix
var DesRoundPrefix = Rule{
	Name:        "des-round-prefix",
	Description: "prefix bare des round operands with 0x",
	Apply: func(fields []string) ([]string, bool) {
		if !hasInstructionFields(fields) || fields[FieldMnemonic] != "des" {
			return fields, true
		}

		operand := strings.TrimSpace(fields[FieldOperands])
		if operand == "" || strings.HasPrefix(operand, "0x") {
			return fields, true
		}
		return withField(fields, FieldOperands, "0x"+operand), true
	},
}
