// Package disasm turns the text output of AVR disassemblers into canonical
// instruction records that can be compared across tools.
package disasm

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

// Field positions of a tokenized instruction line
const (
	FieldAddress = iota
	FieldOpcode
	FieldMnemonic
	FieldOperands

	// InstructionFields is the number of fields of a canonical line
	InstructionFields
)

var ErrNotInstruction = errors.New("not an instruction line")

// InstructionRecord is one canonical disassembled instruction
type InstructionRecord struct {
	// Address is the byte offset of the first opcode byte
	Address uint32

	// Opcode holds the instruction bytes in display order, most significant
	// byte first (the reverse of memory order)
	Opcode []byte

	Mnemonic string

	// Operands is the comma separated operand list, empty for instructions
	// without operands
	Operands string
}

// Equal reports whether both records are structurally identical
func (r InstructionRecord) Equal(other InstructionRecord) bool {
	return r.Address == other.Address &&
		bytes.Equal(r.Opcode, other.Opcode) &&
		r.Mnemonic == other.Mnemonic &&
		r.Operands == other.Operands
}

// Width returns the size of the instruction in bytes
func (r InstructionRecord) Width() int {
	return len(r.Opcode)
}

// OpcodeText renders the opcode bytes the way the disassemblers print them
func (r InstructionRecord) OpcodeText() string {
	return utils.FormatSlice(utils.Map(r.Opcode, func(b byte) string { return fmt.Sprintf("%02x", b) }), " ")
}

func (r InstructionRecord) String() string {
	return fmt.Sprintf("%x:\t%s\t%s\t%s", r.Address, r.OpcodeText(), r.Mnemonic, r.Operands)
}

// ToolOutput is the canonical, address ordered output of one tool
type ToolOutput []InstructionRecord

// Lines renders every record with String
func (o ToolOutput) Lines() []string {
	return utils.Map(o, InstructionRecord.String)
}

// Tokenize splits a disassembly line on tabs
func Tokenize(line string) []string {
	return strings.Split(strings.TrimRight(line, "\r"), "\t")
}

// ParseRecord converts the four canonical fields of a line into a record
func ParseRecord(fields []string) (InstructionRecord, error) {
	if len(fields) != InstructionFields {
		return InstructionRecord{}, utils.MakeError(ErrNotInstruction, "%d fields", len(fields))
	}

	address, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(fields[FieldAddress]), ":"), 16, 32)
	if err != nil {
		return InstructionRecord{}, utils.MakeError(ErrNotInstruction, "address '%s'", fields[FieldAddress])
	}

	opcode, err := ParseOpcode(fields[FieldOpcode])
	if err != nil {
		return InstructionRecord{}, err
	}

	return InstructionRecord{
		Address:  uint32(address),
		Opcode:   opcode,
		Mnemonic: fields[FieldMnemonic],
		Operands: fields[FieldOperands],
	}, nil
}

// ParseOpcode parses a whitespace separated list of hex bytes
func ParseOpcode(text string) ([]byte, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, utils.MakeError(ErrNotInstruction, "no opcode bytes")
	}

	opcode := make([]byte, len(tokens))
	for i, token := range tokens {
		value, err := strconv.ParseUint(token, 16, 8)
		if err != nil {
			return nil, utils.MakeError(ErrNotInstruction, "opcode byte '%s'", token)
		}
		opcode[i] = byte(value)
	}

	return opcode, nil
}

// SplitOperands splits an operand list on commas, trimming every operand
func SplitOperands(operands string) []string {
	if strings.TrimSpace(operands) == "" {
		return nil
	}
	return utils.Map(strings.Split(operands, ","), strings.TrimSpace)
}

// JoinOperands is the inverse of SplitOperands
func JoinOperands(operands []string) string {
	return strings.Join(operands, ", ")
}
