// Package reassembly turns a disassembly back into assembler source, rebuilds
// it with the binutils and disassembles the result again.
package reassembly

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/disasm"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/Manu343726/disfuzz/pkg/utils"
)

// DefaultLabelPrefix is prepended to the hex address of every synthesized label
const DefaultLabelPrefix = "A_"

// Options controls source synthesis
type Options struct {
	// Arch is only recorded in the header comment
	Arch string

	LabelPrefix string
}

// Source is a synthesized GNU as translation unit
type Source struct {
	Text string

	// Lines is the number of instruction and data lines
	Lines int

	// RawWords counts instructions emitted as .word because the assembler
	// cannot produce their encoding
	RawWords int

	// Labels counts operands rewritten into label references
	Labels int
}

var relativeTarget = regexp.MustCompile(`^\.([+-][0-9]+)$`)

// directMemoryReferences only have a 32-bit form in the assembler
var directMemoryReferences = map[string]bool{
	"lds": true,
	"sts": true,
}

// gasDirectives maps canonical raw data directives to their GNU as spelling
var gasDirectives = map[string]string{
	".dw": ".word",
	".db": ".byte",
}

// canonicalizations are the operand rewrites the assembler grammar needs
var canonicalizations = []disasm.Rule{
	disasm.DropNonInstructions,
	disasm.PadOperands,
	disasm.TrimSpace,
	disasm.WordToByteTarget,
	disasm.IORegisterPrefix,
}

type line struct {
	record disasm.InstructionRecord
	label  string
}

type synthesizer struct {
	options Options
	labels  map[uint32]string
	source  *Source
}

func (s *synthesizer) label(address uint32) string {
	return fmt.Sprintf("%s%04x", s.options.LabelPrefix, address)
}

// Synthesize builds assembler source from the text output of the disassembler
// under test. Lines that do not parse as instructions are skipped.
func Synthesize(d0 string, options Options) (*Source, error) {
	if options.LabelPrefix == "" {
		options.LabelPrefix = DefaultLabelPrefix
	}
	if options.Arch == "" {
		options.Arch = toolchain.DefaultArch
	}

	s := &synthesizer{
		options: options,
		labels:  map[uint32]string{},
		source:  &Source{},
	}

	var lines []line
	for _, text := range strings.Split(d0, "\n") {
		fields := disasm.Tokenize(text)

		var keep bool
		for _, rule := range canonicalizations {
			if fields, keep = rule.Apply(fields); !keep {
				break
			}
		}
		if !keep {
			continue
		}

		record, err := disasm.ParseRecord(fields[:min(len(fields), disasm.InstructionFields)])
		if err != nil {
			continue
		}

		label := s.label(record.Address)
		s.labels[record.Address] = label
		lines = append(lines, line{record: record, label: label})
	}

	if len(lines) == 0 {
		return nil, utils.MakeError(ErrReassembly, "no instructions in the disassembly")
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "; reassembled by disfuzz for %s\n", options.Arch)
	fmt.Fprintf(&builder, "; every instruction is labeled with its original byte address\n\n")
	builder.WriteString("\t.text\n\n")

	for _, l := range lines {
		mnemonic, operands := s.statement(l.record)
		s.source.Lines++

		fmt.Fprintf(&builder, "%s:\n\t%s", l.label, mnemonic)
		if operands != "" {
			fmt.Fprintf(&builder, "\t%s", operands)
		}
		builder.WriteString("\n")
	}

	s.source.Text = builder.String()
	return s.source, nil
}

// statement renders the record as a (mnemonic, operands) pair the assembler accepts
func (s *synthesizer) statement(record disasm.InstructionRecord) (string, string) {
	mnemonic := strings.ToLower(record.Mnemonic)

	if directive, ok := gasDirectives[mnemonic]; ok {
		return directive, record.Operands
	}

	if directMemoryReferences[mnemonic] && record.Width() == 2 {
		s.source.RawWords++
		return ".word", fmt.Sprintf("0x%02x%02x", record.Opcode[0], record.Opcode[1])
	}

	operands := disasm.SplitOperands(record.Operands)
	for i, operand := range operands {
		operands[i] = s.operand(record, mnemonic, operand)
	}

	return mnemonic, disasm.JoinOperands(operands)
}

func (s *synthesizer) operand(record disasm.InstructionRecord, mnemonic, operand string) string {
	if match := relativeTarget.FindStringSubmatch(operand); match != nil {
		offset, err := strconv.ParseInt(match[1], 10, 32)
		if err != nil {
			return operand
		}

		// The printed offset is relative to the next instruction, the
		// assembler's "." is the current one
		target := int64(record.Address) + 2 + offset
		if target >= 0 {
			if label, ok := s.labels[uint32(target)]; ok {
				s.source.Labels++
				return label
			}
		}
		return fmt.Sprintf(".%+d", offset+2)
	}

	if disasm.IsWordAddressedControlTransfer(mnemonic) {
		target, err := strconv.ParseUint(operand, 0, 32)
		if err != nil {
			return operand
		}
		if label, ok := s.labels[uint32(target)]; ok {
			s.source.Labels++
			return label
		}
	}

	return operand
}
