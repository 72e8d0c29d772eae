package disasm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

var ErrPreambleNotFound = errors.New("disassembly preamble marker not found")

// Profile describes how the output of one tool is normalized. Lines are split
// on tabs, everything up to and including the preamble marker line is
// skipped, and the rules run in order on every remaining line.
type Profile struct {
	Name           string
	PreambleMarker string
	Rules          []Rule
}

// UnderTestProfile normalizes the output of the disassembler under test
var UnderTestProfile = Profile{
	Name: "vavrdisasm",
	Rules: []Rule{
		TrimAnnotations,
		DropNonInstructions,
		PadOperands,
		Lowercase,
		TrimSpace,
		WordToByteTarget,
		IORegisterPrefix,
	},
}

// ReferenceProfile normalizes avr-objdump output
var ReferenceProfile = Profile{
	Name:           "avr-objdump",
	PreambleMarker: "<.data>:",
	Rules: []Rule{
		TrimAnnotations,
		DropNonInstructions,
		PadOperands,
		Lowercase,
		TrimSpace,
		OpcodeHighByteFirst,
		RawDataDirective,
		IORegisterPrefix,
		DesRoundPrefix,
	},
}

// Profiles lists the built-in profiles
var Profiles = []Profile{UnderTestProfile, ReferenceProfile}

// ApplyRules runs every rule of the profile on one tokenized line
func (p Profile) ApplyRules(fields []string) ([]string, bool) {
	for _, rule := range p.Rules {
		var keep bool
		if fields, keep = rule.Apply(fields); !keep {
			return nil, false
		}
	}
	return fields, true
}

// Normalize parses the full text output of a tool into canonical records.
// Lines that survive the rules but do not parse as an instruction are dropped.
func (p Profile) Normalize(text string) (ToolOutput, error) {
	lines := utils.Lines(text)

	if p.PreambleMarker != "" {
		start := -1
		for i, line := range lines {
			if strings.Contains(line, p.PreambleMarker) {
				start = i + 1
				break
			}
		}
		if start < 0 {
			return nil, utils.MakeError(ErrPreambleNotFound, "%s output has no '%s' line", p.Name, p.PreambleMarker)
		}
		lines = lines[start:]
	}

	output := make(ToolOutput, 0, len(lines))
	for _, line := range lines {
		fields, keep := p.ApplyRules(Tokenize(line))
		if !keep {
			continue
		}

		record, err := ParseRecord(fields)
		if err != nil {
			continue
		}
		output = append(output, record)
	}

	return output, nil
}

// Describe lists the normalization steps of the profile
func (p Profile) Describe() string {
	var builder strings.Builder

	fmt.Fprintf(&builder, "%s:\n", p.Name)
	fmt.Fprintf(&builder, "  - tokenize: split lines on tabs\n")
	if p.PreambleMarker != "" {
		fmt.Fprintf(&builder, "  - skip-preamble: drop lines up to '%s'\n", p.PreambleMarker)
	}
	for _, rule := range p.Rules {
		fmt.Fprintf(&builder, "  - %s: %s\n", rule.Name, rule.Description)
	}

	return builder.String()
}
