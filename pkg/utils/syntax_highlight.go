// Package utils provides utility functions for the disfuzz project.
package utils

import (
	"regexp"
	"sort"
	"strings"

	"github.com/fatih/color"
)

// AVR assembly highlighting colors
var (
	asmAddressColor   = color.New(color.FgCyan)
	asmOpcodeColor    = color.New(color.FgHiBlack)
	asmMnemonicColor  = color.New(color.FgYellow, color.Bold)
	asmDirectiveColor = color.New(color.FgBlue)
	asmRegisterColor  = color.New(color.FgGreen)
	asmNumberColor    = color.New(color.FgMagenta)
	asmCommentColor   = color.New(color.FgHiBlack)
	asmLabelColor     = color.New(color.FgHiBlue)
)

// Patterns for syntax elements
var (
	asmCommentPattern   = regexp.MustCompile(`;.*$`)
	asmLabelPattern     = regexp.MustCompile(`^\s*[A-Za-z_][A-Za-z0-9_]*:`)
	asmAddressPattern   = regexp.MustCompile(`^\s*[0-9a-fA-F]+:`)
	asmDirectivePattern = regexp.MustCompile(`(?:^|\s)(\.[a-zA-Z]+)\b`)
	asmRegisterPattern  = regexp.MustCompile(`\b[rR][0-9]{1,2}\b|\b-?[XYZ]\+?(?:[0-9]+)?`)
	asmNumberPattern    = regexp.MustCompile(`(?:0[xX][0-9a-fA-F]+|\$[0-9a-fA-F]+|\.[+-][0-9]+|\b[0-9]+\b)`)
)

// token represents a syntax-highlighted token
type token struct {
	color *color.Color
	start int
	end   int
}

// HighlightAssembly applies syntax highlighting to one line of disassembly
// (address, opcode bytes, mnemonic, operands, comment, tab separated) or
// assembler source and returns the colored string
func HighlightAssembly(line string) string {
	if line == "" {
		return ""
	}

	var tokens []token
	add := func(c *color.Color, start, end int) {
		if start < end && !overlapsAny(start, end, tokens) {
			tokens = append(tokens, token{color: c, start: start, end: end})
		}
	}

	for _, match := range asmCommentPattern.FindAllStringIndex(line, -1) {
		add(asmCommentColor, match[0], match[1])
	}

	if match := asmAddressPattern.FindStringIndex(line); match != nil {
		add(asmAddressColor, match[0], match[1])
	} else if match := asmLabelPattern.FindStringIndex(line); match != nil {
		add(asmLabelColor, match[0], match[1])
	}

	// Disassembler output: the opcode bytes and the mnemonic are the
	// second and third tab separated fields
	fields := strings.Split(line, "\t")
	if len(fields) >= 3 {
		offset := len(fields[0]) + 1
		add(asmOpcodeColor, offset, offset+len(strings.TrimRight(fields[1], " ")))
		offset += len(fields[1]) + 1
		mnemonicColor := asmMnemonicColor
		if strings.HasPrefix(fields[2], ".") {
			mnemonicColor = asmDirectiveColor
		}
		add(mnemonicColor, offset, offset+len(fields[2]))
	}

	for _, match := range asmDirectivePattern.FindAllStringSubmatchIndex(line, -1) {
		add(asmDirectiveColor, match[2], match[3])
	}
	for _, match := range asmRegisterPattern.FindAllStringIndex(line, -1) {
		add(asmRegisterColor, match[0], match[1])
	}
	for _, match := range asmNumberPattern.FindAllStringIndex(line, -1) {
		add(asmNumberColor, match[0], match[1])
	}

	return buildHighlightedString(line, tokens)
}

// overlapsAny checks if a range overlaps with any existing token
func overlapsAny(start, end int, tokens []token) bool {
	for _, t := range tokens {
		if start < t.end && end > t.start {
			return true
		}
	}
	return false
}

// buildHighlightedString constructs the final string with color codes
func buildHighlightedString(code string, tokens []token) string {
	if len(tokens) == 0 {
		return code
	}

	sort.Slice(tokens, func(i, j int) bool { return tokens[i].start < tokens[j].start })

	var result strings.Builder
	pos := 0

	for _, t := range tokens {
		if t.start > pos {
			result.WriteString(code[pos:t.start])
		}
		result.WriteString(t.color.Sprint(code[t.start:t.end]))
		pos = t.end
	}

	if pos < len(code) {
		result.WriteString(code[pos:])
	}

	return result.String()
}
