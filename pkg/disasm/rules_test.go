package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRules(t *testing.T) {
	tests := []struct {
		rule   Rule
		before []string
		after  []string
		keep   bool
	}{
		{TrimAnnotations, []string{"   4:", "ff cf       ", "rjmp", ".-2      ", ";  0x4"}, []string{"   4:", "ff cf       ", "rjmp", ".-2      "}, true},
		{TrimAnnotations, []string{"0:", "00 00", "nop"}, []string{"0:", "00 00", "nop"}, true},
		{DropNonInstructions, []string{"\t..."}, []string{"\t..."}, false},
		{DropNonInstructions, []string{"0:", "00 00"}, []string{"0:", "00 00"}, false},
		{DropNonInstructions, []string{"0:", "00 00", "nop"}, []string{"0:", "00 00", "nop"}, true},
		{PadOperands, []string{"0:", "00 00", "nop"}, []string{"0:", "00 00", "nop", ""}, true},
		{PadOperands, []string{"0:", "00 00", "nop", ""}, []string{"0:", "00 00", "nop", ""}, true},
		{Lowercase, []string{"   A:", "0F EF", "LDI", "R16, 0xFF"}, []string{"   a:", "0f ef", "ldi", "r16, 0xff"}, true},
		{TrimSpace, []string{"   a:", "ef 0f      ", "ser", "r16 "}, []string{"a:", "ef 0f", "ser", "r16"}, true},
		{OpcodeHighByteFirst, []string{"10:", "0e 94 aa 00", "call", "0x154"}, []string{"10:", "00 aa 94 0e", "call", "0x154"}, true},
		{OpcodeHighByteFirst, []string{"4:", "ff cf", "rjmp", ".-2"}, []string{"4:", "cf ff", "rjmp", ".-2"}, true},
		{RawDataDirective, []string{"3ffe:", "94 0e", ".word", "0x940e"}, []string{"3ffe:", "94 0e", ".dw", "0x940e"}, true},
		{RawDataDirective, []string{"3fff:", "ab", ".byte", "0xab"}, []string{"3fff:", "ab", ".db", "0xab"}, true},
		{RawDataDirective, []string{"0:", "00 00", "nop", ""}, []string{"0:", "00 00", "nop", ""}, true},
		{WordToByteTarget, []string{"10:", "00 aa 94 0e", "call", "0x00aa"}, []string{"10:", "00 aa 94 0e", "call", "0x154"}, true},
		{WordToByteTarget, []string{"0:", "00 55 94 0c", "jmp", "0x0055"}, []string{"0:", "00 55 94 0c", "jmp", "0xaa"}, true},
		{WordToByteTarget, []string{"4:", "cf ff", "rjmp", ".-2"}, []string{"4:", "cf ff", "rjmp", ".-2"}, true},
		{WordToByteTarget, []string{"4:", "94 0e", "call"}, []string{"4:", "94 0e", "call"}, true},
		{IORegisterPrefix, []string{"6:", "bf 8f", "out", "$3f, r24"}, []string{"6:", "bf 8f", "out", "0x3f, r24"}, true},
		{IORegisterPrefix, []string{"8:", "9a c3", "sbi", "$18, 3"}, []string{"8:", "9a c3", "sbi", "0x18, 3"}, true},
		{IORegisterPrefix, []string{"a:", "b3 80", "in", "r24, $10"}, []string{"a:", "b3 80", "in", "r24, 0x10"}, true},
		{IORegisterPrefix, []string{"c:", "e0 0f", "ldi", "r16, 0x0f"}, []string{"c:", "e0 0f", "ldi", "r16, 0x0f"}, true},
		{DesRoundPrefix, []string{"e:", "94 1b", "des", "1"}, []string{"e:", "94 1b", "des", "0x1"}, true},
		{DesRoundPrefix, []string{"e:", "94 1b", "des", "0x1"}, []string{"e:", "94 1b", "des", "0x1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.rule.Name, func(t *testing.T) {
			original := append([]string(nil), tt.before...)

			after, keep := tt.rule.Apply(tt.before)

			assert.Equal(t, tt.keep, keep)
			if keep {
				assert.Equal(t, tt.after, after)
			}
			assert.Equal(t, original, tt.before, "rules must not modify their input")
		})
	}
}

func TestRuleNamesAreUnique(t *testing.T) {
	for _, profile := range Profiles {
		names := map[string]bool{}
		for _, rule := range profile.Rules {
			assert.False(t, names[rule.Name], "%s: duplicate rule %s", profile.Name, rule.Name)
			names[rule.Name] = true
			assert.NotEmpty(t, rule.Description, rule.Name)
		}
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsWordAddressedControlTransfer("call"))
	assert.True(t, IsWordAddressedControlTransfer("JMP"))
	assert.False(t, IsWordAddressedControlTransfer("rjmp"))
	assert.False(t, IsWordAddressedControlTransfer("rcall"))

	assert.True(t, IsRawData(".dw"))
	assert.True(t, IsRawData(".word"))
	assert.True(t, IsRawData(".db"))
	assert.False(t, IsRawData("nop"))
}
