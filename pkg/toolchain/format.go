package toolchain

import (
	"fmt"
	"strings"
)

// InputFormat selects the container format the disassembler under test reads
type InputFormat int

const (
	// FormatBinary is a raw binary image
	FormatBinary InputFormat = iota
	// FormatGeneric is the Atmel Generic hex text format
	FormatGeneric
	// FormatIntelHex is Intel HEX8
	FormatIntelHex
	// FormatSRecord is Motorola S-Record
	FormatSRecord
)

// AllFormats lists every input format, raw binary first
var AllFormats = []InputFormat{FormatBinary, FormatGeneric, FormatIntelHex, FormatSRecord}

// Selector returns the value passed to the disassembler's file type option
func (f InputFormat) Selector() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatGeneric:
		return "generic"
	case FormatIntelHex:
		return "ihex"
	case FormatSRecord:
		return "srec"
	default:
		return "binary"
	}
}

// ObjcopyTarget returns the BFD target name objcopy uses for this format, or
// an empty string for formats objcopy does not produce
func (f InputFormat) ObjcopyTarget() string {
	switch f {
	case FormatBinary:
		return "binary"
	case FormatIntelHex:
		return "ihex"
	case FormatSRecord:
		return "srec"
	default:
		return ""
	}
}

// Extension returns the file extension used for artifacts in this format
func (f InputFormat) Extension() string {
	switch f {
	case FormatGeneric:
		return ".gen"
	case FormatIntelHex:
		return ".hex"
	case FormatSRecord:
		return ".srec"
	default:
		return ".bin"
	}
}

func (f InputFormat) String() string {
	switch f {
	case FormatBinary:
		return "Binary"
	case FormatGeneric:
		return "Atmel Generic"
	case FormatIntelHex:
		return "Intel HEX"
	case FormatSRecord:
		return "Motorola S-Record"
	default:
		return fmt.Sprintf("InputFormat(%d)", int(f))
	}
}

// ParseInputFormat parses a selector string as accepted by Selector
func ParseInputFormat(selector string) (InputFormat, error) {
	switch strings.ToLower(selector) {
	case "binary", "bin":
		return FormatBinary, nil
	case "generic", "gen":
		return FormatGeneric, nil
	case "ihex", "hex":
		return FormatIntelHex, nil
	case "srec", "srecord":
		return FormatSRecord, nil
	default:
		return FormatBinary, fmt.Errorf("unknown input format '%s'", selector)
	}
}
