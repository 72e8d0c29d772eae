package toolchain

import (
	"context"
	"fmt"
	"os"

	"github.com/Manu343726/disfuzz/pkg/corpus"
)

// DisassembleOptions tunes the under-test disassembler output
type DisassembleOptions struct {
	// NoDestinationComments suppresses the "; 0x..." destination address
	// comments of relative branches
	NoDestinationComments bool
}

// Disassembler drives the disassembler under test
type Disassembler struct {
	tool *Tool
}

// Disassemble returns the raw text output for the file at path, read as format
func (d *Disassembler) Disassemble(ctx context.Context, path string, format InputFormat, opts DisassembleOptions) (string, error) {
	args := []string{"-t", format.Selector()}
	if opts.NoDestinationComments {
		args = append(args, "--no-destination-comments")
	}
	args = append(args, path)

	result, err := d.tool.Run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("disassembling %s as %s: %w", path, format, err)
	}
	return result.Stdout, nil
}

// ReferenceDisassembler drives avr-objdump on raw binaries
type ReferenceDisassembler struct {
	tool *Tool
}

// Disassemble returns objdump's full listing of the raw binary at path
func (r *ReferenceDisassembler) Disassemble(ctx context.Context, path string) (string, error) {
	result, err := r.tool.Run(ctx, "-b", "binary", "-m", "avr", "-D", path)
	if err != nil {
		return "", fmt.Errorf("reference disassembly of %s: %w", path, err)
	}
	return result.Stdout, nil
}

// Converter produces container images. Intel HEX and S-Record go through
// objcopy, Atmel Generic (unknown to binutils) is written in-process.
type Converter struct {
	tool *Tool
}

// Encode converts the raw binary at binPath into outPath in the given format
func (c *Converter) Encode(ctx context.Context, binPath, outPath string, format InputFormat) error {
	switch format {
	case FormatGeneric:
		data, err := os.ReadFile(binPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", binPath, err)
		}
		text, err := corpus.EncodeGeneric(data)
		if err != nil {
			return err
		}
		return corpus.WriteFile(outPath, []byte(text))

	case FormatIntelHex, FormatSRecord:
		if _, err := c.tool.Run(ctx, "-I", "binary", "-O", format.ObjcopyTarget(), binPath, outPath); err != nil {
			return fmt.Errorf("converting %s to %s: %w", binPath, format, err)
		}
		return nil

	default:
		return fmt.Errorf("cannot encode into %s", format)
	}
}

// Extract writes the loadable contents of the ELF file at elfPath as a raw binary
func (c *Converter) Extract(ctx context.Context, elfPath, binPath string) error {
	if _, err := c.tool.Run(ctx, "-O", "binary", elfPath, binPath); err != nil {
		return fmt.Errorf("extracting %s: %w", elfPath, err)
	}
	return nil
}

// Assembler drives avr-as
type Assembler struct {
	tool *Tool
	arch string
}

// Assemble builds srcPath into the object file objPath
func (a *Assembler) Assemble(ctx context.Context, srcPath, objPath string) error {
	if _, err := a.tool.Run(ctx, "-mmcu="+a.arch, "-mall-opcodes", "-o", objPath, srcPath); err != nil {
		return fmt.Errorf("assembling %s: %w", srcPath, err)
	}
	return nil
}

// Linker drives avr-ld
type Linker struct {
	tool *Tool
	arch string
}

// Link links objPath into the executable elfPath. Relaxation stays disabled so
// every instruction keeps the width it was disassembled with.
func (l *Linker) Link(ctx context.Context, objPath, elfPath string) error {
	if _, err := l.tool.Run(ctx, "-m", l.arch, "-o", elfPath, objPath); err != nil {
		return fmt.Errorf("linking %s: %w", objPath, err)
	}
	return nil
}
