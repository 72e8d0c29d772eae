package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/Manu343726/disfuzz/pkg/utils"
)

// DefaultArch is the AVR architecture variant the reassembly chain targets.
// avrxmega6 accepts every instruction the disassembler can print (including
// des, eicall and 32-bit call/jmp)
const DefaultArch = "avrxmega6"

// DefaultTimeout bounds every tool invocation
const DefaultTimeout = 60 * time.Second

// Config holds the paths of every external collaborator
type Config struct {
	// Disassembler is the disassembler under test
	Disassembler string

	// Objdump is the reference disassembler
	Objdump string

	// Objcopy converts between container formats
	Objcopy string

	// Assembler and Linker rebuild disassembled code
	Assembler string
	Linker    string

	// Arch is the architecture variant passed to both the assembler and the linker
	Arch string

	// Timeout bounds a single invocation
	Timeout time.Duration
}

// DefaultConfig returns the AVR GNU binutils and a vavrdisasm binary in the
// working directory
func DefaultConfig() *Config {
	return &Config{
		Disassembler: "./vavrdisasm",
		Objdump:      "avr-objdump",
		Objcopy:      "avr-objcopy",
		Assembler:    "avr-as",
		Linker:       "avr-ld",
		Arch:         DefaultArch,
		Timeout:      DefaultTimeout,
	}
}

// Toolchain is a fully resolved set of collaborators
type Toolchain struct {
	config Config
	tools  []*Tool

	disassembler *Disassembler
	reference    *ReferenceDisassembler
	converter    *Converter
	assembler    *Assembler
	linker       *Linker
}

// Discover resolves every configured executable up front. All missing tools
// are reported together so a run never starts with an incomplete toolchain.
func Discover(config *Config, logger *slog.Logger) (*Toolchain, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	arch := config.Arch
	if arch == "" {
		arch = DefaultArch
	}

	toolchain := &Toolchain{config: *config}
	toolchain.config.Arch = arch

	var missing []string
	resolve := func(name, path string) *Tool {
		resolved, err := findExecutable(path)
		if err != nil {
			missing = append(missing, fmt.Sprintf("%s (%s)", name, path))
			return nil
		}

		tool := &Tool{
			Name:    name,
			Path:    resolved,
			Timeout: config.Timeout,
			Logger:  logger.With("tool", name),
		}
		toolchain.tools = append(toolchain.tools, tool)
		return tool
	}

	disassembler := resolve("disassembler", config.Disassembler)
	objdump := resolve("objdump", config.Objdump)
	objcopy := resolve("objcopy", config.Objcopy)
	assembler := resolve("assembler", config.Assembler)
	linker := resolve("linker", config.Linker)

	if len(missing) > 0 {
		return nil, utils.MakeError(ErrToolMissing, "%s", strings.Join(missing, ", "))
	}

	toolchain.disassembler = &Disassembler{tool: disassembler}
	toolchain.reference = &ReferenceDisassembler{tool: objdump}
	toolchain.converter = &Converter{tool: objcopy}
	toolchain.assembler = &Assembler{tool: assembler, arch: arch}
	toolchain.linker = &Linker{tool: linker, arch: arch}

	return toolchain, nil
}

// findExecutable resolves explicit paths with os.Stat and bare names through PATH
func findExecutable(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("no path configured")
	}

	if strings.ContainsRune(path, os.PathSeparator) || strings.ContainsRune(path, '/') {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", path)
		}
		return path, nil
	}

	if runtime.GOOS == "windows" && !strings.HasSuffix(path, ".exe") {
		path += ".exe"
	}

	return exec.LookPath(path)
}

// Arch returns the architecture variant shared by the assembler and the linker
func (t *Toolchain) Arch() string {
	return t.config.Arch
}

func (t *Toolchain) Disassembler() *Disassembler {
	return t.disassembler
}

func (t *Toolchain) Reference() *ReferenceDisassembler {
	return t.reference
}

func (t *Toolchain) Converter() *Converter {
	return t.converter
}

func (t *Toolchain) Assembler() *Assembler {
	return t.assembler
}

func (t *Toolchain) Linker() *Linker {
	return t.linker
}

// ToolVersion pairs a tool with the version it reports
type ToolVersion struct {
	Name    string
	Path    string
	Version string
	Err     error
}

// Versions queries every tool for its version. Tools that do not understand
// --version are reported with their error instead of failing the query.
func (t *Toolchain) Versions(ctx context.Context) []ToolVersion {
	versions := make([]ToolVersion, 0, len(t.tools))

	for _, tool := range t.tools {
		version, err := tool.Version(ctx)
		versions = append(versions, ToolVersion{
			Name:    tool.Name,
			Path:    tool.Path,
			Version: version,
			Err:     err,
		})
	}

	return versions
}
