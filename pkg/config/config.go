// Package config loads the harness settings from defaults, a YAML config
// file, DISFUZZ_* environment variables and command line flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/harness"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/Manu343726/disfuzz/pkg/utils"
	"github.com/invopop/jsonschema"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment variable override
	EnvPrefix = "DISFUZZ"

	// FileName is the config file searched in the home and working directories
	FileName = ".disfuzz"

	DefaultIterations = 50
	DefaultWorkDir    = "disfuzz-work"
	DefaultLogLevel   = "info"

	// MinCorpusSize fits one 32-bit instruction
	MinCorpusSize = 4
)

// Keys of every setting, shared by viper and the flag bindings
const (
	KeyIterations   = "iterations"
	KeyCorpusSize   = "corpusSize"
	KeyWorkDir      = "workDir"
	KeyTimeout      = "timeout"
	KeyArch         = "arch"
	KeyPhases       = "phases"
	KeyFormats      = "formats"
	KeySeedFile     = "seedFile"
	KeyLogLevel     = "logLevel"
	KeyLogFile      = "logFile"
	KeyDisassembler = "tools.disassembler"
	KeyObjdump      = "tools.objdump"
	KeyObjcopy      = "tools.objcopy"
	KeyAssembler    = "tools.assembler"
	KeyLinker       = "tools.linker"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Tools holds the paths of the external executables
type Tools struct {
	Disassembler string `mapstructure:"disassembler" json:"disassembler" jsonschema:"title=Disassembler,description=Path of the disassembler under test"`
	Objdump      string `mapstructure:"objdump" json:"objdump" jsonschema:"title=Objdump,description=Reference disassembler (avr-objdump)"`
	Objcopy      string `mapstructure:"objcopy" json:"objcopy" jsonschema:"title=Objcopy,description=Container format converter (avr-objcopy)"`
	Assembler    string `mapstructure:"assembler" json:"assembler" jsonschema:"title=Assembler,description=GNU assembler for AVR (avr-as)"`
	Linker       string `mapstructure:"linker" json:"linker" jsonschema:"title=Linker,description=GNU linker for AVR (avr-ld)"`
}

// Config is the complete harness configuration
type Config struct {
	Iterations int           `mapstructure:"iterations" json:"iterations" jsonschema:"title=Iterations,description=Iterations per phase,minimum=1,default=50"`
	CorpusSize int           `mapstructure:"corpusSize" json:"corpusSize" jsonschema:"title=Corpus Size,description=Bytes per random corpus (even),minimum=4,default=16384"`
	WorkDir    string        `mapstructure:"workDir" json:"workDir" jsonschema:"title=Work Directory,description=Directory holding the artifacts of every phase"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout" jsonschema:"title=Timeout,description=Upper bound of a single tool invocation in nanoseconds or as a duration string"`
	Arch       string        `mapstructure:"arch" json:"arch" jsonschema:"title=Architecture,description=AVR variant passed to the assembler and the linker,default=avrxmega6"`
	Phases     []string      `mapstructure:"phases" json:"phases" jsonschema:"title=Phases,description=Phases to run,enum=format,enum=differential,enum=roundtrip"`
	Formats    []string      `mapstructure:"formats" json:"formats" jsonschema:"title=Formats,description=Input formats checked by the format phase. Binary is always the baseline,enum=binary,enum=generic,enum=ihex,enum=srec"`
	SeedFile   string        `mapstructure:"seedFile" json:"seedFile,omitempty" jsonschema:"title=Seed File,description=Replay this corpus instead of random ones"`
	LogLevel   string        `mapstructure:"logLevel" json:"logLevel" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error"`
	LogFile    string        `mapstructure:"logFile" json:"logFile,omitempty" jsonschema:"title=Log File,description=Also write JSON log records to this file"`
	Tools      Tools         `mapstructure:"tools" json:"tools" jsonschema:"title=Tools"`
}

// SetDefaults registers the default of every setting
func SetDefaults(v *viper.Viper) {
	tools := toolchain.DefaultConfig()

	v.SetDefault(KeyIterations, DefaultIterations)
	v.SetDefault(KeyCorpusSize, corpus.DefaultSize)
	v.SetDefault(KeyWorkDir, DefaultWorkDir)
	v.SetDefault(KeyTimeout, tools.Timeout)
	v.SetDefault(KeyArch, tools.Arch)
	v.SetDefault(KeyPhases, harness.PhaseNames)
	v.SetDefault(KeyFormats, utils.Map(toolchain.AllFormats, toolchain.InputFormat.Selector))
	v.SetDefault(KeySeedFile, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyDisassembler, tools.Disassembler)
	v.SetDefault(KeyObjdump, tools.Objdump)
	v.SetDefault(KeyObjcopy, tools.Objcopy)
	v.SetDefault(KeyAssembler, tools.Assembler)
	v.SetDefault(KeyLinker, tools.Linker)
}

// ConfigureEnv maps tools.objdump to DISFUZZ_TOOLS_OBJDUMP and so on
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the settings held by v
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, utils.MakeError(ErrInvalidConfig, "%v", err)
	}

	config.Phases = normalizeList(config.Phases)
	config.Formats = normalizeList(config.Formats)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// normalizeList accepts both lists and comma separated values
func normalizeList(values []string) []string {
	var result []string
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
				result = append(result, name)
			}
		}
	}
	return result
}

// Validate rejects settings no run could succeed with
func (c *Config) Validate() error {
	var errs []error

	if c.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be positive, got %d", c.Iterations))
	}
	if c.CorpusSize < MinCorpusSize {
		errs = append(errs, fmt.Errorf("corpus size must be at least %d bytes, got %d", MinCorpusSize, c.CorpusSize))
	} else if c.CorpusSize%2 != 0 {
		errs = append(errs, fmt.Errorf("corpus size must be even, got %d", c.CorpusSize))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.WorkDir == "" {
		errs = append(errs, errors.New("work directory must not be empty"))
	}
	for _, phase := range c.Phases {
		if !slices.Contains(harness.PhaseNames, phase) {
			errs = append(errs, fmt.Errorf("unknown phase '%s' (valid: %s)", phase, strings.Join(harness.PhaseNames, ", ")))
		}
	}
	for _, format := range c.Formats {
		if _, err := toolchain.ParseInputFormat(format); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return utils.MakeError(ErrInvalidConfig, "%v", errors.Join(errs...))
	}
	return nil
}

// InputFormats returns the formats of the format phase, raw binary first and
// without duplicates
func (c *Config) InputFormats() ([]toolchain.InputFormat, error) {
	formats := []toolchain.InputFormat{toolchain.FormatBinary}
	for _, selector := range c.Formats {
		format, err := toolchain.ParseInputFormat(selector)
		if err != nil {
			return nil, utils.MakeError(ErrInvalidConfig, "%v", err)
		}
		if !slices.Contains(formats, format) {
			formats = append(formats, format)
		}
	}
	return formats, nil
}

// Toolchain returns the toolchain settings
func (c *Config) Toolchain() *toolchain.Config {
	return &toolchain.Config{
		Disassembler: c.Tools.Disassembler,
		Objdump:      c.Tools.Objdump,
		Objcopy:      c.Tools.Objcopy,
		Assembler:    c.Tools.Assembler,
		Linker:       c.Tools.Linker,
		Arch:         c.Arch,
		Timeout:      c.Timeout,
	}
}

// Schema returns the JSON schema of the config file
func Schema() ([]byte, error) {
	reflector := new(jsonschema.Reflector)
	schema, err := json.MarshalIndent(reflector.Reflect(&Config{}), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return schema, nil
}
