package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Manu343726/disfuzz/pkg/corpus"
	"github.com/Manu343726/disfuzz/pkg/harness"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	return v
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, DefaultIterations, config.Iterations)
	assert.Equal(t, corpus.DefaultSize, config.CorpusSize)
	assert.Equal(t, toolchain.DefaultTimeout, config.Timeout)
	assert.Equal(t, toolchain.DefaultArch, config.Arch)
	assert.Equal(t, harness.PhaseNames, config.Phases)
	assert.Equal(t, "avr-objdump", config.Tools.Objdump)
	assert.Equal(t, DefaultLogLevel, config.LogLevel)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disfuzz.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
iterations: 7
corpusSize: 1024
timeout: 5s
phases: [differential]
tools:
  disassembler: /opt/vavrdisasm/vavrdisasm
`), 0o644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	config, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 7, config.Iterations)
	assert.Equal(t, 1024, config.CorpusSize)
	assert.Equal(t, 5*time.Second, config.Timeout)
	assert.Equal(t, []string{harness.PhaseDifferential}, config.Phases)
	assert.Equal(t, "/opt/vavrdisasm/vavrdisasm", config.Tools.Disassembler)
	assert.Equal(t, "avr-as", config.Tools.Assembler)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("DISFUZZ_ITERATIONS", "3")
	t.Setenv("DISFUZZ_TOOLS_OBJDUMP", "/usr/local/bin/avr-objdump")
	t.Setenv("DISFUZZ_PHASES", "format, roundtrip")

	config, err := Load(newViper())
	require.NoError(t, err)

	assert.Equal(t, 3, config.Iterations)
	assert.Equal(t, "/usr/local/bin/avr-objdump", config.Tools.Objdump)
	assert.Equal(t, []string{harness.PhaseFormat, harness.PhaseRoundTrip}, config.Phases)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Iterations: 1,
			CorpusSize: 16,
			WorkDir:    "work",
			Timeout:    time.Second,
			Phases:     []string{harness.PhaseFormat},
		}
	}

	require.NoError(t, valid().Validate())

	tests := map[string]func(*Config){
		"zero iterations":   func(c *Config) { c.Iterations = 0 },
		"odd corpus":        func(c *Config) { c.CorpusSize = 17 },
		"tiny corpus":       func(c *Config) { c.CorpusSize = 2 },
		"no timeout":        func(c *Config) { c.Timeout = 0 },
		"no work directory": func(c *Config) { c.WorkDir = "" },
		"unknown phase":     func(c *Config) { c.Phases = []string{"fuzz"} },
		"unknown format":    func(c *Config) { c.Formats = []string{"elf"} },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			config := valid()
			mutate(config)
			assert.ErrorIs(t, config.Validate(), ErrInvalidConfig)
		})
	}
}

func TestInputFormats(t *testing.T) {
	config, err := Load(newViper())
	require.NoError(t, err)

	formats, err := config.InputFormats()
	require.NoError(t, err)
	assert.Equal(t, toolchain.AllFormats, formats)

	t.Setenv("DISFUZZ_FORMATS", "srec, hex,srecord")
	config, err = Load(newViper())
	require.NoError(t, err)

	formats, err = config.InputFormats()
	require.NoError(t, err)
	assert.Equal(t, []toolchain.InputFormat{toolchain.FormatBinary, toolchain.FormatSRecord, toolchain.FormatIntelHex}, formats,
		"binary stays the baseline and aliases collapse")

	config.Formats = []string{"elf"}
	_, err = config.InputFormats()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestToolchain(t *testing.T) {
	config, err := Load(newViper())
	require.NoError(t, err)

	tc := config.Toolchain()
	assert.Equal(t, toolchain.DefaultConfig(), tc)
}

func TestSchema(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)

	assert.Contains(t, string(schema), `"corpusSize"`)
	assert.Contains(t, string(schema), `"disassembler"`)
	assert.Contains(t, string(schema), "Iterations per phase")
}
