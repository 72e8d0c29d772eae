package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/Manu343726/disfuzz/cmd/tools"
	"github.com/Manu343726/disfuzz/pkg/config"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var cfgFile string

// ErrTestsFailed is returned when at least one selected phase failed
var ErrTestsFailed = errors.New("tests failed")

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "disfuzz",
	Short: "Differential and round-trip fuzzer for an AVR disassembler",
	Long: `Disfuzz feeds random binaries to an AVR disassembler and checks its output three ways:

  format        the same binary in raw, Atmel Generic, Intel HEX and S-Record form disassembles identically
  differential  the disassembly matches avr-objdump after normalization
  roundtrip     disassembling, reassembling with the GNU binutils and disassembling again is a fixed point

Artifacts of failed iterations are kept in the work directory for postmortem analysis.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if term.IsTerminal(int(os.Stdout.Fd())) {
		err = fang.Execute(ctx, RootCmd, fang.WithNotifySignal(os.Interrupt))
	} else {
		err = RootCmd.ExecuteContext(ctx)
	}

	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.disfuzz.yaml or ./.disfuzz.yaml)")
	flags.IntP("iterations", "n", config.DefaultIterations, "iterations per phase")
	flags.Int("corpus-size", 0, "bytes per random corpus (default 16384)")
	flags.String("work-dir", config.DefaultWorkDir, "directory for the artifacts of every phase")
	flags.Duration("timeout", 0, "upper bound of a single tool invocation (default 60s)")
	flags.String("arch", "", "AVR variant passed to the assembler and the linker (default avrxmega6)")
	flags.StringSlice("formats", nil, "input formats checked by the format phase: binary, generic, ihex, srec (default all)")
	flags.String("seed-file", "", "replay this corpus (e.g. a retained corpus.bin) instead of random ones")
	flags.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
	flags.String("log-file", "", "also write JSON log records to this file")
	flags.String("disassembler", "", "disassembler under test (default ./vavrdisasm)")
	flags.String("objdump", "", "reference disassembler (default avr-objdump)")
	flags.String("objcopy", "", "container format converter (default avr-objcopy)")
	flags.String("as", "", "assembler (default avr-as)")
	flags.String("ld", "", "linker (default avr-ld)")

	bindings := map[string]string{
		config.KeyIterations:   "iterations",
		config.KeyCorpusSize:   "corpus-size",
		config.KeyWorkDir:      "work-dir",
		config.KeyTimeout:      "timeout",
		config.KeyArch:         "arch",
		config.KeyFormats:      "formats",
		config.KeySeedFile:     "seed-file",
		config.KeyLogLevel:     "log-level",
		config.KeyLogFile:      "log-file",
		config.KeyDisassembler: "disassembler",
		config.KeyObjdump:      "objdump",
		config.KeyObjcopy:      "objcopy",
		config.KeyAssembler:    "as",
		config.KeyLinker:       "ld",
	}
	for key, flag := range bindings {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(flag)))
	}

	RootCmd.AddCommand(tools.ToolsCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home and working directories with name ".disfuzz" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(config.FileName)
	}

	config.ConfigureEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(err)
	}
}
