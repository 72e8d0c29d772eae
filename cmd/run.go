package cmd

import (
	"os"

	"github.com/Manu343726/disfuzz/pkg/config"
	"github.com/Manu343726/disfuzz/pkg/harness"
	"github.com/Manu343726/disfuzz/pkg/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every selected phase",
	Long: `Runs the format, differential and roundtrip phases in order, each for the configured
number of iterations. The exit status is zero only if every selected phase passed.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPhases(cmd, nil)
	},
}

func phaseCommand(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:          name,
		Short:        short,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPhases(cmd, []string{name})
		},
	}
}

// runPhases runs the configured phases, or only the given ones when not nil
func runPhases(cmd *cobra.Command, phases []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if phases != nil {
		cfg.Phases = phases
	}

	logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer closer.Close()

	tc, err := harness.Preflight(cmd.Context(), cfg.Toolchain(), logger)
	if err != nil {
		return err
	}

	formats, err := cfg.InputFormats()
	if err != nil {
		return err
	}

	options := harness.Options{
		WorkDir:    cfg.WorkDir,
		Iterations: cfg.Iterations,
		CorpusSize: cfg.CorpusSize,
		Phases:     cfg.Phases,
		Formats:    formats,
	}
	if cfg.SeedFile != "" {
		if options.Seed, err = harness.LoadSeed(cfg.SeedFile); err != nil {
			return err
		}
		logger.Info("replaying seed corpus", "path", cfg.SeedFile, "size", len(options.Seed.Data))
	}

	orchestrator, err := harness.NewOrchestrator(tc, options, harness.NewConsoleReporter(os.Stdout), logger)
	if err != nil {
		return err
	}

	if summary := orchestrator.Run(cmd.Context()); !summary.Passed() {
		return ErrTestsFailed
	}
	return nil
}

func init() {
	runCmd.Flags().StringSlice("phases", harness.PhaseNames, "phases to run: format, differential, roundtrip")
	cobra.CheckErr(viper.BindPFlag(config.KeyPhases, runCmd.Flags().Lookup("phases")))

	RootCmd.AddCommand(
		runCmd,
		phaseCommand(harness.PhaseFormat, "Check that every input format disassembles identically"),
		phaseCommand(harness.PhaseDifferential, "Compare the disassembly with avr-objdump"),
		phaseCommand(harness.PhaseRoundTrip, "Reassemble the disassembly and check it disassembles identically"),
	)
}
