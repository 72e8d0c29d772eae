package tools

import (
	"fmt"

	"github.com/Manu343726/disfuzz/pkg/config"
	"github.com/Manu343726/disfuzz/pkg/logging"
	"github.com/Manu343726/disfuzz/pkg/toolchain"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	colorTool    = color.New(color.FgCyan)
	colorPath    = color.New(color.FgHiBlack)
	colorVersion = color.New(color.FgGreen)
	colorError   = color.New(color.FgRed, color.Bold)
)

var checkCmd = &cobra.Command{
	Use:          "check",
	Short:        "Resolve every external tool and print its version",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}

		logger, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
		if err != nil {
			return err
		}
		defer closer.Close()

		tc, err := toolchain.Discover(cfg.Toolchain(), logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "architecture: %s\n", tc.Arch())
		for _, version := range tc.Versions(cmd.Context()) {
			description := colorVersion.Sprint(version.Version)
			if version.Err != nil {
				description = colorError.Sprintf("no version: %v", version.Err)
			}
			fmt.Fprintf(out, "%-14s %s\n  %s\n", colorTool.Sprint(version.Name), colorPath.Sprint(version.Path), description)
		}
		return nil
	},
}

func init() {
	ToolsCmd.AddCommand(checkCmd)
}
