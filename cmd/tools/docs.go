package tools

import (
	"fmt"
	"os"
	"strings"

	"github.com/Manu343726/disfuzz/pkg/compare"
	"github.com/Manu343726/disfuzz/pkg/disasm"
	"github.com/Manu343726/disfuzz/pkg/utils"
	"github.com/spf13/cobra"
)

var supportedModules = map[string]func() string{
	"normalization": func() string {
		return strings.Join(utils.Map(disasm.Profiles, disasm.Profile.Describe), "\n")
	},
	"equivalence": func() string { return compare.NewComparator().Describe() },
}

var docsCmd = &cobra.Command{
	Use:   "docs module",
	Short: "Show disfuzz documentation",
	Long: `Dumps the documentation of the specified disfuzz module.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported modules:
` + strings.Join(utils.Map(utils.Keys(supportedModules), func(module string) string { return "  " + module }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.ExactArgs(1)),
	ValidArgs: utils.Keys(supportedModules),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc := supportedModules[args[0]]()

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile == "" {
			fmt.Fprint(cmd.OutOrStdout(), doc)
			return nil
		}

		file, err := os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outputFile, err)
		}
		defer file.Close()

		_, err = fmt.Fprint(file, doc)
		return err
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the documentation is dumped to stdout.")
}
