package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omule0/ai-csv-analyst/internal/ai"
)

var modelsJSON bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models and their context windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := ai.Catalog()
		out := cmd.OutOrStdout()
		if modelsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cat)
		}
		for _, mi := range cat {
			fmt.Fprintf(out, "%-36s %8d tokens\n", mi.Name, mi.ContextTokens)
		}
		fmt.Fprintf(out, "\nProviders: %v\n", ai.Providers())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().BoolVar(&modelsJSON, "json", false, "print as JSON")
}
