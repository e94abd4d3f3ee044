package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/omule0/ai-csv-analyst/internal/render"
	"github.com/omule0/ai-csv-analyst/internal/response"
)

var valJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|->",
	Short: "Check a model answer against the response schema and show how it renders",
	Example: `  csv-analyst validate answer.json
  echo '{"type":"text","content":"hi"}' | csv-analyst validate -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			raw []byte
			err error
		)
		if args[0] == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		r, err := response.Parse(string(raw))
		if err != nil {
			var se *response.SchemaError
			if errors.As(err, &se) {
				return fmt.Errorf("invalid response (%s): %w", se.Code, err)
			}
			return err
		}
		okColor.Fprintf(cmd.ErrOrStderr(), "✓ Valid %s response\n", r.Kind())
		return writeInstruction(cmd.OutOrStdout(), render.Dispatch(r), valJSON)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&valJSON, "json", false, "print the render instruction as JSON")
}
