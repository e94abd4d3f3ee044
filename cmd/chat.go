package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omule0/ai-csv-analyst/internal/chat"
	"github.com/omule0/ai-csv-analyst/internal/render"
	"github.com/omule0/ai-csv-analyst/internal/utils"
)

var (
	chatData   = datasetFlags{SampleRows: -1}
	chatAI     assistantFlags
	chatAsk    string
	chatStream bool
	chatJSON   bool
)

var chatCmd = &cobra.Command{
	Use:   "chat <file>",
	Short: "Ask questions about a dataset; answers render as text, tables or charts",
	Example: `  csv-analyst chat sales.csv
  csv-analyst chat sales.csv --ask "Which region sold the most units?"
  csv-analyst chat book.xlsx --sheet 2 --provider ollama --model llama3:latest`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, _, err := chatData.loadDataset(args[0])
		if err != nil {
			return err
		}
		a, err := chatAI.newAssistant()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("stream") {
			a.Stream = chatStream
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		if a.Stream {
			a.OnDelta = func(d string) { fmt.Fprint(errOut, d) }
		}
		for _, w := range ds.Warnings {
			warnColor.Fprintf(errOut, "⚠ %s\n", w)
		}

		session := chat.NewSession(ds)
		if chatAsk != "" {
			_, err := askOnce(cmd, a, session, chatAsk)
			return err
		}

		fmt.Fprintln(out, session.History[0].Content)
		fmt.Fprintln(out, "Type a question, or 'exit' to quit.")
		sc := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprint(out, "> ")
			if !sc.Scan() {
				fmt.Fprintln(out)
				return sc.Err()
			}
			q := strings.TrimSpace(sc.Text())
			switch q {
			case "":
				continue
			case "exit", "quit", ":q":
				return nil
			}
			next, err := askOnce(cmd, a, session, q)
			if err != nil {
				if !isCollaborator(err) {
					return err
				}
				// Backend failures end the turn, not the conversation.
				errColor.Fprintln(errOut, "✗ Error:", err)
				continue
			}
			session = next
		}
	},
}

func askOnce(cmd *cobra.Command, a *chat.Assistant, s *chat.Session, q string) (*chat.Session, error) {
	out := cmd.OutOrStdout()
	turn, next, err := a.Ask(cmd.Context(), s, q)
	if err != nil {
		return s, err
	}
	if a.Stream {
		fmt.Fprintln(cmd.ErrOrStderr())
	}
	for _, w := range turn.Warnings {
		warnColor.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
	}
	if turn.Fallback {
		log.Debug("cmd", "fallback answer", map[string]any{"raw": utils.TruncateToTokenLimit(turn.Raw, 200), "error": turn.Err})
	}
	if err := writeInstruction(out, turn.Instruction, chatJSON); err != nil {
		return next, err
	}
	return next, nil
}

func writeInstruction(w io.Writer, in render.Instruction, asJSON bool) error {
	if asJSON {
		b, err := utils.PrettyJSON(in)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	return render.Terminal{}.Write(w, in)
}

// isCollaborator reports whether err came from the text-generation backend.
func isCollaborator(err error) bool {
	var ce *chat.CollaboratorError
	return errors.As(err, &ce)
}

func init() {
	rootCmd.AddCommand(chatCmd)
	f := chatCmd.Flags()
	f.StringVar(&chatAsk, "ask", "", "ask a single question and exit")
	f.BoolVar(&chatStream, "stream", false, "stream the model output while it is generated")
	f.BoolVar(&chatJSON, "json", false, "print render instructions as JSON")
	f.StringVar(&chatData.Delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&chatData.Sheet, "sheet", "", "XLSX: sheet name or 1-based index")
	f.BoolVar(&chatData.RawCells, "raw-cells", false, "keep every cell as a string (no dynamic typing)")
	f.BoolVar(&chatData.FullEmbed, "full-embed", false, "send every row instead of a bounded summary")
	f.IntVar(&chatData.SampleRows, "sample-rows", -1, "number of sample rows to include (default from config)")
	f.StringVar(&chatAI.Model, "model", "", "model name (default from config)")
	f.StringVar(&chatAI.Provider, "provider", "", "provider: openrouter|ollama")
	f.StringVar(&chatAI.OllamaHost, "ollama-host", "", "Ollama host URL")
	f.IntVar(&chatAI.MaxTokens, "max-tokens", 0, "completion token limit")
}
