package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/utils"
)

var (
	anaData     = datasetFlags{SampleRows: -1}
	anaAI       assistantFlags
	anaOutDir   string
	anaFormat   string
	anaInsights bool
	anaQuiet    bool
)

// analysisReport is the JSON form of one analyzed file.
type analysisReport struct {
	File     string                   `json:"file"`
	Sheet    string                   `json:"sheet,omitempty"`
	Summary  *analysis.DatasetSummary `json:"summary"`
	Insights string                   `json:"insights,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Summarize CSV/TSV/XLSX/Parquet files (globs allowed)",
	Example: `  csv-analyst analyze sales.csv
  csv-analyst analyze "data/*.csv" --out-dir summaries --format json
  csv-analyst analyze book.xlsx --sheet Data --insights`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch anaFormat {
		case "md", "markdown", "json":
		default:
			return fmt.Errorf("unsupported --format: %s (use md|json)", anaFormat)
		}
		files, err := expandInputs(args)
		if err != nil {
			return err
		}
		if anaOutDir != "" {
			if err := os.MkdirAll(anaOutDir, 0o755); err != nil {
				return fmt.Errorf("create out dir: %w", err)
			}
		}
		out := cmd.OutOrStdout()

		for i, path := range files {
			if !anaQuiet && len(files) > 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", i+1, len(files), path)
			}
			ds, tbl, err := anaData.loadDataset(path)
			if err != nil {
				return err
			}
			if !anaQuiet {
				for _, w := range ds.Warnings {
					warnColor.Fprintf(cmd.ErrOrStderr(), "⚠ %s\n", w)
				}
			}
			rep := analysisReport{File: tbl.Name, Sheet: tbl.Sheet, Summary: ds}
			if anaInsights {
				a, err := anaAI.newAssistant()
				if err != nil {
					return err
				}
				if rep.Insights, err = a.Insights(cmd.Context(), ds); err != nil {
					return err
				}
			}

			body, ext, err := renderReport(rep, anaFormat)
			if err != nil {
				return err
			}
			if anaOutDir == "" {
				fmt.Fprintln(out, body)
				continue
			}
			base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			target := uniqueOutPath(anaOutDir, base, ".summary"+ext)
			if filepath.Base(target) != base+".summary"+ext && !anaQuiet {
				warnColor.Fprintf(cmd.ErrOrStderr(), "⚠ Detected existing summary, writing to %s to avoid overwrite.\n", filepath.Base(target))
			}
			if err := utils.SafeWriteFile(target, []byte(body), 0o644); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
			if !anaQuiet {
				okColor.Fprintf(out, "✓ Wrote %s\n", target)
			}
		}
		return nil
	},
}

func renderReport(rep analysisReport, format string) (string, string, error) {
	if format == "json" {
		b, err := utils.PrettyJSON(rep)
		if err != nil {
			return "", "", err
		}
		return string(b), ".json", nil
	}
	md := rep.Summary.Markdown()
	if rep.Insights != "" {
		md = strings.TrimRight(md, "\n") + "\n\n[AI INSIGHTS]\n" + rep.Insights + "\n"
	}
	return md, ".md", nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	f := analyzeCmd.Flags()
	f.StringVarP(&anaOutDir, "out-dir", "o", "", "write <name>.summary.<ext> files into this directory instead of stdout")
	f.StringVar(&anaFormat, "format", "md", "output format: md|json")
	f.BoolVar(&anaInsights, "insights", false, "ask the model for key insights, patterns, anomalies and recommendations")
	f.BoolVar(&anaQuiet, "quiet", false, "suppress progress and non-essential output")
	f.StringVar(&anaData.Delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' (sniffed if omitted)")
	f.StringVar(&anaData.Sheet, "sheet", "", "XLSX: sheet name or 1-based index")
	f.BoolVar(&anaData.RawCells, "raw-cells", false, "keep every cell as a string (no dynamic typing)")
	f.BoolVar(&anaData.FullEmbed, "full-embed", false, "keep every row instead of a bounded summary")
	f.IntVar(&anaData.SampleRows, "sample-rows", -1, "number of sample rows to include (default from config)")
	f.StringVar(&anaAI.Model, "model", "", "model for --insights (default from config)")
	f.StringVar(&anaAI.Provider, "provider", "", "provider for --insights: openrouter|ollama")
	f.StringVar(&anaAI.OllamaHost, "ollama-host", "", "Ollama host URL")
	f.IntVar(&anaAI.MaxTokens, "max-tokens", 0, "completion token limit for --insights")
}
