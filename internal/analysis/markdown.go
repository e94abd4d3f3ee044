package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// Markdown renders a compact report suitable for prompts or standalone docs.
func (ds *DatasetSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if ds.Name != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", ds.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", ds.RowCount))
	b.WriteString(fmt.Sprintf("Columns: %d\n", len(ds.Columns)))

	if len(ds.PerColumn) > 0 {
		b.WriteString("\n[SCHEMA]\n")
		for _, name := range ds.Columns {
			c, ok := ds.PerColumn[name]
			if !ok {
				b.WriteString(fmt.Sprintf("- %s: (summary omitted)\n", safeName(name)))
				continue
			}
			b.WriteString(fmt.Sprintf("- %s: %s (missing %d)", safeName(name), c.Kind, c.Missing))
			switch {
			case c.NumericStats != nil:
				if c.Count == 0 {
					b.WriteString(" — no numeric values")
					break
				}
				b.WriteString(fmt.Sprintf(" — count %d, min %.4g, max %.4g, average %.4g", c.Count, *c.Min, *c.Max, *c.Average))
				if c.Std != nil {
					b.WriteString(fmt.Sprintf(", std %.4g", *c.Std))
				}
				if c.Median != nil {
					b.WriteString(fmt.Sprintf(", median %.4g (p25 %.4g, p75 %.4g)", *c.Median, *c.P25, *c.P75))
				}
				if c.OutlierThreshold > 0 {
					b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f", c.Outliers, c.OutlierThreshold))
				}
			case c.CategoricalStats != nil:
				b.WriteString(fmt.Sprintf(" — unique=%d", c.UniqueCount))
				if c.UniqueCount > 0 {
					b.WriteString(fmt.Sprintf(", most common %s(%d)", safeVal(FormatValue(c.MostCommon)), c.MostCommonCount))
				}
				if len(c.TopValues) > 0 {
					b.WriteString("; top: ")
					for i, kv := range c.TopValues {
						if i > 0 {
							b.WriteString(", ")
						}
						b.WriteString(fmt.Sprintf("%s(%d)", safeVal(FormatValue(kv.Value)), kv.Count))
					}
				}
				if len(c.DistinctSample) > 0 {
					b.WriteString("; e.g., ")
					for i, v := range c.DistinctSample {
						if i > 0 {
							b.WriteString(" | ")
						}
						b.WriteString(safeVal(FormatValue(v)))
					}
				}
			}
			b.WriteString("\n")
		}
	}

	if len(ds.Sample) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		writeTable(&b, ds.Columns, ds.Sample)
	}
	if ds.FullEmbed && len(ds.Rows) > 0 {
		b.WriteString("\n[ALL ROWS]\n")
		writeTable(&b, ds.Columns, ds.Rows)
	}
	if len(ds.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range ds.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func writeTable(b *strings.Builder, columns []string, rows []Row) {
	b.WriteString("| ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(safeName(c))
	}
	b.WriteString(" |\n| ")
	for i := range columns {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString("---")
	}
	b.WriteString(" |\n")
	for _, row := range rows {
		b.WriteString("| ")
		for i, c := range columns {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeVal(FormatValue(row[c])))
		}
		b.WriteString(" |\n")
	}
}

// FormatValue renders a cell for human display.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		if t == "" {
			return `""`
		}
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
