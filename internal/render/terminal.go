package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
	"github.com/omule0/ai-csv-analyst/internal/response"
)

// Terminal draws instructions as plain text: grids through a tabwriter and
// charts as horizontal ASCII bars.
type Terminal struct {
	// BarWidth is the length of the longest bar. Defaults to 40.
	BarWidth int
	// AllPages prints every grid page instead of only the first.
	AllPages bool
}

var (
	heading = color.New(color.Bold)
	warning = color.New(color.FgYellow)
)

// Write renders in to w.
func (t Terminal) Write(w io.Writer, in Instruction) error {
	if in.Fallback {
		if _, err := warning.Fprintln(w, "⚠ "+in.Text); err != nil {
			return err
		}
		return nil
	}
	if in.Text != "" {
		if _, err := fmt.Fprintln(w, in.Text); err != nil {
			return err
		}
	}
	switch in.Mode {
	case ModeGrid:
		if in.Grid == nil {
			return nil
		}
		if in.Text != "" {
			fmt.Fprintln(w)
		}
		return t.grid(w, in.Grid)
	case ModePlot:
		if in.Plot == nil {
			return nil
		}
		if in.Text != "" {
			fmt.Fprintln(w)
		}
		return t.plot(w, in.Plot)
	}
	return nil
}

func (t Terminal) grid(w io.Writer, g *Grid) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(g.Headers, "\t"))
	rule := make([]string, len(g.Headers))
	for i, h := range g.Headers {
		rule[i] = strings.Repeat("-", max(len([]rune(h)), 3))
	}
	fmt.Fprintln(tw, strings.Join(rule, "\t"))

	rows := g.Page(0)
	if t.AllPages {
		rows = g.Rows
	}
	cells := make([]string, len(g.Headers))
	for _, r := range rows {
		for i, v := range r {
			cells[i] = cell(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if !t.AllPages && g.Pages() > 1 {
		_, err := fmt.Fprintf(w, "(page 1 of %d, %d rows)\n", g.Pages(), len(g.Rows))
		return err
	}
	return nil
}

func (t Terminal) plot(w io.Writer, p *Plot) error {
	if p.Title != "" {
		heading.Fprintln(w, p.Title)
	}
	width := t.BarWidth
	if width <= 0 {
		width = 40
	}
	if p.Type == response.ChartPie {
		return pie(w, p, width)
	}

	// One line per row and series; labels padded to the widest.
	type line struct {
		label string
		value *float64
	}
	var lines []line
	for _, r := range p.Rows {
		x := cell(r[p.X])
		for _, s := range p.Series {
			label := x
			if len(p.Series) > 1 {
				label = x + " " + s
			}
			lines = append(lines, line{label: label, value: number(r[s])})
		}
	}
	peak, labelWidth := 0.0, 0
	for _, l := range lines {
		labelWidth = max(labelWidth, len([]rune(l.label)))
		if l.value != nil {
			peak = math.Max(peak, math.Abs(*l.value))
		}
	}
	for _, l := range lines {
		pad := strings.Repeat(" ", labelWidth-len([]rune(l.label)))
		if l.value == nil {
			if _, err := fmt.Fprintf(w, "%s%s | (no value)\n", l.label, pad); err != nil {
				return err
			}
			continue
		}
		n := 0
		if peak > 0 {
			n = int(math.Round(math.Abs(*l.value) / peak * float64(width)))
		}
		bar := strings.Repeat("█", n)
		if p.Type == response.ChartLine && n > 0 {
			// dotted track up to the point
			bar = strings.Repeat("·", n-1) + "●"
		}
		if _, err := fmt.Fprintf(w, "%s%s | %s %s\n", l.label, pad, bar, analysis.FormatValue(*l.value)); err != nil {
			return err
		}
	}
	return nil
}

func pie(w io.Writer, p *Plot, width int) error {
	total := 0.0
	for _, r := range p.Rows {
		if v := number(r[p.Value]); v != nil && *v > 0 {
			total += *v
		}
	}
	labelWidth := 0
	for _, r := range p.Rows {
		labelWidth = max(labelWidth, len([]rune(cell(r[p.Name]))))
	}
	for _, r := range p.Rows {
		label := cell(r[p.Name])
		share := 0.0
		if v := number(r[p.Value]); v != nil && *v > 0 && total > 0 {
			share = *v / total
		}
		pad := strings.Repeat(" ", labelWidth-len([]rune(label)))
		bar := strings.Repeat("█", int(math.Round(share*float64(width))))
		if _, err := fmt.Fprintf(w, "%s%s | %s %.1f%%\n", label, pad, bar, share*100); err != nil {
			return err
		}
	}
	return nil
}

func number(v any) *float64 {
	f, ok := v.(float64)
	if !ok {
		return nil
	}
	return &f
}

func cell(v any) string {
	if v == nil {
		return ""
	}
	return strings.NewReplacer("\t", " ", "\n", " ").Replace(analysis.FormatValue(v))
}
