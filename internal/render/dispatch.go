// Package render turns validated responses into display instructions.
package render

import (
	"errors"
	"fmt"

	"github.com/omule0/ai-csv-analyst/internal/response"
)

// FallbackText is shown in place of a response that failed validation.
const FallbackText = "The assistant's response could not be displayed."

// DefaultPageSize is the number of grid rows per page.
const DefaultPageSize = 10

// Mode says which renderer an Instruction is for.
type Mode string

const (
	ModeText Mode = "text"
	ModeGrid Mode = "grid"
	ModePlot Mode = "plot"
)

// Instruction is what a renderer consumes. Exactly one of Grid and Plot is
// set for the matching mode; Text is always set (it may be empty).
type Instruction struct {
	Mode     Mode   `json:"mode"`
	Text     string `json:"text"`
	Fallback bool   `json:"fallback,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Grid     *Grid  `json:"grid,omitempty"`
	Plot     *Plot  `json:"plot,omitempty"`
}

// Grid is a table with every row projected into header order.
type Grid struct {
	Headers  []string `json:"headers"`
	Rows     [][]any  `json:"rows"`
	PageSize int      `json:"pageSize"`
}

// Pages is the number of pages at PageSize rows each.
func (g *Grid) Pages() int {
	if len(g.Rows) == 0 {
		return 1
	}
	size := g.pageSize()
	return (len(g.Rows) + size - 1) / size
}

// Page returns the rows of page i, counting from zero. Out of range pages are empty.
func (g *Grid) Page(i int) [][]any {
	size := g.pageSize()
	start := i * size
	if i < 0 || start >= len(g.Rows) {
		return nil
	}
	return g.Rows[start:min(start+size, len(g.Rows))]
}

func (g *Grid) pageSize() int {
	if g.PageSize <= 0 {
		return DefaultPageSize
	}
	return g.PageSize
}

// Plot carries chart rows and the keys they are bound to. Bar and line
// charts use X and Series; pie charts use Name and Value.
type Plot struct {
	Type       response.ChartType `json:"type"`
	Title      string             `json:"title,omitempty"`
	X          string             `json:"x,omitempty"`
	Series     []string           `json:"series,omitempty"`
	Name       string             `json:"name,omitempty"`
	Value      string             `json:"value,omitempty"`
	Stacked    bool               `json:"stacked,omitempty"`
	Percentage bool               `json:"percentage,omitempty"`
	Layout     response.Layout    `json:"layout,omitempty"`
	Rows       []response.Row     `json:"rows"`
}

// Dispatch maps a validated response to its instruction. Responses only
// come from the response package, so any other dynamic type is a bug and
// panics.
func Dispatch(r response.Response) Instruction {
	switch v := r.(type) {
	case *response.Text:
		return Instruction{Mode: ModeText, Text: v.Content}
	case *response.Table:
		return Instruction{Mode: ModeGrid, Text: v.Content, Grid: project(v)}
	case *response.Chart:
		return Instruction{Mode: ModePlot, Text: v.Content, Plot: bind(v)}
	}
	panic(fmt.Sprintf("render: unexpected response type %T", r))
}

// Fallback is the instruction shown when a response could not be validated.
// The error's schema code, if any, is kept as Reason; its message is not
// shown to the user.
func Fallback(err error) Instruction {
	in := Instruction{Mode: ModeText, Text: FallbackText, Fallback: true}
	var se *response.SchemaError
	if errors.As(err, &se) {
		in.Reason = string(se.Code)
	}
	return in
}

func project(t *response.Table) *Grid {
	g := &Grid{
		Headers:  append([]string(nil), t.Headers...),
		Rows:     make([][]any, len(t.Rows)),
		PageSize: DefaultPageSize,
	}
	for i, row := range t.Rows {
		cells := make([]any, len(t.Headers))
		for j, h := range t.Headers {
			cells[j] = row[h]
		}
		g.Rows[i] = cells
	}
	return g
}

func bind(c *response.Chart) *Plot {
	p := &Plot{
		Type:       c.Config.Type,
		Title:      c.Config.Title,
		Stacked:    c.Config.Stacked,
		Percentage: c.Config.Percentage,
		Layout:     c.Config.Layout,
		Rows:       c.Rows,
	}
	if c.Config.Type == response.ChartPie {
		p.Name = c.Config.XAxis
		p.Value = c.Config.YAxis[0]
		return p
	}
	p.X = c.Config.XAxis
	p.Series = append([]string(nil), c.Config.YAxis...)
	if p.Layout == "" && p.Type == response.ChartBar {
		p.Layout = response.LayoutVertical
	}
	return p
}
