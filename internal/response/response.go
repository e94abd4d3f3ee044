// Package response defines the structured answers a model may give about a
// dataset and validates untrusted model output against them.
package response

import "encoding/json"

// Kind is the wire discriminant of a response.
type Kind string

const (
	KindText  Kind = "text"
	KindTable Kind = "table"
	KindChart Kind = "chart"
)

// ChartType selects the plot.
type ChartType string

const (
	ChartBar  ChartType = "bar"
	ChartLine ChartType = "line"
	ChartPie  ChartType = "pie"
)

// Layout orients bar charts.
type Layout string

const (
	LayoutVertical   Layout = "vertical"
	LayoutHorizontal Layout = "horizontal"
)

// Row is one record of a table or chart. Values are nil, string, bool or float64.
type Row = map[string]any

// Response is one of *Text, *Table or *Chart. Values only come out of
// Validate and Parse, so every Response is well formed.
type Response interface {
	Kind() Kind
	// Body is the prose that accompanies the data.
	Body() string
	json.Marshaler
	sealed()
}

type Text struct {
	Content string
}

type Table struct {
	Content string
	Headers []string
	Rows    []Row
}

type ChartConfig struct {
	Type       ChartType `json:"type"`
	XAxis      string    `json:"xAxis"`
	YAxis      []string  `json:"yAxis"`
	Title      string    `json:"title"`
	Stacked    bool      `json:"stacked,omitempty"`
	Percentage bool      `json:"percentage,omitempty"`
	Layout     Layout    `json:"layout,omitempty"`
}

type Chart struct {
	Content string
	Config  ChartConfig
	Rows    []Row
}

func (*Text) Kind() Kind  { return KindText }
func (*Table) Kind() Kind { return KindTable }
func (*Chart) Kind() Kind { return KindChart }

func (t *Text) Body() string  { return t.Content }
func (t *Table) Body() string { return t.Content }
func (c *Chart) Body() string { return c.Content }

func (*Text) sealed()  {}
func (*Table) sealed() {}
func (*Chart) sealed() {}

type wire struct {
	Type    Kind      `json:"type"`
	Content string    `json:"content"`
	Data    *wireData `json:"data,omitempty"`
}

type wireData struct {
	Headers     []string     `json:"headers,omitempty"`
	Rows        []Row        `json:"rows"`
	ChartConfig *ChartConfig `json:"chartConfig,omitempty"`
}

func (t *Text) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Type: KindText, Content: t.Content})
}

func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(wire{Type: KindTable, Content: t.Content, Data: &wireData{Headers: t.Headers, Rows: nonNil(t.Rows)}})
}

func (c *Chart) MarshalJSON() ([]byte, error) {
	cfg := c.Config
	return json.Marshal(wire{Type: KindChart, Content: c.Content, Data: &wireData{ChartConfig: &cfg, Rows: nonNil(c.Rows)}})
}

func nonNil(rows []Row) []Row {
	if rows == nil {
		return []Row{}
	}
	return rows
}
