package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { color.NoColor = true }

func TestTerminalGrid(t *testing.T) {
	var buf bytes.Buffer
	in := Dispatch(mustParse(t, `{"type":"table","content":"Top regions","data":{"headers":["region","units"],"rows":[{"region":"North","units":10},{"region":"South"}]}}`))
	require.NoError(t, Terminal{}.Write(&buf, in))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Top regions", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "region  units", lines[2])
	assert.Equal(t, "North   10", lines[4])
	assert.Equal(t, "South", strings.TrimSpace(lines[5]))
}

func TestTerminalGridFirstPageOnly(t *testing.T) {
	g := &Grid{Headers: []string{"n"}, PageSize: 2, Rows: [][]any{{1.0}, {2.0}, {3.0}}}
	var buf bytes.Buffer
	require.NoError(t, Terminal{}.Write(&buf, Instruction{Mode: ModeGrid, Grid: g}))
	out := buf.String()
	assert.Contains(t, out, "(page 1 of 2, 3 rows)")
	assert.NotContains(t, out, "3\n")

	buf.Reset()
	require.NoError(t, Terminal{AllPages: true}.Write(&buf, Instruction{Mode: ModeGrid, Grid: g}))
	assert.Contains(t, buf.String(), "3\n")
}

func TestTerminalBarChart(t *testing.T) {
	var buf bytes.Buffer
	in := Dispatch(mustParse(t, `{"type":"chart","content":"","data":{"chartConfig":{"type":"bar","xAxis":"k","yAxis":["v"],"title":"Units"},"rows":[{"k":"a","v":10},{"k":"bb","v":5},{"k":"c","v":null}]}}`))
	require.NoError(t, Terminal{BarWidth: 10}.Write(&buf, in))
	assert.Equal(t, "Units\na  | ██████████ 10\nbb | █████ 5\nc  | (no value)\n", buf.String())
}

func TestTerminalLineChart(t *testing.T) {
	var buf bytes.Buffer
	in := Dispatch(mustParse(t, `{"type":"chart","content":"","data":{"chartConfig":{"type":"line","xAxis":"m","yAxis":["v"]},"rows":[{"m":"jan","v":4},{"m":"feb","v":2},{"m":"mar","v":0}]}}`))
	require.NoError(t, Terminal{BarWidth: 4}.Write(&buf, in))
	assert.Equal(t, "jan | ···● 4\nfeb | ·● 2\nmar |  0\n", buf.String())
}

func TestTerminalPieChart(t *testing.T) {
	var buf bytes.Buffer
	in := Dispatch(mustParse(t, `{"type":"chart","content":"","data":{"chartConfig":{"type":"pie","xAxis":"k","yAxis":["v"]},"rows":[{"k":"a","v":3},{"k":"b","v":1}]}}`))
	require.NoError(t, Terminal{BarWidth: 4}.Write(&buf, in))
	assert.Equal(t, "a | ███ 75.0%\nb | █ 25.0%\n", buf.String())
}

func TestTerminalFallback(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Terminal{}.Write(&buf, Fallback(nil)))
	assert.Equal(t, "⚠ "+FallbackText+"\n", buf.String())
}
