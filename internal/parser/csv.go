package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

type csvParser struct{}

func (csvParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv")
}

func (csvParser) Parse(content []byte, opt Options) (*Table, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(content)
	}
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	t := &Table{Columns: uniqueHeaders(header)}
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		t.Rows = append(t.Rows, buildRow(t.Columns, rec, opt.RawCells))
	}
	return t, nil
}

// sniffDelimiter picks the most frequent of ',', ';' and tab on the header line,
// ignoring quoted sections. Comma wins ties.
func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	counts := map[rune]int{}
	inQuote := false
	for _, c := range string(line) {
		switch {
		case c == '"':
			inQuote = !inQuote
		case !inQuote && (c == ',' || c == ';' || c == '\t'):
			counts[c]++
		}
	}
	best := ','
	for _, c := range []rune{';', '\t'} {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

// uniqueHeaders names blank headers by position and suffixes duplicates so
// every column maps to its own key.
func uniqueHeaders(header []string) []string {
	out := make([]string, len(header))
	seen := map[string]int{}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		seen[name]++
		out[i] = name
	}
	return out
}

func buildRow(columns, rec []string, raw bool) analysis.Row {
	row := make(analysis.Row, len(columns))
	for i, c := range columns {
		cell := ""
		if i < len(rec) {
			cell = rec[i]
		}
		if raw {
			row[c] = cell
			continue
		}
		row[c] = typedCell(cell)
	}
	return row
}

var floatPattern = regexp.MustCompile(`^\s*-?(\d+\.?\d*|\.\d+)([eE][-+]?\d+)?\s*$`)

// typedCell converts plain decimal numbers to float64 and true/false to bool.
// Empty cells become nil. Everything else stays a string.
func typedCell(cell string) any {
	switch cell {
	case "":
		return nil
	case "true", "TRUE", "True":
		return true
	case "false", "FALSE", "False":
		return false
	}
	if floatPattern.MatchString(cell) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil && !math.IsInf(f, 0) {
			return f
		}
	}
	return cell
}
