package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

// Table is a parsed tabular file: ordered column names and rows keyed by them.
type Table struct {
	Name    string
	Sheet   string
	Columns []string
	Rows    []analysis.Row
}

// Options controls file parsing.
type Options struct {
	// Delimiter for CSV. If 0, sniffed from the header line.
	Delimiter rune
	// SheetName selects an XLSX sheet by name; SheetIndex is 1-based and used
	// when SheetName is empty.
	SheetName  string
	SheetIndex int
	// RawCells disables dynamic typing, keeping every cell as a string.
	RawCells bool
}

// Parser defines a tabular format implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte, opt Options) (*Table, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported file format")

// ErrEmpty indicates the input carried no header row.
var ErrEmpty = errors.New("file is empty")

// Parse reads r fully and parses it with the parser registered for name's extension.
func Parse(name string, r io.Reader, opt Options) (*Table, error) {
	p := lookup(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(name))
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, filepath.Base(name))
	}
	t, err := p.Parse(data, opt)
	if err != nil {
		return nil, err
	}
	t.Name = filepath.Base(name)
	return t, nil
}

// ParseFile opens path and parses it.
func ParseFile(path string, opt Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()
	return Parse(path, f, opt)
}

// Supported reports whether a parser exists for name.
func Supported(name string) bool { return lookup(name) != nil }

func lookup(name string) Parser {
	for _, p := range registry {
		if p.CanParse(name) {
			return p
		}
	}
	return nil
}

func init() {
	Register(csvParser{})
	Register(xlsxParser{})
	Register(parquetParser{})
}
