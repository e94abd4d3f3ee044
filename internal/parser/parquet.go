package parser

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

type parquetParser struct{}

func (parquetParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".parquet")
}

// Parse loads the whole file as an Arrow table and flattens it into rows.
// Parquet carries its own types, so RawCells only affects non-string columns.
func (parquetParser) Parse(content []byte, opt Options) (*Table, error) {
	pf, err := file.NewParquetReader(bytes.NewReader(content), file.WithReadProps(parquet.NewReaderProperties(memory.DefaultAllocator)))
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet reader: %w", err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		return nil, fmt.Errorf("failed to create arrow reader: %w", err)
	}
	tbl, err := fr.ReadTable(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	defer tbl.Release()

	fields := tbl.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	t := &Table{Columns: uniqueHeaders(names)}

	tr := array.NewTableReader(tbl, 1024)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for r := 0; r < int(rec.NumRows()); r++ {
			row := make(analysis.Row, len(t.Columns))
			for c, name := range t.Columns {
				v := arrowValue(rec.Column(c), r)
				if _, isText := v.(string); opt.RawCells && v != nil && !isText {
					v = analysis.FormatValue(v)
				}
				row[name] = v
			}
			t.Rows = append(t.Rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, fmt.Errorf("failed to read parquet data: %w", err)
	}
	return t, nil
}

// arrowValue converts one cell to the row value set used by the summarizer:
// nil, string, bool or a Go number. Dates and timestamps become ISO strings.
func arrowValue(col arrow.Array, pos int) any {
	if col.IsNull(pos) {
		return nil
	}
	switch a := col.(type) {
	case *array.String:
		return a.Value(pos)
	case *array.LargeString:
		return a.Value(pos)
	case *array.Binary:
		return string(a.Value(pos))
	case *array.Boolean:
		return a.Value(pos)
	case *array.Int8:
		return int64(a.Value(pos))
	case *array.Int16:
		return int64(a.Value(pos))
	case *array.Int32:
		return int64(a.Value(pos))
	case *array.Int64:
		return a.Value(pos)
	case *array.Uint8:
		return uint64(a.Value(pos))
	case *array.Uint16:
		return uint64(a.Value(pos))
	case *array.Uint32:
		return uint64(a.Value(pos))
	case *array.Uint64:
		return a.Value(pos)
	case *array.Float16:
		return float64(a.Value(pos).Float32())
	case *array.Float32:
		return float64(a.Value(pos))
	case *array.Float64:
		return a.Value(pos)
	case *array.Date32:
		return a.Value(pos).ToTime().Format("2006-01-02")
	case *array.Date64:
		return a.Value(pos).ToTime().Format("2006-01-02")
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(pos).ToTime(unit).UTC().Format(time.RFC3339Nano)
	}
	return col.ValueStr(pos)
}
