package parser

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

func parquetFixture(t *testing.T) []byte {
	t.Helper()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "region", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "units", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "price", Type: arrow.PrimitiveTypes.Float64},
		{Name: "active", Type: arrow.FixedWidthTypes.Boolean},
	}, nil)
	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"North", "South", ""}, []bool{true, true, false})
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 20, 0}, []bool{true, true, false})
	b.Field(2).(*array.Float64Builder).AppendValues([]float64{1.5, 2.5, 3.5}, nil)
	b.Field(3).(*array.BooleanBuilder).AppendValues([]bool{true, false, true}, nil)
	rec := b.NewRecord()
	defer rec.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	require.NoError(t, pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps()))
	return buf.Bytes()
}

func TestParseParquet(t *testing.T) {
	tbl, err := Parse("sales.parquet", bytes.NewReader(parquetFixture(t)), Options{})
	require.NoError(t, err)

	assert.Equal(t, "sales.parquet", tbl.Name)
	assert.Equal(t, []string{"region", "units", "price", "active"}, tbl.Columns)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, "North", tbl.Rows[0]["region"])
	assert.Equal(t, int64(10), tbl.Rows[0]["units"])
	assert.Equal(t, 2.5, tbl.Rows[1]["price"])
	assert.Equal(t, false, tbl.Rows[1]["active"])
	assert.Nil(t, tbl.Rows[2]["region"])
	assert.Nil(t, tbl.Rows[2]["units"])

	ds := analysis.Build(tbl.Rows, tbl.Columns, analysis.DefaultOptions())
	units := ds.PerColumn["units"]
	assert.Equal(t, analysis.KindNumeric, units.Kind)
	assert.Equal(t, 2, units.Count)
	assert.Equal(t, 1, units.Missing)
	assert.Equal(t, analysis.KindCategorical, ds.PerColumn["active"].Kind)
}

func TestParseParquetRawCells(t *testing.T) {
	tbl, err := Parse("sales.parquet", bytes.NewReader(parquetFixture(t)), Options{RawCells: true})
	require.NoError(t, err)
	assert.Equal(t, "10", tbl.Rows[0]["units"])
	assert.Equal(t, "true", tbl.Rows[0]["active"])
}

func TestParseParquetRejectsGarbage(t *testing.T) {
	_, err := Parse("bad.parquet", bytes.NewReader([]byte("not parquet at all")), Options{})
	assert.Error(t, err)
}
