package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/omule0/ai-csv-analyst/internal/parser"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestParseFileCSVTypesCells(t *testing.T) {
	p := writeFile(t, "hop_harvest.csv", "\ufeffdate,plot,alpha_acids,moisture,organic\n"+
		"2024-08-10,A1,12.5,74,true\n"+
		"2024-08-12,A1,,71,FALSE\n"+
		"2024-08-15,B3,10.2%,6.8e1,maybe\n")
	tbl, err := parser.ParseFile(p, parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Name != "hop_harvest.csv" {
		t.Fatalf("name = %q", tbl.Name)
	}
	if strings.Join(tbl.Columns, ",") != "date,plot,alpha_acids,moisture,organic" {
		t.Fatalf("columns = %#v", tbl.Columns)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("rows = %d", len(tbl.Rows))
	}
	r0, r1, r2 := tbl.Rows[0], tbl.Rows[1], tbl.Rows[2]
	if r0["alpha_acids"] != 12.5 || r0["moisture"] != 74.0 || r0["organic"] != true || r0["date"] != "2024-08-10" {
		t.Fatalf("row 0 = %#v", r0)
	}
	if r1["alpha_acids"] != nil || r1["organic"] != false {
		t.Fatalf("row 1 = %#v", r1)
	}
	if r2["alpha_acids"] != "10.2%" || r2["moisture"] != 68.0 || r2["organic"] != "maybe" {
		t.Fatalf("row 2 = %#v", r2)
	}
}

func TestParseFileCSVRawCells(t *testing.T) {
	p := writeFile(t, "raw.csv", "a,b\n1,true\n,x\n")
	tbl, err := parser.ParseFile(p, parser.Options{RawCells: true})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Rows[0]["a"] != "1" || tbl.Rows[0]["b"] != "true" || tbl.Rows[1]["a"] != "" {
		t.Fatalf("rows = %#v", tbl.Rows)
	}
}

func TestParseCSVSniffsDelimiter(t *testing.T) {
	tests := []struct {
		name, content string
	}{
		{"semi.csv", "a;b;c\n1;2;3\n"},
		{"tabs.tsv", "a\tb\tc\n1\t2\t3\n"},
		{"quoted.csv", "\"x;y\",b,c\n1,2,3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := parser.Parse(tt.name, strings.NewReader(tt.content), parser.Options{})
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if len(tbl.Columns) != 3 || tbl.Rows[0][tbl.Columns[2]] != 3.0 {
				t.Fatalf("table = %#v", tbl)
			}
		})
	}
}

func TestParseCSVHeaderNames(t *testing.T) {
	tbl, err := parser.Parse("h.csv", strings.NewReader("id,,id,name\n1,2,3,4\n"), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := "id,column_2,id_2,name"
	if got := strings.Join(tbl.Columns, ","); got != want {
		t.Fatalf("columns = %q, want %q", got, want)
	}
	if tbl.Rows[0]["id_2"] != 3.0 {
		t.Fatalf("row = %#v", tbl.Rows[0])
	}
}

func TestParseCSVShortAndBlankRows(t *testing.T) {
	tbl, err := parser.Parse("s.csv", strings.NewReader("a,b,c\n1\n\n4,5,6\n"), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(tbl.Rows))
	}
	if v, ok := tbl.Rows[0]["c"]; !ok || v != nil {
		t.Fatalf("short row should pad with nil: %#v", tbl.Rows[0])
	}
}

func TestParseHeaderOnly(t *testing.T) {
	tbl, err := parser.Parse("h.csv", strings.NewReader("a,b\n"), parser.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(tbl.Columns) != 2 || len(tbl.Rows) != 0 {
		t.Fatalf("table = %#v", tbl)
	}
}

func TestParseEmptyAndUnsupported(t *testing.T) {
	if _, err := parser.Parse("empty.csv", strings.NewReader("  \n"), parser.Options{}); !errors.Is(err, parser.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, err := parser.Parse("notes.docx", strings.NewReader("x"), parser.Options{}); !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if parser.Supported("a.json") || !parser.Supported("A.XLSX") || !parser.Supported("x.parquet") {
		t.Fatalf("unexpected Supported results")
	}
	if _, err := parser.ParseFile(filepath.Join(t.TempDir(), "missing.csv"), parser.Options{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
