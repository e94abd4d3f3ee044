package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/omule0/ai-csv-analyst/internal/analysis"
)

type xlsxParser struct{}

func (xlsxParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

// Parse reads one worksheet. The first row is the header; later rows become
// records keyed by it. Without a sheet selection the first sheet is used.
func (xlsxParser) Parse(content []byte, opt Options) (*Table, error) {
	wb, err := openWorkbook(content)
	if err != nil {
		return nil, err
	}
	sh, err := wb.selectSheet(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, err
	}
	data, err := wb.file(sh.target)
	if err != nil {
		return nil, err
	}
	rr := &sheetRows{dec: xml.NewDecoder(bytes.NewReader(data)), shared: wb.shared}
	header, ok := rr.next()
	if !ok || len(header) == 0 {
		return nil, ErrEmpty
	}
	names := make([]string, len(header))
	for i, c := range header {
		if c != nil {
			names[i] = fmt.Sprint(c)
		}
	}
	t := &Table{Sheet: sh.Name, Columns: uniqueHeaders(names)}
	for {
		cells, ok := rr.next()
		if !ok {
			break
		}
		if allNil(cells) {
			continue
		}
		row := make(analysis.Row, len(t.Columns))
		for i, c := range t.Columns {
			var v any
			if i < len(cells) {
				v = cells[i]
			}
			if _, isText := v.(string); opt.RawCells && v != nil && !isText {
				v = analysis.FormatValue(v)
			}
			row[c] = v
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

type workbook struct {
	zr     *zip.Reader
	sheets []sheetRef
	shared []string
}

type sheetRef struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	target  string
}

func openWorkbook(content []byte) (*workbook, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb := &workbook{zr: zr}

	var doc struct {
		Sheets []sheetRef `xml:"sheets>sheet"`
	}
	raw, err := wb.file("xl/workbook.xml")
	if err != nil {
		return nil, err
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse workbook: %w", err)
	}

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
		} `xml:"Relationship"`
	}
	if raw, err := wb.file("xl/_rels/workbook.xml.rels"); err == nil {
		_ = xml.Unmarshal(raw, &rels)
	}
	targets := map[string]string{}
	for _, r := range rels.Items {
		targets[r.ID] = normalizeRelPath(r.Target)
	}
	for _, s := range doc.Sheets {
		s.target = targets[s.RID]
		if s.target == "" {
			s.target = fmt.Sprintf("xl/worksheets/sheet%d.xml", s.SheetID)
		}
		wb.sheets = append(wb.sheets, s)
	}

	if raw, err := wb.file("xl/sharedStrings.xml"); err == nil {
		wb.shared = parseSharedStrings(raw)
	}
	return wb, nil
}

func (wb *workbook) file(name string) ([]byte, error) {
	for _, f := range wb.zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("xlsx entry %s not found", name)
}

// selectSheet resolves a sheet by case-insensitive name, else by 1-based
// sheetId, else the first sheet.
func (wb *workbook) selectSheet(name string, index int) (sheetRef, error) {
	if len(wb.sheets) == 0 {
		return sheetRef{}, fmt.Errorf("workbook has no sheets")
	}
	if name != "" {
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, name) {
				return s, nil
			}
		}
		return sheetRef{}, fmt.Errorf("sheet '%s' not found.\nAvailable sheets: %s", name, strings.Join(wb.sheetNames(), ", "))
	}
	if index > 0 {
		for _, s := range wb.sheets {
			if s.SheetID == index {
				return s, nil
			}
		}
		if index <= len(wb.sheets) {
			return wb.sheets[index-1], nil
		}
		return sheetRef{}, fmt.Errorf("sheet index %d out of range (workbook has %d sheets)", index, len(wb.sheets))
	}
	return wb.sheets[0], nil
}

func (wb *workbook) sheetNames() []string {
	out := make([]string, len(wb.sheets))
	for i, s := range wb.sheets {
		out[i] = s.Name
	}
	return out
}

// parseSharedStrings concatenates every <t> run inside each <si>, so rich
// text entries come back as plain strings.
func parseSharedStrings(data []byte) []string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		out []string
		buf strings.Builder
		inT bool
	)
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch se.Name.Local {
			case "si":
				buf.Reset()
			case "t":
				inT = true
			}
		case xml.EndElement:
			switch se.Name.Local {
			case "t":
				inT = false
			case "si":
				out = append(out, buf.String())
			}
		case xml.CharData:
			if inT {
				buf.Write(se)
			}
		}
	}
}

// sheetRows streams rows from a worksheet. Cells are typed by their t
// attribute: numbers become float64, booleans bool, everything else string.
type sheetRows struct {
	dec    *xml.Decoder
	shared []string
}

func (r *sheetRows) next() ([]any, bool) {
	var (
		row   []any
		inRow bool
	)
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow = true
				row = nil
			case inRow && se.Name.Local == "c":
				var ref, typ string
				for _, a := range se.Attr {
					switch a.Name.Local {
					case "r":
						ref = a.Value
					case "t":
						typ = a.Value
					}
				}
				idx := len(row)
				if i := colIndexFromRef(ref); i >= 0 {
					idx = i
				}
				for len(row) <= idx {
					row = append(row, nil)
				}
				row[idx] = r.cell(typ)
			}
		case xml.EndElement:
			if se.Name.Local == "row" {
				return row, true
			}
		}
	}
}

// cell consumes tokens through </c> and returns the typed value.
func (r *sheetRows) cell(typ string) any {
	var (
		text strings.Builder
		have bool
		in   bool
	)
	for {
		tok, err := r.dec.Token()
		if err != nil {
			break
		}
		if se, ok := tok.(xml.StartElement); ok && (se.Name.Local == "v" || se.Name.Local == "t") {
			in, have = true, true
			continue
		}
		if ee, ok := tok.(xml.EndElement); ok {
			if ee.Name.Local == "v" || ee.Name.Local == "t" {
				in = false
				continue
			}
			if ee.Name.Local == "c" {
				break
			}
		}
		if cd, ok := tok.(xml.CharData); ok && in {
			text.Write(cd)
		}
	}
	if !have {
		return nil
	}
	val := text.String()
	switch typ {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil || idx < 0 || idx >= len(r.shared) {
			return nil
		}
		return r.shared[idx]
	case "b":
		return strings.TrimSpace(val) == "1"
	case "inlineStr", "str", "e":
		return val
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
		return f
	}
	return val
}

// colIndexFromRef maps a reference like "C12" to its 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

// normalizeRelPath converts relationship targets to ZIP entry names.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}

func allNil(cells []any) bool {
	for _, c := range cells {
		if c != nil {
			return false
		}
	}
	return true
}
