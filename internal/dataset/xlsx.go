package dataset

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// LoadXLSX reads one worksheet of a workbook. An empty SheetName and a
// SheetIndex <= 0 select the first sheet.
func LoadXLSX(p string, opt Options) (*Dataset, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()
	rows, err := readSheet(&zr.Reader, opt.SheetName, opt.SheetIndex, opt.MaxRows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	return fromRows(filepath.Base(p), rows, opt)
}

type wbSheet struct {
	Name    string
	SheetID int
	RID     string
}

func readSheet(zr *zip.Reader, sheetName string, sheetIndex, maxRows int) ([][]string, error) {
	sheets := parseWorkbook(readZipFile(zr, "xl/workbook.xml"))
	rels := parseRelationships(readZipFile(zr, "xl/_rels/workbook.xml.rels"))
	shared := parseSharedStrings(readZipFile(zr, "xl/sharedStrings.xml"))

	target := ""
	if sheetName != "" {
		names := make([]string, len(sheets))
		for i, s := range sheets {
			names[i] = s.Name
			if target == "" && strings.EqualFold(s.Name, sheetName) {
				target = normalizeRelPath(rels[s.RID])
			}
		}
		if target == "" {
			return nil, fmt.Errorf("sheet %q not found (available: %s)", sheetName, strings.Join(names, ", "))
		}
	} else {
		idx := sheetIndex
		if idx <= 0 {
			idx = 1
		}
		// Workbook order first, sheetId as fallback, then the conventional path.
		if idx <= len(sheets) {
			if rel, ok := rels[sheets[idx-1].RID]; ok {
				target = normalizeRelPath(rel)
			}
		}
		for _, s := range sheets {
			if target == "" && s.SheetID == idx {
				if rel, ok := rels[s.RID]; ok {
					target = normalizeRelPath(rel)
				}
			}
		}
		if target == "" {
			target = fmt.Sprintf("xl/worksheets/sheet%d.xml", idx)
		}
	}

	data := readZipFile(zr, target)
	if data == nil {
		return nil, fmt.Errorf("worksheet %s missing from workbook", target)
	}
	rr := newSheetRowReader(data, shared)
	var rows [][]string
	for {
		row, ok := rr.Next()
		if !ok {
			break
		}
		rows = append(rows, row)
		if maxRows > 0 && len(rows) > maxRows {
			break
		}
	}
	return rows, nil
}

func parseWorkbook(data []byte) []wbSheet {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var sheets []wbSheet
	for {
		tok, err := dec.Token()
		if err != nil {
			return sheets
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "sheet" {
			var s wbSheet
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "name":
					s.Name = a.Value
				case "sheetId":
					s.SheetID = atoiSafe(a.Value)
				case "id":
					s.RID = a.Value
				}
			}
			sheets = append(sheets, s)
		}
	}
}

// parseRelationships maps relationship ids to their targets.
func parseRelationships(data []byte) map[string]string {
	out := map[string]string{}
	if len(data) == 0 {
		return out
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return out
		}
		if se, ok := tok.(xml.StartElement); ok && se.Name.Local == "Relationship" {
			var id, target string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "Id":
					id = a.Value
				case "Target":
					target = a.Value
				}
			}
			if id != "" && target != "" {
				out[id] = target
			}
		}
	}
}

func readZipFile(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil
		}
		return b
	}
	return nil
}

func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inT := false
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

type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

func newSheetRowReader(data []byte, shared []string) *sheetRowReader {
	return &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(data)), shared: shared}
}

// Next returns the next <row> as a dense slice; cells missing from the
// sparse encoding come back empty.
func (r *sheetRowReader) Next() ([]string, bool) {
	var row []string
	inRow := false
	next := 0
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return nil, false
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "row" {
				inRow, row, next = true, nil, 0
				continue
			}
			if !inRow || se.Name.Local != "c" {
				continue
			}
			var ref, typ string
			for _, a := range se.Attr {
				switch a.Name.Local {
				case "r":
					ref = a.Value
				case "t":
					typ = a.Value
				}
			}
			col := next
			if ref != "" {
				col = colIndexFromRef(ref)
			}
			next = col + 1
			val := r.readCellValue(typ)
			for len(row) <= col {
				row = append(row, "")
			}
			row[col] = val
		case xml.EndElement:
			if inRow && se.Name.Local == "row" {
				return row, true
			}
		}
	}
}

func (r *sheetRowReader) readCellValue(typ string) string {
	var val string
	for {
		tok, err := r.dec.Token()
		if err != nil {
			return val
		}
		switch se := tok.(type) {
		case xml.StartElement:
			if se.Name.Local == "v" || se.Name.Local == "t" {
				var sb strings.Builder
				for {
					tk, err := r.dec.Token()
					if err != nil {
						break
					}
					if ed, ok := tk.(xml.EndElement); ok && (ed.Name.Local == "v" || ed.Name.Local == "t") {
						break
					}
					if ch, ok := tk.(xml.CharData); ok {
						sb.Write(ch)
					}
				}
				val = sb.String()
			}
		case xml.EndElement:
			if se.Name.Local != "c" {
				continue
			}
			if typ == "s" {
				idx := atoiSafe(val)
				if idx >= 0 && idx < len(r.shared) {
					return r.shared[idx]
				}
				return ""
			}
			return val
		}
	}
}

// colIndexFromRef turns a cell reference like "C12" into a 0-based column.
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

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath maps relationship targets ("/xl/worksheets/sheet1.xml",
// "worksheets/sheet1.xml") to zip entry names.
func normalizeRelPath(rel string) string {
	if rel == "" {
		return ""
	}
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return path.Clean(rel)
	}
	return path.Join("xl", rel)
}
