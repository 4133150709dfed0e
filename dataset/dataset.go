// Package dataset loads delimited tabular data and serves immutable views of
// it: schema, previews, numeric projections and summary statistics. A Dataset
// never changes after Load; every accessor returns copies.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrParse marks any load failure: undecodable bytes, ragged records, missing
// header or data rows. Loading never panics.
var ErrParse = errors.New("dataset parse failure")

type Kind int

const (
	KindText Kind = iota
	KindNumeric
	KindCategorical
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindDatetime:
		return "datetime"
	default:
		return "text"
	}
}

// Column is one schema entry.
type Column struct {
	Name    string
	Kind    Kind
	NonNull int
}

// Table is a plain rectangular result, used for previews and for tabular
// sandbox results.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Markdown renders the table as a pipe table.
func (t Table) Markdown() string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(t.Columns, " | ") + " |\n")
	sep := make([]string, len(t.Columns))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("| " + strings.Join(sep, " | ") + " |\n")
	for _, row := range t.Rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}

type columnMeta struct {
	kind         Kind
	nonNull      int
	unique       int
	decimalComma bool
}

type Dataset struct {
	name string
	cols []string
	meta []columnMeta
	rows [][]string
}

// LoadFile reads and parses a delimited file.
func LoadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()
	return Load(f.Name(), f)
}

// Load parses delimited text into a Dataset. The delimiter is sniffed from
// the header line (comma, semicolon, tab or pipe) and input that is not valid
// UTF-8 is decoded as Latin-1 before parsing. The first record is the header.
func Load(name string, r io.Reader) (*Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if !utf8.Valid(raw) {
		decoded, derr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
		if derr != nil {
			return nil, fmt.Errorf("%w: cannot decode input: %v", ErrParse, derr)
		}
		raw = decoded
	}
	text := strings.TrimPrefix(string(raw), "\uFEFF")

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = sniffDelimiter(text)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrParse)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: header but no data rows", ErrParse)
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
		if header[i] == "" {
			return nil, fmt.Errorf("%w: empty column name at position %d", ErrParse, i+1)
		}
	}

	d := &Dataset{
		name: name,
		cols: header,
		rows: records[1:],
	}
	d.meta = inferColumns(header, d.rows)
	return d, nil
}

// sniffDelimiter picks the candidate that occurs most often in the header line.
func sniffDelimiter(text string) rune {
	line := text
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		line = text[:i]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

var dateFormats = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2006/01/02",
}

func isNull(cell string) bool {
	switch strings.ToLower(cell) {
	case "", "na", "n/a", "null", "nan":
		return true
	}
	return false
}

// parseNumeric parses a cell as a float. With decimalComma set, a single
// comma and no dot is read as the decimal separator.
func parseNumeric(cell string, decimalComma bool) (float64, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	if decimalComma && strings.Count(cell, ",") == 1 && !strings.Contains(cell, ".") {
		cell = strings.Replace(cell, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// inferColumns decides each column's kind from cell parse rates: numeric when
// nearly all non-null cells parse as numbers (dot or comma decimals), then
// datetime, then categorical when distinct values are few, else text.
func inferColumns(header []string, rows [][]string) []columnMeta {
	meta := make([]columnMeta, len(header))
	for j := range header {
		var nonNull, dotHits, commaHits, timeHits int
		uniq := make(map[string]struct{})
		for _, row := range rows {
			if j >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[j])
			if isNull(cell) {
				continue
			}
			nonNull++
			uniq[cell] = struct{}{}
			if _, ok := parseNumeric(cell, false); ok {
				dotHits++
			}
			if _, ok := parseNumeric(cell, true); ok {
				commaHits++
			}
			for _, layout := range dateFormats {
				if _, err := time.Parse(layout, cell); err == nil {
					timeHits++
					break
				}
			}
		}

		m := columnMeta{nonNull: nonNull, unique: len(uniq)}
		threshold := nonNull - nonNull/10
		switch {
		case nonNull == 0:
			m.kind = KindText
		case dotHits >= threshold && dotHits > 0:
			m.kind = KindNumeric
		case commaHits >= threshold && commaHits > 0:
			m.kind = KindNumeric
			m.decimalComma = true
		case timeHits >= threshold && timeHits > 0:
			m.kind = KindDatetime
		case len(uniq) <= 20 || len(uniq)*5 <= nonNull:
			m.kind = KindCategorical
		default:
			m.kind = KindText
		}
		meta[j] = m
	}
	return meta
}

func (d *Dataset) Name() string { return d.name }

func (d *Dataset) RowCount() int { return len(d.rows) }

func (d *Dataset) ColumnCount() int { return len(d.cols) }

// Columns returns the ordered column names.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.cols))
	copy(out, d.cols)
	return out
}

// Schema returns the ordered column names with their inferred kinds.
func (d *Dataset) Schema() []Column {
	out := make([]Column, len(d.cols))
	for i, name := range d.cols {
		out[i] = Column{Name: name, Kind: d.meta[i].kind, NonNull: d.meta[i].nonNull}
	}
	return out
}

func (d *Dataset) HasColumn(name string) bool {
	_, err := d.colIndex(name)
	return err == nil
}

func (d *Dataset) colIndex(name string) (int, error) {
	for i, c := range d.cols {
		if c == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown column %q", name)
}

// Row returns a copy of row i, or nil when out of range.
func (d *Dataset) Row(i int) []string {
	if i < 0 || i >= len(d.rows) {
		return nil
	}
	out := make([]string, len(d.rows[i]))
	copy(out, d.rows[i])
	return out
}

// Rows returns a deep copy of all rows.
func (d *Dataset) Rows() [][]string {
	out := make([][]string, len(d.rows))
	for i, row := range d.rows {
		out[i] = make([]string, len(row))
		copy(out[i], row)
	}
	return out
}

// Records returns up to limit leading rows as typed maps: numeric cells as
// float64, null cells as nil, everything else as the raw string. A negative
// limit returns all rows.
func (d *Dataset) Records(limit int) []map[string]interface{} {
	n := len(d.rows)
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		row := d.rows[i]
		m := make(map[string]interface{}, len(d.cols))
		for j, name := range d.cols {
			var cell string
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			switch {
			case isNull(cell):
				m[name] = nil
			case d.meta[j].kind == KindNumeric:
				if v, ok := parseNumeric(cell, d.meta[j].decimalComma); ok {
					m[name] = v
				} else {
					m[name] = cell
				}
			default:
				m[name] = cell
			}
		}
		out = append(out, m)
	}
	return out
}

// Preview returns the first n rows as a Table.
func (d *Dataset) Preview(n int) Table {
	if n < 0 {
		n = 0
	}
	if n > len(d.rows) {
		n = len(d.rows)
	}
	t := Table{Columns: d.Columns(), Rows: make([][]string, 0, n)}
	for i := 0; i < n; i++ {
		t.Rows = append(t.Rows, d.Row(i))
	}
	return t
}

// Cells returns the raw cells of a column.
func (d *Dataset) Cells(name string) ([]string, error) {
	j, err := d.colIndex(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(d.rows))
	for _, row := range d.rows {
		if j < len(row) {
			out = append(out, row[j])
		} else {
			out = append(out, "")
		}
	}
	return out, nil
}

// Numeric returns the parsed numeric values of a column. Null and
// non-numeric cells are skipped.
func (d *Dataset) Numeric(name string) ([]float64, error) {
	j, err := d.colIndex(name)
	if err != nil {
		return nil, err
	}
	dc := d.meta[j].decimalComma
	out := make([]float64, 0, len(d.rows))
	for _, row := range d.rows {
		if j >= len(row) {
			continue
		}
		if v, ok := parseNumeric(row[j], dc); ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// NumericPairs returns row-aligned numeric values of two columns, skipping
// rows where either cell does not parse.
func (d *Dataset) NumericPairs(xcol, ycol string) (xs, ys []float64, err error) {
	xi, err := d.colIndex(xcol)
	if err != nil {
		return nil, nil, err
	}
	yi, err := d.colIndex(ycol)
	if err != nil {
		return nil, nil, err
	}
	xdc, ydc := d.meta[xi].decimalComma, d.meta[yi].decimalComma
	for _, row := range d.rows {
		if xi >= len(row) || yi >= len(row) {
			continue
		}
		x, okx := parseNumeric(row[xi], xdc)
		y, oky := parseNumeric(row[yi], ydc)
		if okx && oky {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys, nil
}

// Info renders row/column counts and the schema as markdown.
func (d *Dataset) Info() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[DATAFRAME INFO] %s\n", d.name)
	fmt.Fprintf(&b, "%d rows, %d columns\n\n", len(d.rows), len(d.cols))
	t := Table{Columns: []string{"column", "kind", "non-null"}}
	for i, name := range d.cols {
		t.Rows = append(t.Rows, []string{name, d.meta[i].kind.String(), strconv.Itoa(d.meta[i].nonNull)})
	}
	b.WriteString(t.Markdown())
	return b.String()
}

// PromptBlock renders the schema and the leading rows as a markdown block for
// prompt embedding. At most maxRows rows and maxCols columns are included;
// truncation is noted so the model knows it sees a sample.
func (d *Dataset) PromptBlock(maxRows, maxCols int) string {
	if maxRows <= 0 {
		maxRows = 5
	}
	if maxCols <= 0 {
		maxCols = 10
	}
	nCols := len(d.cols)
	if nCols > maxCols {
		nCols = maxCols
	}
	nRows := len(d.rows)
	if nRows > maxRows {
		nRows = maxRows
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[DATASET] %s: %d rows, %d columns\n", d.name, len(d.rows), len(d.cols))
	b.WriteString("[SCHEMA]\n")
	for i, name := range d.cols {
		fmt.Fprintf(&b, "- %s: %s, %d non-null\n", name, d.meta[i].kind, d.meta[i].nonNull)
	}
	b.WriteString("[HEAD]\n")
	t := Table{Columns: d.cols[:nCols]}
	for i := 0; i < nRows; i++ {
		row := d.Row(i)
		if len(row) > nCols {
			row = row[:nCols]
		}
		t.Rows = append(t.Rows, row)
	}
	b.WriteString(t.Markdown())
	if nRows < len(d.rows) {
		fmt.Fprintf(&b, "(showing first %d of %d rows)\n", nRows, len(d.rows))
	}
	if nCols < len(d.cols) {
		fmt.Fprintf(&b, "(showing first %d of %d columns)\n", nCols, len(d.cols))
	}
	return b.String()
}
