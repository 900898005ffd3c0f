// Copyright 2022 Stock Parfait

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package table implements a flat, row-oriented table of text and numeric
// cells, as produced by flattening e-Stat statistical data.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/stockparfait/errors"
)

// CellKind is the enum for the type of value stored in a Cell.
type CellKind uint8

// Values of CellKind.
const (
	NullKind       CellKind = iota // missing value
	StringKind                     // text
	NumberKind                     // number with its source text
	UnresolvedKind                 // a code without a label
)

// Cell of a table Row which is a union of null, string, number or an
// unresolved code. The zero value is a null cell.
type Cell struct {
	Kind   CellKind
	text   string // string value, number source text or the unresolved code
	number float64
}

// Null creates a missing value.
func Null() Cell { return Cell{} }

// String creates a text cell.
func String(s string) Cell {
	return Cell{Kind: StringKind, text: s}
}

// Number creates a numeric cell.
func Number(n float64) Cell {
	return Cell{Kind: NumberKind, number: n, text: strconv.FormatFloat(n, 'f', -1, 64)}
}

// NumberText creates a numeric cell from its decimal representation, which is
// preserved verbatim for printing.
func NumberText(s string) (Cell, error) {
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Cell{}, errors.Annotate(err, "not a number: '%s'", s)
	}
	return Cell{Kind: NumberKind, number: n, text: s}, nil
}

// Unresolved creates a cell marking a code which could not be resolved to a
// label. The code is retained for diagnostics.
func Unresolved(code string) Cell {
	return Cell{Kind: UnresolvedKind, text: code}
}

// IsMissing is true for null and unresolved cells.
func (c Cell) IsMissing() bool {
	return c.Kind == NullKind || c.Kind == UnresolvedKind
}

// Text is the raw text of the cell: the string, the number's source text, or
// the unresolved code. It is empty for a null cell.
func (c Cell) Text() string { return c.text }

// Float returns the numeric value of a number cell.
func (c Cell) Float() (float64, bool) {
	if c.Kind != NumberKind {
		return 0, false
	}
	return c.number, true
}

// String representation of the cell for printing. Missing values are empty.
func (c Cell) String() string {
	if c.IsMissing() {
		return ""
	}
	return c.text
}

// Equal compares two cells by kind and text.
func (c Cell) Equal(c2 Cell) bool {
	return c.Kind == c2.Kind && c.text == c2.text
}

// Row of cells. Its length matches the table header.
type Row []Cell

// Strings converts the row to an encoding/csv compatible representation,
// printing missing values as na.
func (r Row) Strings(na string) []string {
	res := make([]string, len(r))
	for i, c := range r {
		if c.IsMissing() {
			res[i] = na
			continue
		}
		res[i] = c.String()
	}
	return res
}

// Table container.
//
// A typical use:
//   t := NewTable("Area", "Value")
//   t.AddRow(Row{String("Tokyo"), Number(100)})
//   t.Rename(map[string]string{"Value": "Population"})
//   err := t.WriteCSV(os.Stdout, Params{})
type Table struct {
	Header []string // column names, possibly with duplicates after renaming
	Rows   []Row
}

// NewTable creates a new Table instance with the given column names.
func NewTable(header ...string) *Table {
	return &Table{Header: header}
}

// AddRow adds one or more rows to the table. Short rows are padded with nulls.
func (t *Table) AddRow(rows ...Row) {
	for _, r := range rows {
		for len(r) < len(t.Header) {
			r = append(r, Null())
		}
		t.Rows = append(t.Rows, r)
	}
}

// Len is the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column returns the index of the first column with the given name, or -1.
func (t *Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Values of the j'th column, in row order.
func (t *Table) Values(j int) []Cell {
	res := make([]Cell, len(t.Rows))
	for i, r := range t.Rows {
		if j < len(r) {
			res[i] = r[j]
		}
	}
	return res
}

// Rename columns according to the map {old name -> new name}. Columns absent
// from the map keep their names.
func (t *Table) Rename(names map[string]string) {
	for i, h := range t.Header {
		if n, ok := names[h]; ok {
			t.Header[i] = n
		}
	}
}

// Params are parameters for pretty-printing or CSV export of Table data.
type Params struct {
	Rows        int    // max. number of rows to write; 0 = unlimited (default)
	NoHeader    bool   // whether to print the header, default - yes
	MaxColWidth int    // for WriteText only; 0 = unlimited, otherwise must be >= 4
	NA          string // text for missing values, default: empty
}

// rows returns the rows to be written according to the limit in p.
func (t *Table) rows(p Params) []Row {
	if p.Rows > 0 && p.Rows < len(t.Rows) {
		return t.Rows[:p.Rows]
	}
	return t.Rows
}

// WriteCSV writes the table to w in CSV format.
func (t *Table) WriteCSV(w io.Writer, p Params) error {
	cw := csv.NewWriter(w)
	if !p.NoHeader && len(t.Header) > 0 {
		if err := cw.Write(t.Header); err != nil {
			return errors.Annotate(err, "failed to write header")
		}
	}
	for _, r := range t.rows(p) {
		if err := cw.Write(r.Strings(p.NA)); err != nil {
			return errors.Annotate(err, "failed to write row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Annotate(err, "failed to flush written rows")
	}
	return nil
}

// WriteText writes the table as a text formatted for ease of reading. Column
// widths are display widths, where a full-width character takes two cells.
func (t *Table) WriteText(w io.Writer, p Params) error {
	if p.MaxColWidth != 0 && p.MaxColWidth < 4 {
		return errors.Reason("MaxColWidth [%d] must be 0 or >= 4", p.MaxColWidth)
	}
	lines := [][]string{}
	if !p.NoHeader && len(t.Header) > 0 {
		lines = append(lines, t.Header)
	}
	for _, r := range t.rows(p) {
		lines = append(lines, r.Strings(p.NA))
	}
	if len(lines) == 0 {
		return nil
	}
	widths := make([]int, len(lines[0]))
	for i, line := range lines {
		if len(line) != len(widths) {
			return errors.Reason("line %d has size [%d] != expected size [%d]",
				i, len(line), len(widths))
		}
		for j, s := range line {
			n := runewidth.StringWidth(s)
			if p.MaxColWidth > 0 && n > p.MaxColWidth {
				n = p.MaxColWidth
			}
			if widths[j] < n {
				widths[j] = n
			}
		}
	}

	write := func(line []string) error {
		cells := make([]string, len(line))
		for j, s := range line {
			cells[j] = runewidth.FillLeft(runewidth.Truncate(s, widths[j], ".."), widths[j])
		}
		_, err := fmt.Fprintf(w, "%s\n", strings.Join(cells, " | "))
		return err
	}

	for i, line := range lines {
		if err := write(line); err != nil {
			return errors.Annotate(err, "failed to write line %d", i)
		}
		if i == 0 && !p.NoHeader && len(t.Header) > 0 {
			dashes := make([]string, len(widths))
			for j, n := range widths {
				dashes[j] = strings.Repeat("-", n)
			}
			if err := write(dashes); err != nil {
				return errors.Annotate(err, "failed to write header separator")
			}
		}
	}
	return nil
}
