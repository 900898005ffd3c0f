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

package flatten

import (
	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/table"
)

// Unresolved is a data cell whose code has no label in the metadata.
type Unresolved struct {
	CodeRef
	Row int // 0-based row index
}

// Result of flattening a pair of documents.
type Result struct {
	Table      *table.Table
	Unresolved []Unresolved // in row-major order
	Duplicates []CodeRef    // duplicate codes in the metadata
}

// UnresolvedCodes lists the distinct unresolved (column, code) pairs in the
// order of their first occurrence. Columns are the raw "@"-prefixed names.
func (r *Result) UnresolvedCodes() []CodeRef {
	seen := make(map[CodeRef]struct{})
	var res []CodeRef
	for _, u := range r.Unresolved {
		if _, ok := seen[u.CodeRef]; ok {
			continue
		}
		seen[u.CodeRef] = struct{}{}
		res = append(res, u.CodeRef)
	}
	return res
}

// Apply replaces the codes in the coded columns of t with their labels, and
// renames the columns. A code without a label becomes an Unresolved cell and
// is reported in the result. Null cells are left as is. The rows are modified
// in place; their number and order never change.
func Apply(t *table.Table, codes CodeMapper, names ColumnNameMapper) []Unresolved {
	type coded struct {
		col     int
		mapping map[string]string
	}
	var cols []coded
	for j, h := range t.Header {
		if m, ok := codes[h]; ok {
			cols = append(cols, coded{j, m})
		}
	}
	var unresolved []Unresolved
	for i, row := range t.Rows {
		for _, c := range cols {
			if c.col >= len(row) || row[c.col].Kind == table.NullKind {
				continue
			}
			code := row[c.col].Text()
			label, ok := c.mapping[code]
			if !ok {
				row[c.col] = table.Unresolved(code)
				unresolved = append(unresolved, Unresolved{
					CodeRef: CodeRef{Column: t.Header[c.col], Code: code},
					Row:     i,
				})
				continue
			}
			row[c.col] = table.String(label)
		}
	}
	t.Rename(names)
	return unresolved
}

// Flatten converts a metadata document and a data document into a table with
// the codes resolved to labels and the columns named by their dimension names.
// Columns that do not reference a dimension, such as the value column "$",
// pass through unchanged.
//
// Documents are generic JSON values, either from Decode or from
// encoding/json. A missing or malformed classification list or observation
// list is returned as *SchemaError, and no table is produced.
func Flatten(meta, data any) (*Result, error) {
	idx, err := ExtractClassIndex(meta)
	if err != nil {
		return nil, err
	}
	return flatten(idx, data)
}

// FlattenEmbedded is Flatten for a data document requested with
// metaGetFlg=Y, which carries its own classification list.
func FlattenEmbedded(data any) (*Result, error) {
	idx, err := ExtractClassIndexAt(data, DataClassPath...)
	if err != nil {
		return nil, err
	}
	return flatten(idx, data)
}

func flatten(idx ClassIndex, data any) (*Result, error) {
	tbl, err := FlattenData(data)
	if err != nil {
		return nil, err
	}
	unresolved := Apply(tbl, NewCodeMapper(idx), NewColumnNameMapper(idx))
	return &Result{
		Table:      tbl,
		Unresolved: unresolved,
		Duplicates: idx.Duplicates(),
	}, nil
}

// FlattenJSON decodes the raw documents and flattens them. When meta is empty,
// the classification list embedded in data is used.
func FlattenJSON(meta, data []byte) (*Result, error) {
	d, err := Decode(data)
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode data document")
	}
	if len(meta) == 0 {
		return FlattenEmbedded(d)
	}
	m, err := Decode(meta)
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode metadata document")
	}
	return Flatten(m, d)
}
