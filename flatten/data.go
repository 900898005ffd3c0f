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
	"encoding/json"
	"strconv"

	"github.com/stockparfait/estat/table"
)

// DataValuePath is the path to the observation list in the data document.
var DataValuePath = []string{"GET_STATS_DATA", "STATISTICAL_DATA", "DATA_INF", "VALUE"}

// ValueColumn is the name of the measurement value field in data records.
const ValueColumn = "$"

// rowBuilder accumulates the columns in the order of their first appearance.
type rowBuilder struct {
	header  []string
	columns map[string]int
	rows    []table.Row
}

func (b *rowBuilder) column(name string) int {
	if j, ok := b.columns[name]; ok {
		return j
	}
	b.header = append(b.header, name)
	b.columns[name] = len(b.header) - 1
	return len(b.header) - 1
}

// record adds the fields of obj to row. Nested objects are flattened into
// "parent.child" columns.
func (b *rowBuilder) record(obj *Object, prefix string, row *table.Row) error {
	for _, k := range obj.Keys {
		name := prefix + k
		v := obj.Fields[k]
		if nested, ok := asObject(v); ok {
			if err := b.record(nested, name+".", row); err != nil {
				return err
			}
			continue
		}
		c, err := toCell(v)
		if err != nil {
			return err
		}
		j := b.column(name)
		for len(*row) <= j {
			*row = append(*row, table.Null())
		}
		(*row)[j] = c
	}
	return nil
}

// toCell keeps strings as text and numbers as numbers. Booleans and lists
// become their JSON text.
func toCell(v any) (table.Cell, error) {
	switch x := v.(type) {
	case nil:
		return table.Null(), nil
	case string:
		return table.String(x), nil
	case json.Number:
		c, err := table.NumberText(x.String())
		if err != nil { // out of float64 range
			return table.String(x.String()), nil
		}
		return c, nil
	case float64:
		return table.Number(x), nil
	case bool:
		return table.String(strconv.FormatBool(x)), nil
	}
	js, err := json.Marshal(v)
	if err != nil {
		return table.Null(), err
	}
	return table.String(string(js)), nil
}

// FlattenData converts the observation list of a data document into a table
// with the raw field names as columns, in the source row order. A single bare
// record is treated as a list of one.
func FlattenData(data any) (*table.Table, error) {
	node, p, err := lookup(data, DataValuePath...)
	if err != nil {
		return nil, err
	}
	records, err := asList(node, p)
	if err != nil {
		return nil, err
	}
	b := rowBuilder{columns: make(map[string]int)}
	for i, r := range records {
		obj, ok := asObject(r)
		if !ok {
			return nil, p.index(i).errorf("expected a record object, found %s", kindOf(r))
		}
		row := table.Row{}
		if err := b.record(obj, "", &row); err != nil {
			return nil, p.index(i).errorf("failed to convert record: %s", err.Error())
		}
		b.rows = append(b.rows, row)
	}
	tbl := table.NewTable(b.header...)
	tbl.AddRow(b.rows...)
	return tbl, nil
}
