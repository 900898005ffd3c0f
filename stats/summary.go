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

package stats

import (
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/table"
)

// specialValues are the placeholders e-Stat puts in place of numbers which are
// not available, confidential or not applicable.
var specialValues = map[string]bool{
	"":    true,
	"-":   true,
	"−":   true,
	"…":   true,
	"...": true,
	"***": true,
	"*":   true,
	"X":   true,
	"x":   true,
	"NA":  true,
}

// ParseValue extracts the numeric value of a cell. Missing cells, e-Stat
// special characters and non-numeric text are not values.
func ParseValue(c table.Cell) (float64, bool) {
	switch c.Kind {
	case table.NumberKind:
		return c.Float()
	case table.StringKind:
	default:
		return 0, false
	}
	s := strings.TrimSpace(c.Text())
	if specialValues[s] {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Summary of a numeric column.
type Summary struct {
	Column  string
	Count   int // number of values
	Missing int // number of rows without a value
	Mean    float64
	MAD     float64
	Sigma   float64
	Min     float64
	Median  float64
	Max     float64
}

// Summarize the values of the column. When the header has duplicate names, the
// first column is used.
func Summarize(t *table.Table, column string) (*Summary, error) {
	j := t.Column(column)
	if j < 0 {
		return nil, errors.Reason("no such column: '%s'", column)
	}
	res := &Summary{Column: column}
	var data []float64
	for _, c := range t.Values(j) {
		f, ok := ParseValue(c)
		if !ok {
			res.Missing++
			continue
		}
		data = append(data, f)
	}
	s := NewSample(data)
	res.Count = s.Len()
	res.Mean = s.Mean()
	res.MAD = s.MAD()
	res.Sigma = s.Sigma()
	res.Min = s.Min()
	res.Median = s.Median()
	res.Max = s.Max()
	return res, nil
}

// SummaryHeader is the table header matching Summary.Row.
func SummaryHeader() []string {
	return []string{"Column", "Count", "Missing", "Mean", "MAD", "Sigma",
		"Min", "Median", "Max"}
}

// Row converts the summary to a table row.
func (s *Summary) Row() table.Row {
	n := table.Number
	return table.Row{table.String(s.Column), n(float64(s.Count)),
		n(float64(s.Missing)), n(s.Mean), n(s.MAD), n(s.Sigma), n(s.Min),
		n(s.Median), n(s.Max)}
}
