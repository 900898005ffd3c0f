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

package estatapi

import (
	"bytes"
	"encoding/json"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/table"
)

// text is a JSON value which is either a scalar, or an object with the text in
// its "$" field, like {"@no": "1", "$": "Population by sex"}.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return err
	}
	if obj, ok := v.(map[string]any); ok {
		v = obj["$"]
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = text(x)
	case json.Number:
		*t = text(x.String())
	default:
		return errors.Reason("expected a text value, found %T: %v", v, v)
	}
	return nil
}

// codeText is an object with a code and a text, like
// {"@code": "00200521", "$": "国勢調査"}.
type codeText struct {
	Code text `json:"@code"`
	Text text `json:"$"`
}

// oneOrMany is a list which the API represents as a bare object when it has
// exactly one element.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*o = nil
	case len(b) > 0 && b[0] == '[':
		var l []T
		if err := json.Unmarshal(b, &l); err != nil {
			return err
		}
		*o = l
	default:
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*o = []T{v}
	}
	return nil
}

type rawTableInfo struct {
	ID             text     `json:"@id"`
	StatName       codeText `json:"STAT_NAME"`
	GovOrg         codeText `json:"GOV_ORG"`
	StatisticsName text     `json:"STATISTICS_NAME"`
	Title          text     `json:"TITLE"`
	Cycle          text     `json:"CYCLE"`
	SurveyDate     text     `json:"SURVEY_DATE"`
	OpenDate       text     `json:"OPEN_DATE"`
	TotalNumber    text     `json:"OVERALL_TOTAL_NUMBER"`
	UpdatedDate    text     `json:"UPDATED_DATE"`
}

type statsListResponse struct {
	GetStatsList struct {
		DatalistInf *struct {
			TableInf oneOrMany[rawTableInfo] `json:"TABLE_INF"`
			ListInf  oneOrMany[rawTableInfo] `json:"LIST_INF"` // with statsNameList=Y
		} `json:"DATALIST_INF"`
	} `json:"GET_STATS_LIST"`
}

// TableInfo describes a statistical table in the catalog. With
// statsNameList=Y, only ID, StatCode, StatName and GovOrg are set.
type TableInfo struct {
	ID             string // statsDataId, or the survey ID
	StatCode       string // government statistics code
	StatName       string // survey name
	GovOrg         string // the responsible government organization
	StatisticsName string
	Title          string
	Cycle          string
	SurveyDate     string
	OpenDate       string
	TotalNumber    string // number of observations
	UpdatedDate    string
}

// TableInfoHeader is the table header matching TableInfo.Row.
func TableInfoHeader() []string {
	return []string{"ID", "Stat Code", "Statistic", "Organization",
		"Title", "Cycle", "Survey Date", "Open Date", "Rows", "Updated"}
}

// Row converts the info into a table row.
func (t TableInfo) Row() table.Row {
	s := table.String
	title := t.Title
	if title == "" {
		title = t.StatisticsName
	}
	return table.Row{s(t.ID), s(t.StatCode), s(t.StatName), s(t.GovOrg), s(title),
		s(t.Cycle), s(t.SurveyDate), s(t.OpenDate), s(t.TotalNumber), s(t.UpdatedDate)}
}

// ParseStatsList extracts the table descriptions from a getStatsList response.
func ParseStatsList(raw []byte) ([]TableInfo, error) {
	var resp statsListResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.Annotate(err, "failed to parse getStatsList response")
	}
	dl := resp.GetStatsList.DatalistInf
	if dl == nil {
		return nil, nil // no matching tables
	}
	var res []TableInfo
	for _, raws := range []oneOrMany[rawTableInfo]{dl.TableInf, dl.ListInf} {
		for _, r := range raws {
			res = append(res, TableInfo{
				ID:             string(r.ID),
				StatCode:       string(r.StatName.Code),
				StatName:       string(r.StatName.Text),
				GovOrg:         string(r.GovOrg.Text),
				StatisticsName: string(r.StatisticsName),
				Title:          string(r.Title),
				Cycle:          string(r.Cycle),
				SurveyDate:     string(r.SurveyDate),
				OpenDate:       string(r.OpenDate),
				TotalNumber:    string(r.TotalNumber),
				UpdatedDate:    string(r.UpdatedDate),
			})
		}
	}
	return res, nil
}
