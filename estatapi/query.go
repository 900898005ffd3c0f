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
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/message"
)

// MaxLimit is the maximum number of rows returned by a single getStatsData
// call.
const MaxLimit = 100000

// Values of StatsDataQuery.ReplaceSpChar: how special characters in values
// (e.g. "-", "***", "X") are replaced by the server.
const (
	ReplaceSpCharNone = 0 // keep as is (default)
	ReplaceSpCharZero = 1 // replace by 0
	ReplaceSpCharNull = 2 // replace by NULL
	ReplaceSpCharNA   = 3 // replace by "NA"
)

// setNonEmpty adds the parameter only when it's not empty.
func setNonEmpty(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

// setPositive adds the integer parameter only when it's positive.
func setPositive(v url.Values, key string, value int) {
	if value > 0 {
		v.Set(key, strconv.Itoa(value))
	}
}

// StatsListQuery is the set of parameters of getStatsList.
type StatsListQuery struct {
	SurveyYears       string `json:"surveyYears"` // yyyy, yyyymm or yyyymm-yyyymm
	OpenYears         string `json:"openYears"`   // same as SurveyYears
	StatsField        string `json:"statsField"`  // 2 or 4 digits
	StatsCode         string `json:"statsCode"`   // 5 or 8 digits
	SearchWord        string `json:"searchWord"`  // supports AND, OR, NOT
	SearchKind        int    `json:"searchKind"`  // 1: statistics, 2: small area / mesh
	CollectArea       int    `json:"collectArea"` // 1: national, 2: prefecture, 3: municipality
	ExplanationGetFlg string `json:"explanationGetFlg" choices:",Y,N"`
	StatsNameList     string `json:"statsNameList" choices:",Y"` // list survey names only
	StartPosition     int    `json:"startPosition"`
	Limit             int    `json:"limit" default:"5"`
	UpdatedDate       string `json:"updatedDate"` // yyyy, yyyymm, yyyymmdd or yyyymmdd-yyyymmdd
}

var _ message.Message = &StatsListQuery{}

// InitMessage implements message.Message.
func (q *StatsListQuery) InitMessage(js any) error {
	if err := message.Init(q, js); err != nil {
		return errors.Annotate(err, "failed to init StatsListQuery")
	}
	return q.Validate()
}

// NewStatsListQuery creates a query with the default parameters.
func NewStatsListQuery() *StatsListQuery {
	var q StatsListQuery
	if err := q.InitMessage(map[string]any{}); err != nil {
		panic(errors.Annotate(err, "failed to init default StatsListQuery"))
	}
	return &q
}

// Validate checks the ranges of the parameters.
func (q *StatsListQuery) Validate() error {
	if q.SearchKind < 0 || q.SearchKind > 2 {
		return errors.Reason("searchKind=%d must be in [0..2]", q.SearchKind)
	}
	if q.CollectArea < 0 || q.CollectArea > 3 {
		return errors.Reason("collectArea=%d must be in [0..3]", q.CollectArea)
	}
	if q.StartPosition < 0 || q.Limit < 0 {
		return errors.Reason("startPosition=%d and limit=%d must be >= 0",
			q.StartPosition, q.Limit)
	}
	return nil
}

// Values returns the URL query values. Each call creates a new object.
func (q *StatsListQuery) Values() url.Values {
	v := make(url.Values)
	setNonEmpty(v, "surveyYears", q.SurveyYears)
	setNonEmpty(v, "openYears", q.OpenYears)
	setNonEmpty(v, "statsField", q.StatsField)
	setNonEmpty(v, "statsCode", q.StatsCode)
	setNonEmpty(v, "searchWord", q.SearchWord)
	setPositive(v, "searchKind", q.SearchKind)
	setPositive(v, "collectArea", q.CollectArea)
	setNonEmpty(v, "explanationGetFlg", q.ExplanationGetFlg)
	setNonEmpty(v, "statsNameList", q.StatsNameList)
	setPositive(v, "startPosition", q.StartPosition)
	setPositive(v, "limit", q.Limit)
	setNonEmpty(v, "updatedDate", q.UpdatedDate)
	return v
}

// MetaInfoQuery is the set of parameters of getMetaInfo.
type MetaInfoQuery struct {
	StatsDataID       string `json:"statsDataId" required:"true"`
	ExplanationGetFlg string `json:"explanationGetFlg" choices:",Y,N"`
}

var _ message.Message = &MetaInfoQuery{}

// InitMessage implements message.Message.
func (q *MetaInfoQuery) InitMessage(js any) error {
	if err := message.Init(q, js); err != nil {
		return errors.Annotate(err, "failed to init MetaInfoQuery")
	}
	return q.Validate()
}

// Validate checks that the table ID is present.
func (q *MetaInfoQuery) Validate() error {
	if q.StatsDataID == "" {
		return errors.Reason("statsDataId is required")
	}
	return nil
}

// Values returns the URL query values.
func (q *MetaInfoQuery) Values() url.Values {
	v := make(url.Values)
	v.Set("statsDataId", q.StatsDataID)
	setNonEmpty(v, "explanationGetFlg", q.ExplanationGetFlg)
	return v
}

// DimensionFilter narrows down the data by the codes of one classification
// dimension.
type DimensionFilter struct {
	Level string   `json:"level"` // "X", "X-X", "-X" or "X-"
	Codes []string `json:"codes"` // up to 100 codes
	From  string   `json:"from"`
	To    string   `json:"to"`
}

var _ message.Message = &DimensionFilter{}

// InitMessage implements message.Message.
func (f *DimensionFilter) InitMessage(js any) error {
	if err := message.Init(f, js); err != nil {
		return errors.Annotate(err, "failed to init DimensionFilter")
	}
	if len(f.Codes) > 100 {
		return errors.Reason("too many codes: %d > 100", len(f.Codes))
	}
	return nil
}

// isDimension checks that d is one of "tab", "time", "area", "cat01".."cat15".
func isDimension(d string) bool {
	switch d {
	case "tab", "time", "area":
		return true
	}
	if !strings.HasPrefix(d, "cat") || len(d) != 5 {
		return false
	}
	n, err := strconv.Atoi(d[3:])
	return err == nil && n >= 1 && n <= 15
}

// param builds a parameter name, e.g. param("cd", "cat01", "From") is
// "cdCat01From".
func param(prefix, dim, suffix string) string {
	return prefix + strings.ToUpper(dim[:1]) + dim[1:] + suffix
}

// StatsDataQuery is the set of parameters of getStatsData. Exactly one of
// DataSetID or StatsDataID must be set.
type StatsDataQuery struct {
	DataSetID         string                     `json:"dataSetId"`
	StatsDataID       string                     `json:"statsDataId"`
	Filters           map[string]DimensionFilter `json:"filters"` // by dimension ID
	StartPosition     int                        `json:"startPosition"`
	Limit             int                        `json:"limit" default:"100000"`
	MetaGetFlg        string                     `json:"metaGetFlg" default:"Y" choices:"Y,N"`
	CntGetFlg         string                     `json:"cntGetFlg" default:"N" choices:"Y,N"`
	ExplanationGetFlg string                     `json:"explanationGetFlg" default:"Y" choices:"Y,N"`
	AnnotationGetFlg  string                     `json:"annotationGetFlg" default:"Y" choices:"Y,N"`
	ReplaceSpChar     int                        `json:"replaceSpChar"`
	SectionHeaderFlg  int                        `json:"sectionHeaderFlg" default:"1"`
}

var _ message.Message = &StatsDataQuery{}

// InitMessage implements message.Message.
func (q *StatsDataQuery) InitMessage(js any) error {
	if err := message.Init(q, js); err != nil {
		return errors.Annotate(err, "failed to init StatsDataQuery")
	}
	return q.Validate()
}

func defaultStatsDataQuery() *StatsDataQuery {
	var q StatsDataQuery
	if err := message.Init(&q, map[string]any{}); err != nil {
		panic(errors.Annotate(err, "failed to init default StatsDataQuery"))
	}
	return &q
}

// NewStatsDataQuery creates a query for a statistical table with the default
// parameters.
func NewStatsDataQuery(statsDataID string) *StatsDataQuery {
	q := defaultStatsDataQuery()
	q.StatsDataID = statsDataID
	return q
}

// NewDataSetQuery creates a query for a registered data set with the default
// parameters.
func NewDataSetQuery(dataSetID string) *StatsDataQuery {
	q := defaultStatsDataQuery()
	q.DataSetID = dataSetID
	return q
}

// ID of the table or the data set, for logging.
func (q *StatsDataQuery) ID() string {
	if q.StatsDataID != "" {
		return q.StatsDataID
	}
	return "dataset " + q.DataSetID
}

// Validate checks the consistency of the parameters.
func (q *StatsDataQuery) Validate() error {
	if (q.DataSetID == "") == (q.StatsDataID == "") {
		return errors.Reason("exactly one of dataSetId or statsDataId must be set")
	}
	for d := range q.Filters {
		if !isDimension(d) {
			return errors.Reason("unsupported dimension in filters: '%s'", d)
		}
	}
	if q.StartPosition < 0 {
		return errors.Reason("startPosition=%d must be >= 0", q.StartPosition)
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return errors.Reason("limit=%d must be in [0..%d]", q.Limit, MaxLimit)
	}
	if q.ReplaceSpChar < ReplaceSpCharNone || q.ReplaceSpChar > ReplaceSpCharNA {
		return errors.Reason("replaceSpChar=%d must be in [0..3]", q.ReplaceSpChar)
	}
	if q.SectionHeaderFlg != 0 && q.SectionHeaderFlg != 1 && q.SectionHeaderFlg != 2 {
		return errors.Reason("sectionHeaderFlg=%d must be 1 or 2", q.SectionHeaderFlg)
	}
	return nil
}

// Copy creates a deep copy of the query. It is primarily used in its builder
// methods.
func (q *StatsDataQuery) Copy() *StatsDataQuery {
	q2 := *q
	if q.Filters != nil {
		q2.Filters = make(map[string]DimensionFilter, len(q.Filters))
		for d, f := range q.Filters {
			f.Codes = append([]string(nil), f.Codes...)
			q2.Filters[d] = f
		}
	}
	return &q2
}

// filter updates the filter of the dimension in a copy of the query.
func (q *StatsDataQuery) filter(dim string, update func(f *DimensionFilter)) *StatsDataQuery {
	q2 := q.Copy()
	if q2.Filters == nil {
		q2.Filters = make(map[string]DimensionFilter)
	}
	f := q2.Filters[dim]
	update(&f)
	q2.Filters[dim] = f
	return q2
}

// FilterCodes restricts the dimension to the given codes. This and other
// builder methods always create a deep copy of the query, leaving the original
// intact.
func (q *StatsDataQuery) FilterCodes(dim string, codes ...string) *StatsDataQuery {
	return q.filter(dim, func(f *DimensionFilter) { f.Codes = codes })
}

// FilterLevel restricts the dimension to the hierarchy level(s).
func (q *StatsDataQuery) FilterLevel(dim, level string) *StatsDataQuery {
	return q.filter(dim, func(f *DimensionFilter) { f.Level = level })
}

// FilterRange restricts the dimension to the range of codes. Empty bound means
// unbounded.
func (q *StatsDataQuery) FilterRange(dim, from, to string) *StatsDataQuery {
	return q.filter(dim, func(f *DimensionFilter) {
		f.From = from
		f.To = to
	})
}

// StartAt sets the 1-based starting row, e.g. the NEXT_KEY of the previous
// response.
func (q *StatsDataQuery) StartAt(pos int) *StatsDataQuery {
	q2 := q.Copy()
	q2.StartPosition = pos
	return q2
}

// LimitTo sets the maximum number of rows, [0..MaxLimit], where 0 is the
// server's default.
func (q *StatsDataQuery) LimitTo(n int) *StatsDataQuery {
	if n < 0 {
		n = 0
	}
	if n > MaxLimit {
		n = MaxLimit
	}
	q2 := q.Copy()
	q2.Limit = n
	return q2
}

// WithMeta sets whether the response embeds the classification metadata.
func (q *StatsDataQuery) WithMeta(meta bool) *StatsDataQuery {
	q2 := q.Copy()
	q2.MetaGetFlg = "N"
	if meta {
		q2.MetaGetFlg = "Y"
	}
	return q2
}

// Values returns the URL query values. Each call creates a new object, so the
// caller is free to modify it without affecting the query.
func (q *StatsDataQuery) Values() url.Values {
	v := make(url.Values)
	setNonEmpty(v, "dataSetId", q.DataSetID)
	setNonEmpty(v, "statsDataId", q.StatsDataID)
	for d, f := range q.Filters {
		setNonEmpty(v, param("lv", d, ""), f.Level)
		setNonEmpty(v, param("cd", d, ""), strings.Join(f.Codes, ","))
		setNonEmpty(v, param("cd", d, "From"), f.From)
		setNonEmpty(v, param("cd", d, "To"), f.To)
	}
	setPositive(v, "startPosition", q.StartPosition)
	setPositive(v, "limit", q.Limit)
	setNonEmpty(v, "metaGetFlg", q.MetaGetFlg)
	setNonEmpty(v, "cntGetFlg", q.CntGetFlg)
	setNonEmpty(v, "explanationGetFlg", q.ExplanationGetFlg)
	setNonEmpty(v, "annotationGetFlg", q.AnnotationGetFlg)
	v.Set("replaceSpChar", fmt.Sprintf("%d", q.ReplaceSpChar))
	setPositive(v, "sectionHeaderFlg", q.SectionHeaderFlg)
	return v
}
