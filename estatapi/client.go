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
	"context"
	"encoding/json"
	"net/url"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://api.e-stat.go.jp/rest/3.0/app/json"

// API is the name of an endpoint.
type API string

// Supported endpoints.
const (
	StatsListAPI = API("getStatsList")
	MetaInfoAPI  = API("getMetaInfo")
	StatsDataAPI = API("getStatsData")
)

// rootKey is the top-level key of the endpoint's response.
func (a API) rootKey() string {
	switch a {
	case StatsListAPI:
		return "GET_STATS_LIST"
	case MetaInfoAPI:
		return "GET_META_INFO"
	case StatsDataAPI:
		return "GET_STATS_DATA"
	}
	return ""
}

// Client for querying e-Stat.
type Client struct {
	baseURL string // the base URL of the server
	appID   string // application ID issued by e-Stat
}

// newClient creates a new client.
func newClient(baseURL, appID string) *Client {
	return &Client{
		baseURL: baseURL,
		appID:   appID,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client based on the application ID and injects it
// into the context.
func UseClient(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, appID))
}

// Status codes of the RESULT section of every response.
const (
	StatusOK        = 0   // success
	StatusNoData    = 1   // success, but no data matches the parameters
	StatusIgnored   = 2   // success, some parameters were ignored
	StatusErrorBase = 100 // this and above are errors
)

// Status is the RESULT section of a response.
type Status struct {
	Status   int    `json:"STATUS"`
	ErrorMsg string `json:"ERROR_MSG"`
	Date     string `json:"DATE"`
}

// checkStatus extracts the RESULT section of the response and converts API
// errors into Go errors.
func checkStatus(ctx context.Context, api API, raw json.RawMessage) error {
	var resp map[string]struct {
		Result *Status `json:"RESULT"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return errors.Annotate(err, "failed to parse %s response", api)
	}
	r, ok := resp[api.rootKey()]
	if !ok || r.Result == nil {
		return errors.Reason("%s response has no %s.RESULT", api, api.rootKey())
	}
	s := r.Result
	switch {
	case s.Status >= StatusErrorBase:
		return errors.Reason("%s failed with status %d: %s", api, s.Status, s.ErrorMsg)
	case s.Status != StatusOK:
		logging.Warningf(ctx, "e-Stat %s: status %d: %s", api, s.Status, s.ErrorMsg)
	}
	return nil
}

// get calls the endpoint and returns the raw JSON response.
func (c *Client) get(ctx context.Context, api API, values url.Values) (json.RawMessage, error) {
	query := make(url.Values)
	for k, v := range values {
		query[k] = v
	}
	query.Set("appId", c.appID)
	uri := c.baseURL + "/" + string(api)

	var raw json.RawMessage
	if err := fetch.FetchJSON(ctx, uri, &raw, query, nil); err != nil {
		return nil, errors.Annotate(err, "failed to fetch %s", api)
	}
	if err := checkStatus(ctx, api, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// call validates the query and calls the endpoint with the Client from the
// context.
func call(ctx context.Context, api API, q interface {
	Validate() error
	Values() url.Values
}) (json.RawMessage, error) {
	client := GetClient(ctx)
	if client == nil {
		return nil, errors.Reason("%s: no client in context", api)
	}
	if err := q.Validate(); err != nil {
		return nil, errors.Annotate(err, "invalid %s query", api)
	}
	return client.get(ctx, api, q.Values())
}

// FetchStatsList searches the catalog of statistical tables. Use
// ParseStatsList to extract the table descriptions.
func FetchStatsList(ctx context.Context, q *StatsListQuery) (json.RawMessage, error) {
	return call(ctx, StatsListAPI, q)
}

// FetchMetaInfo fetches the metadata document of a statistical table.
func FetchMetaInfo(ctx context.Context, q *MetaInfoQuery) (json.RawMessage, error) {
	raw, err := call(ctx, MetaInfoAPI, q)
	if err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "e-Stat: fetched metadata of %s", q.StatsDataID)
	return raw, nil
}

// resultInf is the RESULT_INF section of a getStatsData response.
type resultInf struct {
	GetStatsData struct {
		StatisticalData struct {
			ResultInf struct {
				TotalNumber json.Number `json:"TOTAL_NUMBER"`
				FromNumber  json.Number `json:"FROM_NUMBER"`
				ToNumber    json.Number `json:"TO_NUMBER"`
				NextKey     json.Number `json:"NEXT_KEY"`
			} `json:"RESULT_INF"`
		} `json:"STATISTICAL_DATA"`
	} `json:"GET_STATS_DATA"`
}

// FetchStatsData fetches the data document of a statistical table or a
// registered data set. Only the rows in the [startPosition, startPosition +
// limit) range are returned; when there are more, the response carries
// NEXT_KEY, which is logged.
func FetchStatsData(ctx context.Context, q *StatsDataQuery) (json.RawMessage, error) {
	raw, err := call(ctx, StatsDataAPI, q)
	if err != nil {
		return nil, err
	}
	var r resultInf
	if err := json.Unmarshal(raw, &r); err != nil {
		logging.Warningf(ctx, "e-Stat: cannot parse RESULT_INF of %s: %s", q.ID(), err.Error())
		return raw, nil
	}
	ri := r.GetStatsData.StatisticalData.ResultInf
	logging.Infof(ctx, "e-Stat: fetched rows %s-%s out of %s of %s",
		ri.FromNumber, ri.ToNumber, ri.TotalNumber, q.ID())
	if ri.NextKey != "" {
		logging.Warningf(ctx,
			"e-Stat: %s has more rows; set startPosition=%s to fetch the next part",
			q.ID(), ri.NextKey)
	}
	return raw, nil
}
