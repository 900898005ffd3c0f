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

// Package estatapi is a thin client for the JSON endpoints of the e-Stat API
// version 3.0, the portal of Japanese government statistics.
//
// Official documentation is at https://www.e-stat.go.jp/api/api-info/e-stat-manual3-0 .
//
// Three endpoints are supported:
//
//   - getStatsList: search the catalog of statistical tables (StatsListQuery);
//   - getMetaInfo: the classification metadata of a table (MetaInfoQuery);
//   - getStatsData: the observations of a table (StatsDataQuery).
//
// Each query is an explicit structure enumerating the recognized parameters,
// which is also a message.Message, so queries can be read from JSON configs.
// Responses are returned as raw JSON documents, to be converted by the flatten
// package. Every call requires an application ID, injected into the context
// with UseClient.
package estatapi
