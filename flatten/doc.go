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

// Package flatten converts the nested JSON documents of the e-Stat API into a
// flat table with human-readable labels.
//
// Official API documentation is at https://www.e-stat.go.jp/api/api-info/e-stat-manual3-0 .
//
// The metadata document (getMetaInfo) lists classification dimensions under
// GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ. Each dimension has an "@id"
// (e.g. "tab", "time", "area", "cat01"), a display "@name", and its codes
// under "CLASS". A dimension with a single code carries CLASS as an object, and
// a dimension with several codes carries it as a list:
//
//   {"@id": "tab", "@name": "表章項目",
//    "CLASS": {"@code": "020", "@name": "人口", "@unit": "人"}}
//   {"@id": "area", "@name": "地域",
//    "CLASS": [{"@code": "13000", "@name": "東京都"}, ...]}
//
// The data document (getStatsData) lists observations under
// GET_STATS_DATA.STATISTICAL_DATA.DATA_INF.VALUE, where each record references
// the dimensions by "@"-prefixed field names and holds the value in "$":
//
//   {"@tab": "020", "@area": "13000", "@time": "2020000000", "$": "14047594"}
//
// Flatten resolves every coded field to its label, and renames the columns to
// the dimension names. Codes missing from the metadata do not fail the
// conversion: they become Unresolved cells and are reported in the Result.
//
// All the functions in this package are pure and safe to call concurrently on
// different documents.
package flatten
