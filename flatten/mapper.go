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

// CodeMapper maps a data column name ("@" + dimension ID) to the map of
// {code -> label} of that dimension.
type CodeMapper map[string]map[string]string

// ColumnNameMapper maps a data column name ("@" + dimension ID) to the
// dimension's display name.
type ColumnNameMapper map[string]string

// NewCodeMapper builds the code mappings for all the dimensions of the index.
// When a dimension lists the same code more than once, the last label wins.
func NewCodeMapper(idx ClassIndex) CodeMapper {
	m := make(CodeMapper, len(idx))
	for i := range idx {
		m[idx[i].Column()] = codeMap(idx[i].Codes)
	}
	return m
}

func codeMap(codes Codes) map[string]string {
	switch c := codes.(type) {
	case SingleCode:
		return map[string]string{c.Code.Code: c.Code.Name}
	case MultiCode:
		m := make(map[string]string, len(c))
		for _, code := range c {
			m[code.Code] = code.Name
		}
		return m
	}
	return map[string]string{}
}

// NewColumnNameMapper builds the column renaming map for the index.
func NewColumnNameMapper(idx ClassIndex) ColumnNameMapper {
	m := make(ColumnNameMapper, len(idx))
	for i := range idx {
		m[idx[i].Column()] = idx[i].Name
	}
	return m
}
