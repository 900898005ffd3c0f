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

// Paths to the classification list in the metadata document and in the data
// document (when requested with metaGetFlg=Y).
var (
	MetaClassPath = []string{"GET_META_INFO", "METADATA_INF", "CLASS_INF", "CLASS_OBJ"}
	DataClassPath = []string{"GET_STATS_DATA", "STATISTICAL_DATA", "CLASS_INF", "CLASS_OBJ"}
)

// Code is a single code of a classification dimension. Only Code and Name take
// part in label resolution; the rest is informational.
type Code struct {
	Code       string
	Name       string
	Level      string
	Unit       string
	ParentCode string
}

// Codes is the set of codes of a dimension, either SingleCode or MultiCode.
// The variant is decided by the shape of the metadata document: an object
// CLASS is a SingleCode, and a list CLASS is a MultiCode even when the list has
// only one element.
type Codes interface {
	List() []Code
	isCodes()
}

// SingleCode is a dimension with exactly one code.
type SingleCode struct {
	Code Code
}

// MultiCode is a dimension with a list of codes, in the document order.
type MultiCode []Code

var (
	_ Codes = SingleCode{}
	_ Codes = MultiCode{}
)

func (c SingleCode) List() []Code { return []Code{c.Code} }
func (c SingleCode) isCodes()     {}
func (c MultiCode) List() []Code  { return c }
func (c MultiCode) isCodes()      {}

// ClassObj is a classification dimension.
type ClassObj struct {
	ID    string // e.g. "tab", "area", "cat01"
	Name  string // display name
	Codes Codes
}

// Column is the name of the data column referencing this dimension.
func (c *ClassObj) Column() string { return "@" + c.ID }

// ClassIndex is the ordered list of dimensions of a metadata document.
type ClassIndex []ClassObj

// ExtractClassIndex parses the classification list of a metadata document.
func ExtractClassIndex(meta any) (ClassIndex, error) {
	return ExtractClassIndexAt(meta, MetaClassPath...)
}

// ExtractClassIndexAt parses the classification list found at the given path
// of the document. A single bare object at the path is treated as a list of
// one dimension.
func ExtractClassIndexAt(doc any, keys ...string) (ClassIndex, error) {
	node, p, err := lookup(doc, keys...)
	if err != nil {
		return nil, err
	}
	list, err := asList(node, p)
	if err != nil {
		return nil, err
	}
	idx := make(ClassIndex, len(list))
	for i, v := range list {
		if err := idx[i].parse(v, p.index(i)); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (c *ClassObj) parse(v any, p path) error {
	obj, ok := asObject(v)
	if !ok {
		return p.errorf("expected an object, found %s", kindOf(v))
	}
	idv, _ := obj.Get("@id")
	id, ok := scalarText(idv)
	if !ok || id == "" {
		return p.key("@id").errorf("missing or empty dimension id")
	}
	c.ID = id
	c.Name = id
	if nv, ok := obj.Get("@name"); ok && nv != nil {
		if c.Name, ok = scalarText(nv); !ok {
			return p.key("@name").errorf("expected a string, found %s", kindOf(nv))
		}
	}
	cls, ok := obj.Get("CLASS")
	p = p.key("CLASS")
	if !ok || cls == nil {
		return p.errorf("missing codes of dimension '%s'", id)
	}
	if list, ok := cls.([]any); ok {
		if len(list) == 0 {
			return p.errorf("empty code list of dimension '%s'", id)
		}
		codes := make(MultiCode, len(list))
		for i, e := range list {
			if err := codes[i].parse(e, p.index(i)); err != nil {
				return err
			}
		}
		c.Codes = codes
		return nil
	}
	var single SingleCode
	if err := single.Code.parse(cls, p); err != nil {
		return err
	}
	c.Codes = single
	return nil
}

func (c *Code) parse(v any, p path) error {
	obj, ok := asObject(v)
	if !ok {
		return p.errorf("expected a code object, found %s", kindOf(v))
	}
	cv, _ := obj.Get("@code")
	if c.Code, ok = scalarText(cv); !ok {
		return p.key("@code").errorf("expected a code, found %s", kindOf(cv))
	}
	optional := func(key string, dst *string) error {
		v, ok := obj.Get(key)
		if !ok || v == nil {
			return nil
		}
		if *dst, ok = scalarText(v); !ok {
			return p.key(key).errorf("expected a string, found %s", kindOf(v))
		}
		return nil
	}
	if err := optional("@name", &c.Name); err != nil {
		return err
	}
	if err := optional("@level", &c.Level); err != nil {
		return err
	}
	if err := optional("@unit", &c.Unit); err != nil {
		return err
	}
	return optional("@parentCode", &c.ParentCode)
}

// CodeRef identifies a code in a data column.
type CodeRef struct {
	Column string
	Code   string
}

// Duplicates lists codes occurring more than once within a dimension, in the
// order of the index.
func (idx ClassIndex) Duplicates() []CodeRef {
	var res []CodeRef
	for i := range idx {
		seen := make(map[string]int)
		for _, c := range idx[i].Codes.List() {
			seen[c.Code]++
			if seen[c.Code] == 2 {
				res = append(res, CodeRef{Column: idx[i].Column(), Code: c.Code})
			}
		}
	}
	return res
}
