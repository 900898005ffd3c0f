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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// SchemaError is returned when a required node of a document is missing or
// has an unexpected shape. The conversion is aborted entirely.
type SchemaError struct {
	Path   string // e.g. GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[1].CLASS
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("unexpected document schema at %s: %s", e.Path, e.Reason)
}

// Object is a JSON object which remembers the order of its keys. Decode
// produces Objects, so that the columns of a flattened table follow the order
// of fields in the source document.
type Object struct {
	Keys   []string
	Fields map[string]any
}

// NewObject creates an empty Object.
func NewObject() *Object {
	return &Object{Fields: make(map[string]any)}
}

// Set the value of a key. A new key is appended to the key order.
func (o *Object) Set(key string, v any) *Object {
	if _, ok := o.Fields[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Fields[key] = v
	return o
}

// Get the value of a key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.Fields[key]
	return v, ok
}

// MarshalJSON implements json.Marshaler, preserving the key order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.Fields[k])
		if err != nil {
			return nil, errors.Annotate(err, "failed to marshal field '%s'", k)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Decode a JSON document into a generic value. Objects are decoded as *Object
// and numbers as json.Number, so that neither field order nor numeric text is
// lost. Other values are decoded as in encoding/json.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return nil, errors.Annotate(err, "failed to decode JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Reason("unexpected data after the top-level JSON value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil // string, json.Number, bool or nil
	}
	switch d {
	case '{':
		obj := NewObject()
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := kt.(string)
			if !ok {
				return nil, errors.Reason("object key is not a string: %v", kt)
			}
			v, err := decodeValue(dec)
			if err != nil {
				return nil, errors.Annotate(err, "failed to decode field '%s'", key)
			}
			obj.Set(key, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		list := []any{}
		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, errors.Annotate(err, "failed to decode element %d", len(list))
			}
			list = append(list, v)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return list, nil
	}
	return nil, errors.Reason("unexpected delimiter: %v", d)
}

// asObject accepts both *Object and the map[string]any produced by
// encoding/json. Map keys are sorted, since their source order is lost.
func asObject(v any) (*Object, bool) {
	switch o := v.(type) {
	case *Object:
		return o, o != nil
	case map[string]any:
		keys := maps.Keys(o)
		slices.Sort(keys)
		return &Object{Keys: keys, Fields: o}, true
	}
	return nil, false
}

// kindOf names the JSON type of v for error messages.
func kindOf(v any) string {
	if _, ok := asObject(v); ok {
		return "an object"
	}
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "a list"
	case string:
		return "a string"
	case json.Number, float64:
		return "a number"
	case bool:
		return "a bool"
	}
	return fmt.Sprintf("%T", v)
}

// scalarText converts a JSON scalar to its text representation.
func scalarText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(s), true
	}
	return "", false
}

// path to a node in a document, for error reporting.
type path []string

func (p path) String() string {
	if len(p) == 0 {
		return "<root>"
	}
	var b strings.Builder
	for i, s := range p {
		if i > 0 && !strings.HasPrefix(s, "[") {
			b.WriteByte('.')
		}
		b.WriteString(s)
	}
	return b.String()
}

func (p path) key(k string) path {
	return append(p[:len(p):len(p)], k)
}

func (p path) index(i int) path {
	return append(p[:len(p):len(p)], fmt.Sprintf("[%d]", i))
}

func (p path) errorf(format string, args ...any) *SchemaError {
	return &SchemaError{Path: p.String(), Reason: fmt.Sprintf(format, args...)}
}

// lookup follows the chain of object keys from doc. A missing or null node is
// a SchemaError.
func lookup(doc any, keys ...string) (any, path, error) {
	var p path
	node := doc
	for _, k := range keys {
		obj, ok := asObject(node)
		if !ok {
			return nil, p, p.errorf("expected an object, found %s", kindOf(node))
		}
		p = p.key(k)
		v, ok := obj.Get(k)
		if !ok || v == nil {
			return nil, p, p.errorf("missing required node")
		}
		node = v
	}
	return node, p, nil
}

// asList normalizes a node which is either a list or a single bare object into
// a list.
func asList(node any, p path) ([]any, error) {
	if l, ok := node.([]any); ok {
		return l, nil
	}
	if _, ok := asObject(node); ok {
		return []any{node}, nil
	}
	return nil, p.errorf("expected a list or an object, found %s", kindOf(node))
}
