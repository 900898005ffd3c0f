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

// Package message implements JSON-based configuration messages: structs whose
// fields are populated from a generic JSON value, with required fields, default
// values and value choices declared in struct tags.
package message

import (
	"encoding/json"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/stockparfait/errors"
)

// Message is typically implemented by a struct pointer, e.g.:
//
//   type Job struct {
//     ID    string   `json:"id" required:"true"`
//     Limit int      `json:"limit" default:"100"`
//     Flag  string   `json:"flag" default:"Y" choices:"Y,N"`
//     Areas []string `json:"areas"`
//     Next  *Job     `json:"next"` // nested Messages are initialized recursively
//   }
//
//   func (j *Job) InitMessage(js any) error {
//     return message.Init(j, js)
//   }
type Message interface {
	// InitMessage populates the message from a generic JSON value as produced
	// by encoding/json. It checks for required fields, sets default values, and
	// rejects unrecognized fields.
	InitMessage(js any) error
}

var messageType = reflect.TypeOf((*Message)(nil)).Elem()

// fieldSpec is the parsed description of an exported struct field.
type fieldSpec struct {
	index    int
	name     string // JSON key
	required bool
	def      *string
	choices  []string
}

func parseField(f reflect.StructField, i int) (fieldSpec, bool) {
	if !f.IsExported() {
		return fieldSpec{}, false
	}
	spec := fieldSpec{index: i, name: f.Name}
	if tag := f.Tag.Get("json"); tag != "" {
		name := strings.Split(tag, ",")[0]
		if name == "-" {
			return fieldSpec{}, false
		}
		if name != "" {
			spec.name = name
		}
	}
	spec.required = f.Tag.Get("required") == "true"
	if d, ok := f.Tag.Lookup("default"); ok {
		spec.def = &d
	}
	if c, ok := f.Tag.Lookup("choices"); ok {
		spec.choices = strings.Split(c, ",")
	}
	return spec, true
}

// Init is the generic implementation of Message.InitMessage. It expects m to be
// a struct pointer, and js to be a map[string]any.
//
// Recognized struct tags:
// `json:"field_name" required:"true" default:"value" choices:"one,two,three"`
//
// The json tag follows encoding/json conventions: a missing tag means the Go
// field name, "-" skips the field, and options like ",omitempty" are ignored.
// Defaults are supported for bool, int, float64, string and pointers to them.
// Choices are supported for strings only. Fields of a type implementing
// Message (directly or via its pointer) are initialized by their InitMessage,
// with an empty object when absent, so that their defaults apply.
func Init(m Message, js any) error {
	rv := reflect.ValueOf(m)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return errors.Reason("expected a struct pointer, got %T", m)
	}
	if js == nil {
		return errors.Reason("JSON object is nil")
	}
	obj, ok := js.(map[string]any)
	if !ok {
		return errors.Reason("JSON value is not an object: %v", js)
	}
	rv = rv.Elem()
	rt := rv.Type()
	known := make(map[string]bool)
	var missing []string
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		spec, ok := parseField(f, i)
		if !ok {
			continue
		}
		known[spec.name] = true
		var v reflect.Value
		var err error
		jv, present := obj[spec.name]
		switch {
		case present:
			v, err = fromJSON(jv, f.Type)
		case spec.required:
			missing = append(missing, spec.name)
			continue
		case spec.def != nil:
			v, err = fromString(*spec.def, f.Type)
		default:
			v, err = fromJSON(nil, f.Type)
		}
		if err != nil {
			return errors.Annotate(err, "invalid value for %s", spec.name)
		}
		if err := spec.check(v); err != nil {
			return err
		}
		rv.Field(i).Set(v)
	}
	if len(missing) > 0 {
		return errors.Reason("missing required fields: %s", strings.Join(missing, ", "))
	}
	var extra []string
	for k := range obj {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		return errors.Reason("unsupported fields for %s: %s",
			rt.Name(), strings.Join(extra, ", "))
	}
	return nil
}

// check the value against the list of choices, if any.
func (s fieldSpec) check(v reflect.Value) error {
	if s.choices == nil {
		return nil
	}
	if v.Kind() != reflect.String {
		return errors.Reason("choices apply only to string fields: %s", s.name)
	}
	for _, c := range s.choices {
		if v.String() == c {
			return nil
		}
	}
	return errors.Reason("value for %s is not in [%s]: '%s'",
		s.name, strings.Join(s.choices, ", "), v.String())
}

func initMessage(jv any, t reflect.Type) (reflect.Value, error) {
	ptr := reflect.New(t.Elem())
	if err := ptr.Interface().(Message).InitMessage(jv); err != nil {
		return reflect.Value{}, errors.Annotate(err, "failed to init %s", t.Elem().Name())
	}
	return ptr, nil
}

// fromJSON converts a generic JSON value jv to type t. A nil jv produces a
// zero value, except for non-pointer Messages which are initialized from an
// empty object.
func fromJSON(jv any, t reflect.Type) (reflect.Value, error) {
	if t.Implements(messageType) && t.Kind() == reflect.Ptr {
		if jv == nil {
			return reflect.Zero(t), nil
		}
		return initMessage(jv, t)
	}
	if pt := reflect.PtrTo(t); t.Kind() == reflect.Struct && pt.Implements(messageType) {
		if jv == nil {
			jv = map[string]any{}
		}
		ptr, err := initMessage(jv, pt)
		if err != nil {
			return reflect.Value{}, err
		}
		return ptr.Elem(), nil
	}
	if jv == nil {
		return reflect.Zero(t), nil
	}
	mismatch := func() (reflect.Value, error) {
		return reflect.Value{}, errors.Reason("expected %s, found %T: %v", t, jv, jv)
	}
	switch t.Kind() {
	case reflect.Ptr:
		v, err := fromJSON(jv, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case reflect.Bool:
		if b, ok := jv.(bool); ok {
			return reflect.ValueOf(b).Convert(t), nil
		}
	case reflect.Int, reflect.Int64:
		if f, ok := jv.(float64); ok && f == float64(int64(f)) {
			return reflect.ValueOf(int64(f)).Convert(t), nil
		}
	case reflect.Float64:
		if f, ok := jv.(float64); ok {
			return reflect.ValueOf(f).Convert(t), nil
		}
	case reflect.String:
		if s, ok := jv.(string); ok {
			return reflect.ValueOf(s).Convert(t), nil
		}
	case reflect.Slice:
		l, ok := jv.([]any)
		if !ok {
			return mismatch()
		}
		res := reflect.MakeSlice(t, len(l), len(l))
		for i, e := range l {
			v, err := fromJSON(e, t.Elem())
			if err != nil {
				return reflect.Value{}, errors.Annotate(err, "element %d", i)
			}
			res.Index(i).Set(v)
		}
		return res, nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return reflect.Value{}, errors.Reason("unsupported map key type: %s", t.Key())
		}
		m, ok := jv.(map[string]any)
		if !ok {
			return mismatch()
		}
		res := reflect.MakeMapWithSize(t, len(m))
		for k, e := range m {
			v, err := fromJSON(e, t.Elem())
			if err != nil {
				return reflect.Value{}, errors.Annotate(err, "key '%s'", k)
			}
			res.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), v)
		}
		return res, nil
	default:
		return reflect.Value{}, errors.Reason("unsupported type: %s", t)
	}
	return mismatch()
}

// fromString parses a default value from a struct tag.
func fromString(s string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.Ptr:
		v, err := fromString(s, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(v)
		return ptr, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return reflect.Value{}, errors.Annotate(err, "invalid bool default: %s", s)
		}
		return reflect.ValueOf(b).Convert(t), nil
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return reflect.Value{}, errors.Annotate(err, "invalid int default: %s", s)
		}
		return reflect.ValueOf(n).Convert(t), nil
	case reflect.Float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return reflect.Value{}, errors.Annotate(err, "invalid float64 default: %s", s)
		}
		return reflect.ValueOf(f).Convert(t), nil
	case reflect.String:
		return reflect.ValueOf(s).Convert(t), nil
	}
	return reflect.Value{}, errors.Reason("default values are not supported for %s", t)
}

// FromJSON initializes the message from raw JSON bytes.
func FromJSON(m Message, data []byte) error {
	var js any
	if err := json.Unmarshal(data, &js); err != nil {
		return errors.Annotate(err, "failed to parse JSON")
	}
	return m.InitMessage(js)
}

// FromFile initializes the message from a JSON file.
func FromFile(m Message, fileName string) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return errors.Annotate(err, "failed to read '%s'", fileName)
	}
	if err := FromJSON(m, data); err != nil {
		return errors.Annotate(err, "failed to parse '%s'", fileName)
	}
	return nil
}
