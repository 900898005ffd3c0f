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
	"testing"

	"github.com/stockparfait/estat/table"
	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

func metaDoc(classObj string) string {
	return fmt.Sprintf(`{"GET_META_INFO": {
  "RESULT": {"STATUS": 0, "ERROR_MSG": "正常に終了しました。"},
  "METADATA_INF": {"CLASS_INF": {"CLASS_OBJ": %s}}}}`, classObj)
}

func dataDoc(values string) string {
	return fmt.Sprintf(`{"GET_STATS_DATA": {
  "RESULT": {"STATUS": 0},
  "STATISTICAL_DATA": {"DATA_INF": {"VALUE": %s}}}}`, values)
}

func mustDecode(s string) any {
	v, err := Decode([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func csvOf(t *table.Table) string {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf, table.Params{NA: "NA"}); err != nil {
		return err.Error()
	}
	return buf.String()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	Convey("Decode preserves key order and numbers", t, func() {
		v, err := Decode([]byte(`{"b": 1, "a": {"y": 2.50, "x": null}, "c": [true, "s"]}`))
		So(err, ShouldBeNil)
		obj, ok := v.(*Object)
		So(ok, ShouldBeTrue)
		So(obj.Keys, ShouldResemble, []string{"b", "a", "c"})
		So(obj.Fields["b"], ShouldEqual, json.Number("1"))
		a := obj.Fields["a"].(*Object)
		So(a.Keys, ShouldResemble, []string{"y", "x"})
		So(a.Fields["x"], ShouldBeNil)
		So(obj.Fields["c"], ShouldResemble, []any{true, "s"})

		js, err := json.Marshal(obj)
		So(err, ShouldBeNil)
		So(string(js), ShouldEqual, `{"b":1,"a":{"y":2.50,"x":null},"c":[true,"s"]}`)
	})

	Convey("Decode rejects bad JSON", t, func() {
		_, err := Decode([]byte(`{"a": `))
		So(err, ShouldNotBeNil)
		_, err = Decode([]byte(`{} {}`))
		So(err, ShouldNotBeNil)
	})
}

func TestClassIndex(t *testing.T) {
	t.Parallel()

	Convey("ExtractClassIndex", t, func() {
		Convey("handles single and multiple codes", func() {
			idx, err := ExtractClassIndex(mustDecode(metaDoc(`[
  {"@id": "tab", "@name": "表章項目",
   "CLASS": {"@code": "020", "@name": "人口", "@level": "", "@unit": "人"}},
  {"@id": "area", "@name": "地域",
   "CLASS": [{"@code": "13000", "@name": "東京都", "@level": "2", "@parentCode": "00000"}]}]`)))
			So(err, ShouldBeNil)
			So(idx, ShouldResemble, ClassIndex{
				{ID: "tab", Name: "表章項目", Codes: SingleCode{
					Code: Code{Code: "020", Name: "人口", Unit: "人"}}},
				{ID: "area", Name: "地域", Codes: MultiCode{
					{Code: "13000", Name: "東京都", Level: "2", ParentCode: "00000"}}},
			})
			So(idx[0].Column(), ShouldEqual, "@tab")
		})

		Convey("accepts a bare dimension object", func() {
			idx, err := ExtractClassIndex(mustDecode(metaDoc(
				`{"@id": "area", "@name": "地域", "CLASS": {"@code": "99", "@name": "National"}}`)))
			So(err, ShouldBeNil)
			So(len(idx), ShouldEqual, 1)
			So(idx[0].Codes, ShouldResemble, SingleCode{Code: Code{Code: "99", Name: "National"}})
		})

		Convey("accepts encoding/json maps and numeric codes", func() {
			idx, err := ExtractClassIndex(testutil.JSON(metaDoc(
				`[{"@id": "time", "@name": "時間軸", "CLASS": [{"@code": 2020, "@name": "2020年"}]}]`)))
			So(err, ShouldBeNil)
			So(idx[0].Codes.List(), ShouldResemble, []Code{{Code: "2020", Name: "2020年"}})
		})

		Convey("defaults the name to the ID", func() {
			idx, err := ExtractClassIndex(mustDecode(metaDoc(
				`[{"@id": "cat01", "CLASS": {"@code": "1"}}]`)))
			So(err, ShouldBeNil)
			So(idx[0].Name, ShouldEqual, "cat01")
		})

		Convey("reports schema errors with the path", func() {
			check := func(doc any, path string) {
				_, err := ExtractClassIndex(doc)
				So(err, ShouldNotBeNil)
				se, ok := err.(*SchemaError)
				So(ok, ShouldBeTrue)
				So(se.Path, ShouldEqual, path)
			}
			check(mustDecode(`{"GET_META_INFO": {"METADATA_INF": {}}}`),
				"GET_META_INFO.METADATA_INF.CLASS_INF")
			check(mustDecode(`[]`), "<root>")
			check(mustDecode(metaDoc(`null`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ")
			check(mustDecode(metaDoc(`"oops"`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ")
			check(mustDecode(metaDoc(`[{"@name": "x", "CLASS": {"@code": "1"}}]`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[0].@id")
			check(mustDecode(metaDoc(`[{"@id": "tab"}]`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[0].CLASS")
			check(mustDecode(metaDoc(`[{"@id": "tab", "CLASS": []}]`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[0].CLASS")
			check(mustDecode(metaDoc(`[{"@id": "tab", "CLASS": {"@code": null, "@name": "x"}}]`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[0].CLASS.@code")
			check(mustDecode(metaDoc(
				`[{"@id": "t", "CLASS": {"@code": "1"}}, {"@id": "a", "CLASS": [{"@code": "1"}, 5]}]`)),
				"GET_META_INFO.METADATA_INF.CLASS_INF.CLASS_OBJ[1].CLASS[1]")
		})

		Convey("finds duplicate codes", func() {
			idx, err := ExtractClassIndex(mustDecode(metaDoc(`[
  {"@id": "tab", "CLASS": [{"@code": "01", "@name": "A"}, {"@code": "01", "@name": "B"},
                           {"@code": "01", "@name": "C"}, {"@code": "02", "@name": "D"}]}]`)))
			So(err, ShouldBeNil)
			So(idx.Duplicates(), ShouldResemble, []CodeRef{{Column: "@tab", Code: "01"}})
		})
	})
}

func TestMappers(t *testing.T) {
	t.Parallel()

	Convey("Code mappers", t, func() {
		Convey("single code is a one-entry map", func() {
			idx := ClassIndex{{ID: "area", Name: "地域",
				Codes: SingleCode{Code: Code{Code: "99", Name: "National"}}}}
			So(NewCodeMapper(idx), ShouldResemble, CodeMapper{
				"@area": {"99": "National"}})
		})

		Convey("a one-element list is still a list", func() {
			idx, err := ExtractClassIndex(mustDecode(metaDoc(
				`[{"@id": "area", "CLASS": [{"@code": "99", "@name": "National"}]}]`)))
			So(err, ShouldBeNil)
			_, isMulti := idx[0].Codes.(MultiCode)
			So(isMulti, ShouldBeTrue)
			So(NewCodeMapper(idx), ShouldResemble, CodeMapper{
				"@area": {"99": "National"}})
		})

		Convey("multiple codes map one-to-one", func() {
			codes := MultiCode{}
			for i := 0; i < 50; i++ {
				codes = append(codes, Code{
					Code: fmt.Sprintf("%02d", i), Name: fmt.Sprintf("label %d", i)})
			}
			m := NewCodeMapper(ClassIndex{{ID: "cat01", Codes: codes}})
			So(len(m["@cat01"]), ShouldEqual, 50)
			for _, c := range codes {
				So(m["@cat01"][c.Code], ShouldEqual, c.Name)
			}
		})

		Convey("last duplicate wins", func() {
			m := NewCodeMapper(ClassIndex{{ID: "tab", Codes: MultiCode{
				{Code: "01", Name: "first"}, {Code: "01", Name: "last"}}}})
			So(m["@tab"], ShouldResemble, map[string]string{"01": "last"})
		})
	})

	Convey("Column name mapper", t, func() {
		idx := ClassIndex{
			{ID: "tab", Name: "表章項目", Codes: SingleCode{}},
			{ID: "area", Name: "地域", Codes: MultiCode{{Code: "1"}}},
		}
		names := NewColumnNameMapper(idx)
		So(names, ShouldResemble, ColumnNameMapper{"@tab": "表章項目", "@area": "地域"})
		codes := NewCodeMapper(idx)
		for k := range codes {
			_, ok := names[k]
			So(ok, ShouldBeTrue)
		}
		So(len(codes), ShouldEqual, len(names))
	})
}

func TestFlattenData(t *testing.T) {
	t.Parallel()

	Convey("FlattenData", t, func() {
		Convey("keeps field order, types and row order", func() {
			tbl, err := FlattenData(mustDecode(dataDoc(`[
  {"@tab": "01", "@time": "2020000000", "$": "100"},
  {"@tab": "02", "@annotation": "***", "@time": "2021000000", "$": 200},
  {"@tab": "03", "$": null}]`)))
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"@tab", "@time", "$", "@annotation"})
			So(tbl.Len(), ShouldEqual, 3)
			So(tbl.Rows[0][2], ShouldResemble, table.String("100"))
			n, ok := tbl.Rows[1][2].Float()
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 200.0)
			So(tbl.Rows[2][1].Kind, ShouldEqual, table.NullKind)
			So(tbl.Rows[2][2].Kind, ShouldEqual, table.NullKind)
			So(tbl.Rows[0][3].Kind, ShouldEqual, table.NullKind)
		})

		Convey("flattens nested objects and encodes lists", func() {
			tbl, err := FlattenData(mustDecode(dataDoc(
				`{"@tab": "01", "note": {"@no": "1", "$": "x"}, "tags": ["a", 1], "flag": true}`)))
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"@tab", "note.@no", "note.$", "tags", "flag"})
			So(tbl.Rows[0], ShouldResemble, table.Row{
				table.String("01"), table.String("1"), table.String("x"),
				table.String(`["a",1]`), table.String("true")})
		})

		Convey("sorts keys of encoding/json maps", func() {
			tbl, err := FlattenData(testutil.JSON(dataDoc(`[{"@tab": "01", "$": "5"}]`)))
			So(err, ShouldBeNil)
			So(tbl.Header, ShouldResemble, []string{"$", "@tab"})
		})

		Convey("accepts an empty list", func() {
			tbl, err := FlattenData(mustDecode(dataDoc(`[]`)))
			So(err, ShouldBeNil)
			So(tbl.Len(), ShouldEqual, 0)
		})

		Convey("reports schema errors", func() {
			_, err := FlattenData(mustDecode(`{"GET_STATS_DATA": {"STATISTICAL_DATA": {}}}`))
			se, ok := err.(*SchemaError)
			So(ok, ShouldBeTrue)
			So(se.Path, ShouldEqual, "GET_STATS_DATA.STATISTICAL_DATA.DATA_INF")
			So(se.Error(), ShouldContainSubstring, "GET_STATS_DATA.STATISTICAL_DATA.DATA_INF")

			_, err = FlattenData(mustDecode(dataDoc(`[{"@tab": "01"}, "bad"]`)))
			se, ok = err.(*SchemaError)
			So(ok, ShouldBeTrue)
			So(se.Path, ShouldEqual, "GET_STATS_DATA.STATISTICAL_DATA.DATA_INF.VALUE[1]")
		})
	})
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	meta := metaDoc(`[
  {"@id": "tab", "@name": "都市", "CLASS": [
    {"@code": "01", "@name": "Tokyo"}, {"@code": "02", "@name": "Osaka"}]},
  {"@id": "area", "@name": "地域", "CLASS": {"@code": "99", "@name": "National"}}]`)

	Convey("Flatten", t, func() {
		Convey("resolves codes and renames columns", func() {
			res, err := Flatten(mustDecode(meta), mustDecode(dataDoc(`[
  {"@tab": "01", "$": 100},
  {"@tab": "02", "$": 200}]`)))
			So(err, ShouldBeNil)
			So(res.Unresolved, ShouldBeEmpty)
			So(csvOf(res.Table), ShouldEqual, `都市,$
Tokyo,100
Osaka,200
`)
		})

		Convey("resolves a single-code dimension", func() {
			res, err := Flatten(mustDecode(meta), mustDecode(dataDoc(`[
  {"@area": "99", "@tab": "02", "$": "7"}]`)))
			So(err, ShouldBeNil)
			So(res.Table.Header, ShouldResemble, []string{"地域", "都市", "$"})
			So(res.Table.Rows[0][0], ShouldResemble, table.String("National"))
		})

		Convey("marks unresolved codes without failing", func() {
			res, err := Flatten(mustDecode(meta), mustDecode(dataDoc(`[
  {"@tab": "01", "$": "1"},
  {"@tab": "03", "$": "2"},
  {"@tab": "02", "$": "3"},
  {"@tab": "03", "$": "4"},
  {"$": "5"}]`)))
			So(err, ShouldBeNil)
			So(res.Table.Len(), ShouldEqual, 5)
			So(csvOf(res.Table), ShouldEqual, `都市,$
Tokyo,1
NA,2
Osaka,3
NA,4
NA,5
`)
			So(res.Table.Rows[1][0], ShouldResemble, table.Unresolved("03"))
			So(res.Table.Rows[4][0].Kind, ShouldEqual, table.NullKind)
			So(res.Unresolved, ShouldResemble, []Unresolved{
				{CodeRef: CodeRef{Column: "@tab", Code: "03"}, Row: 1},
				{CodeRef: CodeRef{Column: "@tab", Code: "03"}, Row: 3},
			})
			So(res.UnresolvedCodes(), ShouldResemble, []CodeRef{{Column: "@tab", Code: "03"}})
		})

		Convey("passes through columns without dimensions", func() {
			res, err := Flatten(mustDecode(meta), mustDecode(dataDoc(`[
  {"@tab": "01", "@unit": "人", "$": "-"}]`)))
			So(err, ShouldBeNil)
			So(res.Table.Header, ShouldResemble, []string{"都市", "@unit", "$"})
			So(res.Table.Rows[0], ShouldResemble, table.Row{
				table.String("Tokyo"), table.String("人"), table.String("-")})
		})

		Convey("is idempotent", func() {
			m, d := mustDecode(meta), mustDecode(dataDoc(`[{"@tab": "02", "$": 1}, {"@tab": "09", "$": 2}]`))
			res1, err := Flatten(m, d)
			So(err, ShouldBeNil)
			res2, err := Flatten(m, d)
			So(err, ShouldBeNil)
			So(res2, ShouldResemble, res1)
		})

		Convey("aborts on schema errors", func() {
			res, err := Flatten(mustDecode(`{}`), mustDecode(dataDoc(`[]`)))
			So(res, ShouldBeNil)
			_, ok := err.(*SchemaError)
			So(ok, ShouldBeTrue)

			res, err = Flatten(mustDecode(meta), mustDecode(`{"GET_STATS_DATA": {}}`))
			So(res, ShouldBeNil)
			se, ok := err.(*SchemaError)
			So(ok, ShouldBeTrue)
			So(se.Path, ShouldEqual, "GET_STATS_DATA.STATISTICAL_DATA")
		})

		Convey("looks up numeric codes by their text", func() {
			timeMeta := metaDoc(`{"@id": "time", "@name": "時間軸", "CLASS": [
  {"@code": "2020", "@name": "2020年"}, {"@code": "2021", "@name": "2021年"}]}`)
			values := `[{"@time": 2020, "$": 1}, {"@time": 2021, "$": 2}, {"@time": 2022, "$": 3}]`
			expected := `時間軸,$
2020年,1
2021年,2
NA,3
`
			unresolved := []Unresolved{
				{CodeRef: CodeRef{Column: "@time", Code: "2022"}, Row: 2}}

			Convey("with Decode", func() {
				res, err := Flatten(mustDecode(timeMeta), mustDecode(dataDoc(values)))
				So(err, ShouldBeNil)
				So(csvOf(res.Table), ShouldEqual, expected)
				So(res.Table.Rows[0][0], ShouldResemble, table.String("2020年"))
				So(res.Table.Rows[2][0], ShouldResemble, table.Unresolved("2022"))
				So(res.Unresolved, ShouldResemble, unresolved)
			})

			Convey("with encoding/json", func() {
				res, err := Flatten(testutil.JSON(timeMeta), testutil.JSON(dataDoc(values)))
				So(err, ShouldBeNil)
				// Map keys are sorted, so "$" comes first.
				So(csvOf(res.Table), ShouldEqual, `$,時間軸
1,2020年
2,2021年
3,NA
`)
				So(res.Table.Rows[1][1], ShouldResemble, table.String("2021年"))
				So(res.Unresolved, ShouldResemble, unresolved)
			})
		})

		Convey("uses the embedded classification list", func() {
			res, err := FlattenJSON(nil, []byte(`{"GET_STATS_DATA": {"STATISTICAL_DATA": {
  "CLASS_INF": {"CLASS_OBJ": {"@id": "tab", "@name": "都市",
    "CLASS": {"@code": "01", "@name": "Tokyo"}}},
  "DATA_INF": {"VALUE": {"@tab": "01", "$": "10"}}}}}`))
			So(err, ShouldBeNil)
			So(csvOf(res.Table), ShouldEqual, `都市,$
Tokyo,10
`)
		})

		Convey("FlattenJSON decodes both documents", func() {
			res, err := FlattenJSON([]byte(meta), []byte(dataDoc(`[{"@tab": "02", "$": "1"}]`)))
			So(err, ShouldBeNil)
			So(res.Table.Rows[0][0], ShouldResemble, table.String("Osaka"))

			_, err = FlattenJSON([]byte(`{`), []byte(dataDoc(`[]`)))
			So(err, ShouldNotBeNil)
		})
	})
}
