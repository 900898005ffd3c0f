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

package table

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTable(t *testing.T) {
	t.Parallel()

	Convey("Cells work", t, func() {
		n, err := NumberText("1.50")
		So(err, ShouldBeNil)
		So(n.String(), ShouldEqual, "1.50")
		f, ok := n.Float()
		So(ok, ShouldBeTrue)
		So(f, ShouldEqual, 1.5)

		So(Number(200).String(), ShouldEqual, "200")
		So(String("Tokyo").String(), ShouldEqual, "Tokyo")
		So(Null().IsMissing(), ShouldBeTrue)
		So(Unresolved("03").IsMissing(), ShouldBeTrue)
		So(Unresolved("03").Text(), ShouldEqual, "03")
		So(Unresolved("03").String(), ShouldEqual, "")
		So(String("03").Equal(Unresolved("03")), ShouldBeFalse)

		_, ok = String("1").Float()
		So(ok, ShouldBeFalse)
		_, err = NumberText("abc")
		So(err, ShouldNotBeNil)
	})

	Convey("Table methods work", t, func() {
		t := NewTable("Area", "Value")
		headless := NewTable()

		t.AddRow(Row{String("Tokyo"), Number(100)}, Row{String("Osaka")})
		headless.AddRow(Row{String("Tokyo"), Number(100)}, Row{String("Osaka"), Number(200)})

		Convey("AddRow pads short rows", func() {
			So(t.Len(), ShouldEqual, 2)
			So(len(t.Rows[1]), ShouldEqual, 2)
			So(t.Rows[1][1].Kind, ShouldEqual, NullKind)
		})

		Convey("Column and Values", func() {
			So(t.Column("Value"), ShouldEqual, 1)
			So(t.Column("Nope"), ShouldEqual, -1)
			So(t.Values(1), ShouldResemble, []Cell{Number(100), Null()})
			So(t.Values(0), ShouldResemble, []Cell{String("Tokyo"), String("Osaka")})
		})

		Convey("Rename keeps unmapped columns", func() {
			t.Rename(map[string]string{"Area": "地域", "Other": "x"})
			So(t.Header, ShouldResemble, []string{"地域", "Value"})
		})

		Convey("WriteCSV", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Area,Value
Tokyo,100
Osaka,
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.WriteCSV(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Tokyo,100
Osaka,200
`)
			})

			Convey("Limited rows, no header, NA", func() {
				var buf bytes.Buffer
				So(t.WriteCSV(&buf, Params{Rows: 1, NoHeader: true}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Tokyo,100
`)
				buf.Reset()
				So(t.WriteCSV(&buf, Params{NoHeader: true, NA: "NA"}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Tokyo,100
Osaka,NA
`)
			})
		})

		Convey("WriteText", func() {
			Convey("Default Params", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{NA: "-"}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
 Area | Value
----- | -----
Tokyo |   100
Osaka |     -
`)
			})

			Convey("Default Params, headless", func() {
				var buf bytes.Buffer
				So(headless.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
Tokyo | 100
Osaka | 200
`)
			})

			Convey("Limited rows and width, no header", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{Rows: 1, NoHeader: true, MaxColWidth: 4}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
To.. | 100
`)
			})

			Convey("Full-width characters take two cells", func() {
				jp := NewTable("地域", "値")
				jp.AddRow(Row{String("東京都"), Number(1)}, Row{String("Osaka"), Number(2)})

				var buf bytes.Buffer
				So(jp.WriteText(&buf, Params{}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
  地域 | 値
------ | --
東京都 |  1
 Osaka |  2
`)

				buf.Reset()
				So(jp.WriteText(&buf, Params{MaxColWidth: 4}), ShouldBeNil)
				So("\n"+buf.String(), ShouldEqual, `
地域 | 値
---- | --
東.. |  1
Os.. |  2
`)
			})

			Convey("Bad width", func() {
				var buf bytes.Buffer
				So(t.WriteText(&buf, Params{MaxColWidth: 3}), ShouldNotBeNil)
			})
		})
	})
}
