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

package message

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stockparfait/testutil"

	. "github.com/smartystreets/goconvey/convey"
)

type Filter struct {
	Level string   `json:"level"`
	Codes []string `json:"codes"`
}

func (f *Filter) InitMessage(js any) error {
	return Init(f, js)
}

type Job struct {
	ID       string             `json:"id" required:"true"`
	Limit    int                `json:"limit" default:"100"`
	Ratio    float64            `default:"0.5"` // json key is "Ratio"
	Flag     string             `json:"flag" default:"Y" choices:"Y,N"`
	Mode     string             `json:"mode" choices:",fast,slow"`
	Verbose  *bool              `json:"verbose" default:"true"`
	Filters  map[string]Filter  `json:"filters"`
	Extra    *Filter            `json:"extra"`
	Main     Filter             `json:"main"`
	Next     []*Job             `json:"next"`
	Tags     map[string]string  `json:"tags"`
	Ignored  int                `json:"-"`
	Flags    map[string]float64 `json:"flags,omitempty"`
	internal int
}

func (j *Job) InitMessage(js any) error {
	return Init(j, js)
}

type BadChoice struct {
	Choice string `choices:"foo,bar"` // no default
}

func (b *BadChoice) InitMessage(js any) error {
	return Init(b, js)
}

func TestMessage(t *testing.T) {
	t.Parallel()

	tmpdir, tmpdirErr := os.MkdirTemp("", "test_message")
	defer os.RemoveAll(tmpdir)

	Convey("Setup succeeded", t, func() {
		So(tmpdirErr, ShouldBeNil)
	})

	Convey("Init works", t, func() {
		Convey("with required fields only", func() {
			var j Job
			So(j.InitMessage(testutil.JSON(`{"id": "0003410379"}`)), ShouldBeNil)
			So(j.ID, ShouldEqual, "0003410379")
			So(j.Limit, ShouldEqual, 100)
			So(j.Ratio, ShouldEqual, 0.5)
			So(j.Flag, ShouldEqual, "Y")
			So(j.Mode, ShouldEqual, "")
			So(*j.Verbose, ShouldBeTrue)
			So(j.Filters, ShouldBeNil)
			So(j.Extra, ShouldBeNil)
			So(j.Main, ShouldResemble, Filter{})
		})

		Convey("with nested messages", func() {
			var j Job
			So(j.InitMessage(testutil.JSON(`{
  "id": "a", "limit": 5, "Ratio": 2, "flag": "N", "mode": "fast", "verbose": false,
  "filters": {"area": {"level": "2", "codes": ["13000", "27000"]}},
  "extra": {"level": "1"},
  "next": [{"id": "b"}],
  "tags": {"x": "y"}
}`)), ShouldBeNil)
			So(j.Limit, ShouldEqual, 5)
			So(j.Ratio, ShouldEqual, 2.0)
			So(j.Flag, ShouldEqual, "N")
			So(*j.Verbose, ShouldBeFalse)
			So(j.Filters, ShouldResemble, map[string]Filter{
				"area": {Level: "2", Codes: []string{"13000", "27000"}}})
			So(j.Extra, ShouldResemble, &Filter{Level: "1"})
			So(len(j.Next), ShouldEqual, 1)
			So(j.Next[0].ID, ShouldEqual, "b")
			So(j.Next[0].Limit, ShouldEqual, 100)
			So(j.Tags, ShouldResemble, map[string]string{"x": "y"})
		})

		Convey("rejects bad input", func() {
			var j Job
			So(j.InitMessage(testutil.JSON(`{}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`{"id": "a", "unknown": 1}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`{"id": "a", "flag": "maybe"}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`{"id": "a", "limit": 1.5}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`{"id": "a", "limit": "5"}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`{"id": "a", "next": [{}]}`)), ShouldNotBeNil)
			So(j.InitMessage(testutil.JSON(`[1]`)), ShouldNotBeNil)
			So(j.InitMessage(nil), ShouldNotBeNil)
		})

		Convey("checks choices of zero values", func() {
			var b BadChoice
			So(b.InitMessage(testutil.JSON(`{}`)), ShouldNotBeNil)
			So(b.InitMessage(testutil.JSON(`{"Choice": "bar"}`)), ShouldBeNil)
		})
	})

	Convey("FromFile and FromJSON work", t, func() {
		fileName := filepath.Join(tmpdir, "job.json")
		So(testutil.WriteFile(fileName, `{"id": "file", "limit": 7}`), ShouldBeNil)
		var j Job
		So(FromFile(&j, fileName), ShouldBeNil)
		So(j.ID, ShouldEqual, "file")
		So(j.Limit, ShouldEqual, 7)

		So(FromFile(&j, filepath.Join(tmpdir, "missing.json")), ShouldNotBeNil)
		So(FromJSON(&j, []byte(`{"id": `)), ShouldNotBeNil)
	})
}
