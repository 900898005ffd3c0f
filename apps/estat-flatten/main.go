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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/estatapi"
	"github.com/stockparfait/estat/flatten"
	"github.com/stockparfait/estat/message"
	"github.com/stockparfait/estat/stats"
	"github.com/stockparfait/estat/table"
	"github.com/stockparfait/iterator"
	"github.com/stockparfait/logging"
)

type Flags struct {
	ConfDir  string // default: ~/.estat
	LogLevel logging.Level
	// Exactly one of Jobs or Data must be present.
	Jobs    string // JSON file with the list of tables to download
	Meta    string // offline metadata document; default: embedded in Data
	Data    string // offline data document
	CSV     bool   // print CSV format; default: text
	OutDir  string // write each table into <OutDir>/<ID>.csv instead of stdout
	NA      string // text for missing values
	Rows    int    // max. rows to print per table; 0 = all
	Summary string // column to summarize
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("estat-flatten", flag.ExitOnError)
	fs.StringVar(&flags.ConfDir, "cache",
		filepath.Join(os.Getenv("HOME"), ".estat"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Jobs, "conf", "", "JSON config listing the tables to download")
	fs.StringVar(&flags.Meta, "meta", "", "metadata document (getMetaInfo response)")
	fs.StringVar(&flags.Data, "data", "", "data document (getStatsData response)")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.StringVar(&flags.OutDir, "out", "", "write tables as CSV files into this directory")
	fs.StringVar(&flags.NA, "na", "", "text for missing values")
	fs.IntVar(&flags.Rows, "rows", 0, "max. number of rows to print; 0 = all")
	fs.StringVar(&flags.Summary, "summary", "", "print summary statistics of this column")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if (flags.Jobs == "") == (flags.Data == "") {
		return nil, errors.Reason("expected exactly one of -conf or -data")
	}
	if flags.Meta != "" && flags.Data == "" {
		return nil, errors.Reason("-meta requires -data")
	}
	if flags.Rows < 0 {
		return nil, errors.Reason("-rows must be >= 0")
	}
	return &flags, nil
}

// Jobs is the JSON config of the tables to download.
type Jobs struct {
	Tables  []estatapi.StatsDataQuery `json:"tables" required:"true"`
	Workers int                       `json:"workers" default:"4"`
	// Fetch the metadata with getMetaInfo rather than embedding it into the
	// data. Requires statsDataId.
	MetaInfo bool `json:"metaInfo"`
}

var _ message.Message = &Jobs{}

func (j *Jobs) InitMessage(js any) error {
	if err := message.Init(j, js); err != nil {
		return errors.Annotate(err, "failed to init Jobs")
	}
	if len(j.Tables) == 0 {
		return errors.Reason("at least one table is required")
	}
	if j.Workers < 1 {
		return errors.Reason("workers=%d must be >= 1", j.Workers)
	}
	if j.MetaInfo {
		for i, q := range j.Tables {
			if q.StatsDataID == "" {
				return errors.Reason("table %d: metaInfo requires statsDataId", i)
			}
		}
	}
	return nil
}

// flattened is the outcome of processing a single table.
type flattened struct {
	index int
	name  string
	res   *flatten.Result
	err   error
}

func fetchTable(ctx context.Context, q *estatapi.StatsDataQuery, metaInfo bool) (*flatten.Result, error) {
	if !metaInfo {
		data, err := estatapi.FetchStatsData(ctx, q.WithMeta(true))
		if err != nil {
			return nil, err
		}
		return flatten.FlattenJSON(nil, data)
	}
	meta, err := estatapi.FetchMetaInfo(ctx, &estatapi.MetaInfoQuery{StatsDataID: q.StatsDataID})
	if err != nil {
		return nil, err
	}
	data, err := estatapi.FetchStatsData(ctx, q.WithMeta(false))
	if err != nil {
		return nil, err
	}
	return flatten.FlattenJSON(meta, data)
}

// tableNames names the tables by their IDs. When several jobs query the same
// table, e.g. with different filters, their names are suffixed by the 1-based
// occurrence: 0003410379-1, 0003410379-2.
func tableNames(qs []estatapi.StatsDataQuery) []string {
	ids := make([]string, len(qs))
	count := make(map[string]int)
	for i, q := range qs {
		ids[i] = q.StatsDataID
		if ids[i] == "" {
			ids[i] = q.DataSetID
		}
		count[ids[i]]++
	}
	seen := make(map[string]int)
	names := make([]string, len(qs))
	for i, id := range ids {
		names[i] = id
		if count[id] > 1 {
			seen[id]++
			names[i] = fmt.Sprintf("%s-%d", id, seen[id])
		}
	}
	return names
}

func download(ctx context.Context, flags *Flags) ([]flattened, error) {
	config, err := estatapi.ReadConfig(flags.ConfDir)
	if err != nil {
		return nil, errors.Annotate(err, "failed to parse config")
	}
	var jobs Jobs
	if err := message.FromFile(&jobs, flags.Jobs); err != nil {
		return nil, errors.Annotate(err, "failed to load jobs")
	}
	ctx = estatapi.UseClient(ctx, config.AppID)

	type job struct {
		index int
		name  string
		query *estatapi.StatsDataQuery
	}
	names := tableNames(jobs.Tables)
	js := make([]job, len(jobs.Tables))
	for i := range jobs.Tables {
		js[i] = job{index: i, name: names[i], query: &jobs.Tables[i]}
	}
	f := func(j job) flattened {
		res, err := fetchTable(ctx, j.query, jobs.MetaInfo)
		if err != nil {
			err = errors.Annotate(err, "failed to process %s", j.query.ID())
		}
		return flattened{index: j.index, name: j.name, res: res, err: err}
	}
	pm := iterator.ParallelMap(ctx, jobs.Workers, iterator.FromSlice(js), f)

	results := iterator.Reduce[flattened, []flattened](pm, nil,
		func(r flattened, rs []flattened) []flattened { return append(rs, r) })
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
	}
	return results, nil
}

func readFiles(flags *Flags) ([]flattened, error) {
	data, err := os.ReadFile(flags.Data)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read data file")
	}
	var meta []byte
	if flags.Meta != "" {
		if meta, err = os.ReadFile(flags.Meta); err != nil {
			return nil, errors.Annotate(err, "failed to read metadata file")
		}
	}
	res, err := flatten.FlattenJSON(meta, data)
	if err != nil {
		return nil, errors.Annotate(err, "failed to flatten %s", flags.Data)
	}
	name := filepath.Base(flags.Data)
	name = name[:len(name)-len(filepath.Ext(name))]
	return []flattened{{name: name, res: res}}, nil
}

func reportIssues(ctx context.Context, r flattened) {
	for _, d := range r.res.Duplicates {
		logging.Warningf(ctx, "%s: duplicate code %s in %s", r.name, d.Code, d.Column)
	}
	for _, u := range r.res.UnresolvedCodes() {
		logging.Warningf(ctx, "%s: code %s in %s has no label", r.name, u.Code, u.Column)
	}
}

func writeTable(tbl *table.Table, w io.Writer, csv bool, p table.Params) error {
	if csv {
		if err := tbl.WriteCSV(w, p); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, p); err != nil {
		return errors.Annotate(err, "failed to print text")
	}
	return nil
}

func writeFile(ctx context.Context, dir string, r flattened, p table.Params) error {
	fileName := filepath.Join(dir, r.name+".csv")
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.Annotate(err, "failed to open '%s' for writing", fileName)
	}
	if err := writeTable(r.res.Table, f, true, p); err != nil {
		f.Close()
		return errors.Annotate(err, "failed to write '%s'", fileName)
	}
	if err := f.Close(); err != nil {
		return errors.Annotate(err, "failed to close '%s'", fileName)
	}
	logging.Infof(ctx, "wrote %d rows to %s", r.res.Table.Len(), fileName)
	return nil
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	var results []flattened
	var err error
	if flags.Data != "" {
		results, err = readFiles(flags)
	} else {
		results, err = download(ctx, flags)
	}
	if err != nil {
		return err
	}
	p := table.Params{NA: flags.NA, Rows: flags.Rows}
	var summary *table.Table
	if flags.Summary != "" {
		summary = table.NewTable(append([]string{"Table"}, stats.SummaryHeader()...)...)
	}
	for _, r := range results {
		reportIssues(ctx, r)
		if summary != nil {
			s, err := stats.Summarize(r.res.Table, flags.Summary)
			if err != nil {
				return errors.Annotate(err, "failed to summarize %s", r.name)
			}
			summary.AddRow(append(table.Row{table.String(r.name)}, s.Row()...))
		}
		if flags.OutDir != "" {
			if err := writeFile(ctx, flags.OutDir, r, p); err != nil {
				return err
			}
			continue
		}
		if len(results) > 1 && !flags.CSV {
			if _, err := fmt.Fprintf(w, "\n%s:\n", r.name); err != nil {
				return errors.Annotate(err, "failed to write table name")
			}
		}
		if err := writeTable(r.res.Table, w, flags.CSV, p); err != nil {
			return errors.Annotate(err, "failed to write %s", r.name)
		}
	}
	if summary != nil {
		if err := writeTable(summary, w, flags.CSV, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to write summary")
		}
	}
	return nil
}

func main() {
	ctx := context.Background()
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		ctx = logging.Use(ctx, logging.DefaultGoLogger(logging.Info))
		logging.Errorf(ctx, "failed to parse flags: %s", err.Error())
		os.Exit(1)
	}
	ctx = logging.Use(ctx, logging.DefaultGoLogger(flags.LogLevel))

	if err := printData(ctx, flags, os.Stdout); err != nil {
		logging.Errorf(ctx, err.Error())
		os.Exit(1)
	}
}
