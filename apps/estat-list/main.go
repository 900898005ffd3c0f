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
	"io"
	"os"
	"path/filepath"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/estat/estatapi"
	"github.com/stockparfait/estat/table"
	"github.com/stockparfait/logging"
)

type Flags struct {
	ConfDir     string // default: ~/.estat
	LogLevel    logging.Level
	Search      string // keywords, with AND, OR, NOT
	StatsCode   string // 5 or 8 digit government statistics code
	StatsField  string // 2 or 4 digit field of statistics
	SurveyYears string // yyyy, yyyymm or yyyymm-yyyymm
	OpenYears   string // same format as SurveyYears
	CollectArea int    // 1: national, 2: prefecture, 3: municipality
	Names       bool   // list survey names only
	Start       int    // 1-based position of the first table
	Limit       int    // max. number of tables
	CSV         bool   // print CSV format; default: text
	MaxColWidth int    // for text output only
}

func parseFlags(args []string) (*Flags, error) {
	var flags Flags
	fs := flag.NewFlagSet("estat-list", flag.ExitOnError)
	fs.StringVar(&flags.ConfDir, "cache",
		filepath.Join(os.Getenv("HOME"), ".estat"),
		"configuration path")
	flags.LogLevel = logging.Info
	fs.Var(&flags.LogLevel, "log-level", "Log level: debug, info, warning, error")
	fs.StringVar(&flags.Search, "search", "", "search keywords; supports AND, OR, NOT")
	fs.StringVar(&flags.StatsCode, "stats-code", "", "government statistics code")
	fs.StringVar(&flags.StatsField, "stats-field", "", "field of statistics")
	fs.StringVar(&flags.SurveyYears, "survey-years", "", "yyyy, yyyymm or yyyymm-yyyymm")
	fs.StringVar(&flags.OpenYears, "open-years", "", "yyyy, yyyymm or yyyymm-yyyymm")
	fs.IntVar(&flags.CollectArea, "collect-area", 0,
		"1: national, 2: prefecture, 3: municipality; default: any")
	fs.BoolVar(&flags.Names, "names", false, "list survey names rather than tables")
	fs.IntVar(&flags.Start, "start", 0, "1-based position of the first table")
	fs.IntVar(&flags.Limit, "limit", 5, "max. number of tables to list")
	fs.BoolVar(&flags.CSV, "csv", false, "print table in CSV format; default: text")
	fs.IntVar(&flags.MaxColWidth, "max-width", 40, "max. column width for text output")

	err := fs.Parse(args)
	if err != nil {
		return nil, err
	}
	if flags.Limit < 1 {
		return nil, errors.Reason("-limit must be positive")
	}
	return &flags, nil
}

func (f *Flags) query() *estatapi.StatsListQuery {
	q := estatapi.NewStatsListQuery()
	q.SearchWord = f.Search
	q.StatsCode = f.StatsCode
	q.StatsField = f.StatsField
	q.SurveyYears = f.SurveyYears
	q.OpenYears = f.OpenYears
	q.CollectArea = f.CollectArea
	if f.Names {
		q.StatsNameList = "Y"
	}
	q.StartPosition = f.Start
	q.Limit = f.Limit
	return q
}

func printData(ctx context.Context, flags *Flags, w io.Writer) error {
	config, err := estatapi.ReadConfig(flags.ConfDir)
	if err != nil {
		return errors.Annotate(err, "failed to parse config")
	}
	ctx = estatapi.UseClient(ctx, config.AppID)
	raw, err := estatapi.FetchStatsList(ctx, flags.query())
	if err != nil {
		return errors.Annotate(err, "failed to search tables")
	}
	infos, err := estatapi.ParseStatsList(raw)
	if err != nil {
		return errors.Annotate(err, "failed to list tables")
	}
	if len(infos) == 0 {
		logging.Warningf(ctx, "no tables found")
		return nil
	}
	tbl := table.NewTable(estatapi.TableInfoHeader()...)
	for _, t := range infos {
		tbl.AddRow(t.Row())
	}
	if flags.CSV {
		if err := tbl.WriteCSV(w, table.Params{}); err != nil {
			return errors.Annotate(err, "failed to print CSV")
		}
		return nil
	}
	if err := tbl.WriteText(w, table.Params{MaxColWidth: flags.MaxColWidth}); err != nil {
		return errors.Annotate(err, "failed to print text")
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
