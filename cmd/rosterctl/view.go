package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/tui"
)

const (
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

type viewOptions struct {
	save    string
	sort    string
	desc    bool
	format  string
	filters core.FilterInput
}

func newViewCmd(a *app) *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Print the filtered, sorted roster of a save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd, a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.save, "save", "", "save document to load")
	f.StringVar(&opts.sort, "sort", "", "sort column (case-insensitive)")
	f.BoolVar(&opts.desc, "desc", false, "sort descending")
	f.StringVar(&opts.format, "format", formatTable, "output format: table, csv or json")
	f.StringVar(&opts.filters.FreeText, "search", "", "keep records with any column containing the text")
	f.StringVar(&opts.filters.Gender, "gender", "", "keep records with exactly this gender")
	f.StringVar(&opts.filters.MinAge, "min-age", "", "keep records at least this old")
	f.StringVar(&opts.filters.MaxAge, "max-age", "", "keep records at most this old")
	f.StringVar(&opts.filters.LikedSubstring, "likes", "", "keep records whose liked items contain the text")
	_ = cmd.MarkFlagRequired("save")

	return cmd
}

func runView(cmd *cobra.Command, a *app, opts *viewOptions) error {
	if err := checkFormat(opts.format); err != nil {
		return err
	}
	if opts.desc && opts.sort == "" {
		return errors.New("--desc needs --sort")
	}
	filters, err := core.ParseFilters(opts.filters)
	if err != nil {
		return err
	}

	svc, err := a.newService()
	if err != nil {
		return err
	}
	if _, err := loadSave(cmd.Context(), svc, opts.save); err != nil {
		return err
	}

	if opts.sort != "" {
		if _, err := svc.SortBy(opts.sort); err != nil {
			return err
		}
		// A second selection of the same column flips it.
		if opts.desc {
			if _, err := svc.SortBy(opts.sort); err != nil {
				return err
			}
		}
	}

	state, err := svc.SetFilters(filters)
	if err != nil {
		return err
	}
	return writeView(cmd.OutOrStdout(), state, opts.format)
}

func checkFormat(format string) error {
	switch format {
	case formatTable, formatCSV, formatJSON:
		return nil
	}
	return fmt.Errorf("unknown format %q (want table, csv or json)", format)
}

func writeView(w io.Writer, state core.ViewState, format string) error {
	switch format {
	case formatCSV:
		return writeRecordsCSV(w, state.Rows)
	case formatJSON:
		return writeJSON(w, state)
	}
	if _, err := fmt.Fprintln(w, tui.Table(state)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, tui.Summary(state))
	return err
}

func writeRecordsCSV(w io.Writer, records []roster.Record) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, roster.ColumnNames())
	for _, rec := range records {
		rows = append(rows, rec.Row())
	}
	return writeCSVRows(w, rows)
}

func writeCSVRows(w io.Writer, rows [][]string) error {
	return csv.NewWriter(w).WriteAll(rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
