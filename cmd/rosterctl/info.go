package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/tui"
)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func plainTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return cellStyle.Bold(true)
			}
			return cellStyle
		}).
		Render()
}

func newCatalogCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the item catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			cat, err := a.fetcher().Fetch(cmd.Context())
			if err != nil {
				return err
			}

			entries := cat.Entries()
			out := cmd.OutOrStdout()
			switch format {
			case formatJSON:
				return writeJSON(out, entries)
			case formatCSV:
				rows := [][]string{{"ID", "Name"}}
				for _, e := range entries {
					rows = append(rows, []string{strconv.Itoa(e.ID), e.Name})
				}
				return writeCSVRows(out, rows)
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{strconv.Itoa(e.ID), e.Name}
			}
			_, err = fmt.Fprintf(out, "%s\n%d entries from %s\n",
				plainTable([]string{"ID", "Name"}, rows), len(entries), a.cfg.Catalog.Source)
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, csv or json")
	return cmd
}

func newColumnsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "Print the roster column schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := roster.Columns()
			rows := make([][]string, len(cols))
			for i, c := range cols {
				rows[i] = []string{string(c.Name), c.Label, c.Type.String()}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), plainTable([]string{"Column", "Label", "Type"}, rows))
			return err
		},
	}
}

func newBrowseCmd(a *app) *cobra.Command {
	var save string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse a save in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.newService()
			if err != nil {
				return err
			}
			return tui.Run(svc, save)
		},
	}
	cmd.Flags().StringVar(&save, "save", "", "save document to load on start")
	return cmd
}
