package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/simroster/internal/core"
	"github.com/JonMunkholm/simroster/internal/roster"
	"github.com/JonMunkholm/simroster/internal/store"
	"github.com/JonMunkholm/simroster/internal/tui"
)

// historyTimeout bounds one history command.
const historyTimeout = 30 * time.Second

var errNoDatabase = errors.New("history disabled: set DATABASE_URL")

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or prune the load history database",
	}
	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryShowCmd(a),
		newHistoryPruneCmd(a),
	)
	return cmd
}

// openHistory connects to the history database. The caller closes the pool.
func (a *app) openHistory(ctx context.Context) (*pgxpool.Pool, *store.Store, error) {
	if !a.cfg.Database.Enabled() {
		return nil, nil, errNoDatabase
	}
	pool, err := store.Connect(ctx, store.PoolConfig{
		URL:      a.cfg.Database.URL,
		MaxConns: 2,
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, store.New(pool), nil
}

func newHistoryListCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent loads, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
			defer cancel()

			pool, hist, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := hist.ListLoads(ctx, limit)
			if err != nil {
				return err
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.LoadID.String(),
					e.LoadedAt.Local().Format(time.DateTime),
					e.FileName,
					strconv.Itoa(e.CurrentYear),
					strconv.Itoa(e.Records),
					strconv.Itoa(e.Deceased),
					strconv.Itoa(e.Issues),
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), plainTable(
				[]string{"Load", "Loaded", "File", "Year", "Records", "Deceased", "Issues"}, rows))
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", core.DefaultHistoryLimit, "maximum loads to list")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show LOAD_ID",
		Short: "Print the records of one historical load",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			loadID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid load id %q: %w", args[0], err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
			defer cancel()

			pool, hist, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			records, err := hist.LoadRecords(ctx, loadID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case formatCSV:
				return writeRecordsCSV(out, records)
			case formatJSON:
				return writeJSON(out, records)
			}
			_, err = fmt.Fprintln(out, plainTable(roster.ColumnNames(), tui.Rows(records)))
			return err
		},
	}
	cmd.Flags().StringVar(&format, "format", formatTable, "output format: table, csv or json")
	return cmd
}

func newHistoryPruneCmd(a *app) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete loads older than a retention period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				olderThan = a.cfg.History.Retention
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), historyTimeout)
			defer cancel()

			pool, hist, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := hist.PruneBefore(ctx, time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d loads older than %s\n", n, olderThan)
			return err
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "retention period (default $HISTORY_RETENTION)")
	return cmd
}
