package cli

import (
	"context"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lotto-crawler/internal/dataset"
	"lotto-crawler/internal/game"
	"lotto-crawler/internal/store"
)

func (a *app) summaryCmd() *cobra.Command {
	var games []string
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Prints draw counts, date range and hot/cold numbers from the sqlite store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			variants, err := a.variants(games)
			if err != nil {
				return err
			}
			db, err := store.OpenSQLite(a.cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			return a.printGameSummaries(cmd.Context(), dataset.New(db, a.cfg.CacheTTL), db, variants)
		},
	}
	cmd.Flags().StringSliceVarP(&games, "game", "g", nil, "game(s) to summarize")
	return cmd
}

func (a *app) printGameSummaries(ctx context.Context, ds *dataset.Accessor, db *store.SQLite, variants []game.Variant) error {
	t := a.table()
	t.AppendHeader(table.Row{"Game", "Draws", "First", "Last", "Last 30d", "Most frequent", "Least frequent", "Runs"})
	for _, v := range variants {
		s, err := ds.Summary(ctx, v)
		if err != nil {
			return err
		}
		runs, err := db.RunCount(ctx, v)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{v.Spec().Name, s.TotalDraws, s.FirstDate, s.LastDate, s.RecentDraws,
			joinInts(s.MostFrequent), joinInts(s.LeastFrequent), runs})
	}
	t.Render()
	return nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
