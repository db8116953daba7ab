package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/nhigh-tools/deadline-cli/internal/pipeline"
)

var (
	searchStart    string
	searchEnd      string
	searchKeyword  string
	searchCategory string
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search stored events by date range, keyword and category",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		out, err := env.Pipeline.SearchEvents(ctx, pipeline.SearchParams{
			Start:    searchStart,
			End:      searchEnd,
			Keyword:  searchKeyword,
			Category: searchCategory,
			Limit:    searchLimit,
		})
		if err != nil {
			return eris.Wrap(err, "search events")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchStart, "start", "", "inclusive start date (e.g. 2026-04-01)")
	searchCmd.Flags().StringVar(&searchEnd, "end", "", "inclusive end date")
	searchCmd.Flags().StringVar(&searchKeyword, "keyword", "", "case-insensitive keyword over title and summary")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "exact category match")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "max rows (default 10, max 20)")
	rootCmd.AddCommand(searchCmd)
}
