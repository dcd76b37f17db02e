package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func querySearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search page markup using the full-text index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(cmd, strings.Join(args, " "), limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	return cmd
}

func runQuerySearch(cmd *cobra.Command, text string, limit int) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	svc, _, err := newQueryService(ctx, e, 1)
	if err != nil {
		return err
	}
	results, err := svc.Search(ctx, text, limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "No matches found.")
		return nil
	}

	for _, result := range results {
		fmt.Fprintf(os.Stdout, "%s score=%.2f\n", result.Title, result.Score)
		if result.Snippet != "" {
			fmt.Fprintf(os.Stdout, "  %s\n", strings.Join(strings.Fields(result.Snippet), " "))
		}
	}
	return nil
}
