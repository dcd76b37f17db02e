package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func queryTitlesCmd() *cobra.Command {
	var prefix string
	var limit int
	cmd := &cobra.Command{
		Use:   "titles",
		Short: "List mirrored page titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryTitles(cmd, prefix, limit)
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "Only titles starting with this prefix (case-insensitive)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum titles to list (0 for all)")
	return cmd
}

func runQueryTitles(cmd *cobra.Command, prefix string, limit int) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	_, index, err := newQueryService(ctx, e, 1)
	if err != nil {
		return err
	}
	matches := index.Prefix(prefix, limit)
	if len(matches) == 0 {
		fmt.Fprintln(os.Stdout, "No pages found.")
		return nil
	}
	for _, title := range matches {
		fmt.Fprintln(os.Stdout, title)
	}
	return nil
}
