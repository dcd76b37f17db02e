package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wikifacts/internal/query"
)

func queryClosureCmd() *cobra.Command {
	var depth int
	var workers int
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "closure <title>",
		Short: "Follow recipe ingredients and list the monsters that drop them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryClosure(cmd, strings.Join(args, " "), depth, workers, asJSON)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", query.DefaultDepth, "Ingredient hops to follow (0 expands only the root)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Expand each round with this many concurrent lookups")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func runQueryClosure(cmd *cobra.Command, root string, depth, workers int, asJSON bool) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	svc, _, err := newQueryService(ctx, e, workers)
	if err != nil {
		return err
	}
	res, err := svc.Closure(ctx, root, depth)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(res)
	}

	fmt.Fprintf(os.Stdout, "Root: %s (depth %d)\n", res.Root, res.Depth)
	fmt.Fprintf(os.Stdout, "Reached (%d):\n", len(res.Reached))
	for _, title := range res.Reached.Sorted() {
		fmt.Fprintf(os.Stdout, "  - %s\n", title)
	}
	fmt.Fprintf(os.Stdout, "Dropped by (%d):\n", len(res.Terminals))
	for _, title := range res.Terminals.Sorted() {
		fmt.Fprintf(os.Stdout, "  - %s\n", title)
	}
	if len(res.Failures) > 0 {
		fmt.Fprintf(os.Stdout, "Failed lookups (%d):\n", len(res.Failures))
		for _, f := range res.Failures {
			fmt.Fprintf(os.Stdout, "  - %s [%s]: %s\n", f.Title, f.Op, f.Error)
		}
	}
	return nil
}
