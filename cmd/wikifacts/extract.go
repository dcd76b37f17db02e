package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wikifacts/internal/facts"
	"wikifacts/internal/ingest"
)

func extractCmd() *cobra.Command {
	var full bool
	var kindNames []string
	cmd := &cobra.Command{
		Use:   "extract [title...]",
		Short: "Extract infobox facts from mirrored pages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, kindNames, full)
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "Force full re-extraction (ignore incremental hashes)")
	cmd.Flags().StringSliceVar(&kindNames, "kind", nil, "Kinds to extract: item, monster, quest (default all)")
	return cmd
}

func runExtract(cmd *cobra.Command, titles, kindNames []string, full bool) error {
	ctx := cmd.Context()

	kinds := facts.Kinds()
	if len(kindNames) > 0 {
		kinds = nil
		for _, name := range kindNames {
			kind, err := facts.ParseKind(name)
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}
	}

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	ex := ingest.New(e.db, e.db, e.tables.Facts, ingest.Options{Full: full, Logger: e.logger})
	result := ingest.Run(ctx, ex, kinds, titles, func(o ingest.Outcome) {
		if o.Status == ingest.StatusStored || o.Status == ingest.StatusRemoved {
			e.logger.Debug("extracted", "title", o.Title, "kind", o.Kind.String(), "status", o.Status)
		}
	})

	fmt.Fprintln(os.Stdout, "Extraction complete.")
	fmt.Fprintf(os.Stdout, "  Records stored:  %d\n", result.Stored)
	fmt.Fprintf(os.Stdout, "  Unchanged:       %d\n", result.Unchanged)
	fmt.Fprintf(os.Stdout, "  Skipped:         %d\n", result.Skipped)
	fmt.Fprintf(os.Stdout, "  Records removed: %d\n", result.Removed)
	if len(result.Malformed) > 0 {
		fmt.Fprintf(os.Stdout, "  Malformed:       %d\n", len(result.Malformed))
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("extraction completed with errors")
	}
	return nil
}
