package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"wikifacts/internal/query"
	"wikifacts/internal/titles"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query mirrored pages and facts from the CLI",
	}
	cmd.AddCommand(queryPageCmd())
	cmd.AddCommand(queryFactsCmd())
	cmd.AddCommand(queryClosureCmd())
	cmd.AddCommand(querySearchCmd())
	cmd.AddCommand(queryTitlesCmd())
	cmd.AddCommand(querySQLCmd())
	return cmd
}

// newQueryService builds the title index and the read service over e's store.
func newQueryService(ctx context.Context, e *env, workers int) (*query.Service, *titles.Index, error) {
	index, err := titles.Build(ctx, e.db)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Debug("title index built", "titles", index.Len())
	return query.New(e.db, index, query.Options{Implied: e.tables.Implied, Workers: workers}), index, nil
}

func printJSON(v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(payload))
	return nil
}
