package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"wikifacts/internal/facts"
)

func queryFactsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "facts <kind> <title>",
		Short: "Display the facts extracted for a page",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := facts.ParseKind(args[0])
			if err != nil {
				return err
			}
			return runQueryFacts(cmd, kind, strings.Join(args[1:], " "), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func runQueryFacts(cmd *cobra.Command, kind facts.Kind, title string, asJSON bool) error {
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
	rec, err := svc.Facts(ctx, kind, title)
	if err != nil {
		return err
	}
	if asJSON {
		return printJSON(rec)
	}

	fmt.Fprintf(os.Stdout, "Title: %s\n", rec.Title)
	fmt.Fprintf(os.Stdout, "Kind: %s\n", rec.Kind)
	if len(rec.Fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(rec.Fields))
	for key := range rec.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprintln(os.Stdout, "Facts:")
	for _, key := range keys {
		value := rec.Fields[key]
		if list, ok := value.([]string); ok {
			value = joinValues(list)
		}
		fmt.Fprintf(os.Stdout, "  %s: %v\n", key, value)
	}
	return nil
}

func joinValues(values []string) string {
	return strings.Join(values, ", ")
}
