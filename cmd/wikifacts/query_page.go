package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func queryPageCmd() *cobra.Command {
	var markupOnly bool
	cmd := &cobra.Command{
		Use:   "page <title>",
		Short: "Display a mirrored page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryPage(cmd, strings.Join(args, " "), markupOnly)
		},
	}
	cmd.Flags().BoolVar(&markupOnly, "markup", false, "Print only the page markup")
	return cmd
}

func runQueryPage(cmd *cobra.Command, title string, markupOnly bool) error {
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
	page, err := svc.Page(ctx, title)
	if err != nil {
		return err
	}

	if markupOnly {
		fmt.Fprintln(os.Stdout, page.Markup)
		return nil
	}
	fmt.Fprintf(os.Stdout, "Title: %s\n", page.Title)
	fmt.Fprintf(os.Stdout, "Revision: %d\n", page.Revision)
	if page.SourceURL != "" {
		fmt.Fprintf(os.Stdout, "Source: %s\n", page.SourceURL)
	}
	fmt.Fprintf(os.Stdout, "Fetched: %s\n", page.FetchedAt.Format("2006-01-02 15:04:05Z07:00"))
	fmt.Fprintf(os.Stdout, "Markup: %d bytes\n", len(page.Markup))
	return nil
}
