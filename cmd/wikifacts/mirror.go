package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"wikifacts/internal/mirror"
	"wikifacts/internal/wiki"
)

func mirrorCmd() *cobra.Command {
	var category string
	var limit int
	var listFile string
	cmd := &cobra.Command{
		Use:   "mirror [title...]",
		Short: "Fetch the current markup of wiki pages into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMirror(cmd, args, category, limit, listFile)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "Mirror the members of a wiki category")
	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum category members to mirror")
	cmd.Flags().StringVar(&listFile, "file", "", "Read titles from a file, one per line")
	return cmd
}

func runMirror(cmd *cobra.Command, titles []string, category string, limit int, listFile string) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	client, err := wiki.New(wiki.Options{
		APIURL:            e.cfg.Wiki.APIURL,
		UserAgent:         e.cfg.Wiki.UserAgent,
		RequestsPerSecond: e.cfg.Wiki.RequestsPerSecond,
		Burst:             e.cfg.Wiki.Burst,
		Timeout:           e.cfg.Wiki.Timeout,
	})
	if err != nil {
		return err
	}

	if listFile != "" {
		fromFile, err := readTitles(listFile)
		if err != nil {
			return err
		}
		titles = append(titles, fromFile...)
	}
	if category != "" {
		members, err := client.CategoryMembers(ctx, category, limit)
		if err != nil {
			return fmt.Errorf("listing category %s: %w", category, err)
		}
		e.logger.Info("category listed", "category", category, "members", len(members))
		titles = append(titles, members...)
	}
	if len(titles) == 0 {
		return fmt.Errorf("no titles given: pass titles, --category or --file")
	}

	m := mirror.New(client, e.db, mirror.Options{
		BatchSize:   e.cfg.Wiki.BatchSize,
		Concurrency: e.cfg.Wiki.Concurrency,
		Logger:      e.logger,
	})
	sum := mirror.Drain(m.Fetch(ctx, titles), func(o mirror.Outcome) {
		if o.Err != nil {
			e.logger.Warn("mirror failed", "title", o.Title, "status", o.Status, "error", o.Err)
			return
		}
		e.logger.Debug("mirrored", "title", o.Title, "status", o.Status)
	})
	return printMirrorSummary("Mirror", sum)
}

func printMirrorSummary(label string, sum mirror.Summary) error {
	fmt.Fprintf(os.Stdout, "%s complete.\n", label)
	fmt.Fprintf(os.Stdout, "  Stored:    %d\n", sum.Counts[mirror.StatusStored])
	fmt.Fprintf(os.Stdout, "  Unchanged: %d\n", sum.Counts[mirror.StatusUnchanged])
	fmt.Fprintf(os.Stdout, "  Missing:   %d\n", sum.Counts[mirror.StatusMissing])

	if len(sum.Errors) > 0 {
		fmt.Fprintf(os.Stdout, "\nErrors (%d):\n", len(sum.Errors))
		for _, item := range sum.Errors {
			fmt.Fprintf(os.Stdout, "  - %v\n", item)
		}
		return fmt.Errorf("%s completed with errors", strings.ToLower(label))
	}
	return nil
}

func readTitles(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var titles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		titles = append(titles, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return titles, nil
}
