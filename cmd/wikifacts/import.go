package main

import (
	"github.com/spf13/cobra"

	"wikifacts/internal/mirror"
)

func importCmd() *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "import [dir]",
		Short: "Load page markup from local dump files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runImport(cmd, dir, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and re-import files as they change")
	return cmd
}

func runImport(cmd *cobra.Command, dir string, watch bool) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	if dir == "" {
		dir = e.cfg.Dumps
	}

	im := mirror.NewImporter(e.db, e.logger)
	sum := mirror.Drain(im.ImportDir(ctx, dir), func(o mirror.Outcome) {
		if o.Err != nil {
			e.logger.Warn("import failed", "title", o.Title, "error", o.Err)
		}
	})
	if err := printMirrorSummary("Import", sum); err != nil || !watch {
		return err
	}

	return im.Watch(ctx, dir, nil)
}
