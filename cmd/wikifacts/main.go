package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"wikifacts/internal/config"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "wikifacts",
		Short:         "Mirror wiki pages and query the facts in their infoboxes",
		SilenceUsage:  true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigFile, "Path to the project config")
	root.AddCommand(initCmd())
	root.AddCommand(mirrorCmd())
	root.AddCommand(importCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(httpCmd())
	root.AddCommand(versionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
