package main

import (
	"github.com/spf13/cobra"

	"wikifacts/internal/mcp"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	var workers int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent lookups per closure round")
	return cmd
}

func runServe(cmd *cobra.Command, workers int) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	svc, index, err := newQueryService(ctx, e, workers)
	if err != nil {
		return err
	}
	e.logger.Info("mcp server starting", "titles", index.Len())

	server := mcp.NewServer(svc, version)
	return server.Run(ctx, &sdk.StdioTransport{})
}
