package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"wikifacts/internal/api"
)

func httpCmd() *cobra.Command {
	var addr string
	var workers int
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve pages, facts and closures over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHTTP(cmd, addr, workers, refresh)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 4, "Concurrent lookups per closure round")
	cmd.Flags().DurationVar(&refresh, "refresh", 5*time.Minute, "How often to reload the title index (0 disables)")
	return cmd
}

func runHTTP(cmd *cobra.Command, addr string, workers int, refresh time.Duration) error {
	ctx := cmd.Context()

	e, err := loadEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close(ctx)

	if addr == "" {
		addr = e.cfg.HTTP.Addr
	}

	svc, index, err := newQueryService(ctx, e, workers)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(svc, e.logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.logger.Info("starting HTTP server", "address", addr, "titles", index.Len())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if refresh > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(refresh)
			defer ticker.Stop()
			for {
				select {
				case <-gCtx.Done():
					return nil
				case <-ticker.C:
					if err := index.Refresh(gCtx); err != nil {
						e.logger.Warn("title index refresh failed", "error", err)
						continue
					}
					e.logger.Debug("title index refreshed", "titles", index.Len())
				}
			}
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		e.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
