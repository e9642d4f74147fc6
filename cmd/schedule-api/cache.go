package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/conf-schedule-api/internal/repository"
	"github.com/noah-isme/conf-schedule-api/internal/service"
	"github.com/noah-isme/conf-schedule-api/pkg/cache"
)

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the changelog cache",
	}

	var pattern string
	flush := &cobra.Command{
		Use:   "flush [event-id]",
		Short: "Drop cached changelogs, optionally for a single event",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logr, err := bootstrap()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			client, err := cache.NewRedis(cmd.Context(), cfg.Redis)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("caching is disabled")
			}
			repo := repository.NewCacheRepository(client)
			defer repo.Close() //nolint:errcheck

			cacheService := service.NewCacheService(repo, nil, 0, logr, true)
			patterns := []string{pattern}
			if len(args) == 1 {
				patterns = []string{"schedule:*:changes", fmt.Sprintf("event:%s:*", args[0])}
			}
			for _, p := range patterns {
				if err := cacheService.Invalidate(cmd.Context(), p); err != nil {
					return err
				}
				logr.Info("cache flushed", zap.String("pattern", p))
			}
			return nil
		},
	}
	flush.Flags().StringVar(&pattern, "pattern", "*", "Key pattern to delete")
	cmd.AddCommand(flush)
	return cmd
}
