package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cratedig/internal/respcache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Response cache utilities",
	}

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove all cached service responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			cache := respcache.New(cfg.ResponseCachePath(), logger)
			count := cache.Count()
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached responses\n", count)
			return nil
		},
	})

	cacheCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show cache location and entry count",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cache := respcache.New(cfg.ResponseCachePath(), nil)
			fmt.Fprintf(cmd.OutOrStdout(), "Cache file: %s\nEntries: %d\n", cfg.ResponseCachePath(), cache.Count())
			return nil
		},
	})

	return cacheCmd
}
