package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the aggregate cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheForgetCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache size",
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := ctx.config.Cache.Backend
			manager, closeStore, err := ctx.openCache(cmd.Context(), backend)
			if err != nil {
				return err
			}
			defer closeStore()

			empty, records := 0, 0
			for _, entry := range manager.Entries() {
				if entry.Aggregate.IsEmpty() {
					empty++
				}
				records += entry.Aggregate.Total()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache:    %s\n", ctx.cacheLocation(backend))
			fmt.Fprintf(out, "Entries:  %d\n", manager.Len())
			fmt.Fprintf(out, "Empty:    %d\n", empty)
			fmt.Fprintf(out, "Records:  %d\n", records)
			return nil
		},
	}
}

func newCacheForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <id>...",
		Short: "Remove titles from the cache so the next scrape fetches them again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, closeStore, err := ctx.openCache(cmd.Context(), ctx.config.Cache.Backend)
			if err != nil {
				return err
			}
			defer closeStore()

			out := cmd.OutOrStdout()
			removed := 0
			for _, id := range args {
				if manager.Forget(id) {
					removed++
					fmt.Fprintf(out, "Forgot %s\n", id)
				} else {
					fmt.Fprintf(out, "%s is not cached\n", id)
				}
			}
			if removed == 0 {
				return nil
			}
			return manager.FlushAll(cmd.Context())
		},
	}
}
