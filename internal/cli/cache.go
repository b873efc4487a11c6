package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/panelmap/pkg/cache"
	"github.com/matzehuels/panelmap/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the dump and render cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached dumps and renders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			ch, err := c.newCache(ctx, false)
			if err != nil {
				return err
			}
			defer ch.Close()

			var (
				n     int
				where string
			)
			switch ch := ch.(type) {
			case *cache.FileCache:
				n, err = ch.Clear()
				where = ch.Dir()
			case *cache.RedisCache:
				n, err = ch.Clear(ctx)
				where = "redis://" + c.Config.Cache.RedisAddr
			default:
				printInfo("Cache is disabled")
				return nil
			}
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", n)
			printDetail("%s", where)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the file cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.Config.Cache.Backend != config.CacheFile {
				printWarning("cache.backend is %s; the directory is unused", c.Config.Cache.Backend)
			}
			dir, err := c.Config.CachePath()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
			return err
		},
	}
}
