package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/armcache"
	"platter/internal/fingerprint"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Fingerprint match cache maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCacheListCommand(ctx))
	cmd.AddCommand(newCacheAddCommand(ctx))
	cmd.AddCommand(newCacheRemoveCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	return cmd
}

// openCache opens the match cache directly. Safe alongside a running daemon
// because the store uses WAL with a busy timeout.
func openCache(ctx *commandContext) (*armcache.Cache, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.ARMCache.Enabled {
		return nil, errors.New("fingerprint cache is disabled in configuration")
	}
	cache, err := armcache.Open(cfg.ARMCache.Path, nil)
	if err != nil {
		return nil, fmt.Errorf("open fingerprint cache: %w", err)
	}
	return cache, nil
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached disc matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			entries, err := cache.List(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			stdout := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "Cache is empty")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				year := "-"
				if entry.Year > 0 {
					year = strconv.Itoa(entry.Year)
				}
				rows = append(rows, []string{
					shortHash(entry.Hash),
					entry.Title,
					year,
					formatTimestamp(entry.CachedAt),
				})
			}
			table := renderTable(
				[]string{"Hash", "Title", "Year", "Cached"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			)
			fmt.Fprintln(stdout, table)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func newCacheAddCommand(ctx *commandContext) *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "add <hash> <title>",
		Short: "Record a disc match manually",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := strings.TrimSpace(args[0])
			title := strings.TrimSpace(args[1])
			if hash == "" || title == "" {
				return errors.New("hash and title are required")
			}

			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			match := armcacheMatch(title, year)
			if err := cache.Add(cmd.Context(), hash, match); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cached %q for %s\n", title, shortHash(hash))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "Release year for the title")
	return cmd
}

func newCacheRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <hash>",
		Short: "Remove one cached match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			hash := strings.TrimSpace(args[0])
			if err := cache.Remove(cmd.Context(), hash); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", shortHash(hash))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached matches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := openCache(ctx)
			if err != nil {
				return err
			}
			defer cache.Close()

			count, err := cache.Count(cmd.Context())
			if err != nil {
				return err
			}
			if err := cache.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d cached matches\n", count)
			return nil
		},
	}
}

func armcacheMatch(title string, year int) fingerprint.Match {
	return fingerprint.Match{Title: title, Year: year}
}

func shortHash(hash string) string {
	if len(hash) <= 16 {
		return hash
	}
	return hash[:16]
}
