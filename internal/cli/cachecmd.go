package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pyrite/internal/cache"
)

// CacheOptions holds flags for the cache command group.
type CacheOptions struct {
	*RootOptions
	Path string
}

// cacheEntryView is the JSON payload for one cache listing row.
type cacheEntryView struct {
	Key       string `json:"key"`
	Module    string `json:"module"`
	BuildID   string `json:"build_id"`
	CreatedAt string `json:"created_at"`
}

// NewCacheCommand creates the cache command group: list and clear.
func NewCacheCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CacheOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the compilation cache",
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "cache", "", "compilation cache database (required)")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List cached compilations, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheList(opts, cmd)
		},
	}

	clear := &cobra.Command{
		Use:           "clear",
		Short:         "Remove all cached compilations",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClear(opts, cmd)
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(clear)
	return cmd
}

func openCacheFor(opts *CacheOptions, formatter *OutputFormatter) (*cache.Cache, error) {
	if opts.Path == "" {
		return nil, outputCommandError(formatter, ErrCodeCacheFailed, "no cache database: pass --cache")
	}
	c, err := cache.Open(opts.Path)
	if err != nil {
		return nil, outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
	}
	return c, nil
}

func runCacheList(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, err := openCacheFor(opts, formatter)
	if err != nil {
		return err
	}
	defer c.Close()

	entries, err := c.List(context.Background())
	if err != nil {
		return outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
	}

	if formatter.Format == "json" {
		views := make([]cacheEntryView, len(entries))
		for i, e := range entries {
			views[i] = cacheEntryView{
				Key:       e.Key,
				Module:    e.ModuleName,
				BuildID:   e.BuildID,
				CreatedAt: e.CreatedAt.Format(time.RFC3339),
			}
		}
		return formatter.Success(views)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "cache is empty")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "%d cached compilation(s)\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  %s  %s  build %s  %s\n",
			e.Key[:12], e.ModuleName, e.BuildID, e.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runCacheClear(opts *CacheOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	c, err := openCacheFor(opts, formatter)
	if err != nil {
		return err
	}
	defer c.Close()

	n, err := c.Clear(context.Background())
	if err != nil {
		return outputCommandError(formatter, ErrCodeCacheFailed, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]int64{"removed": n})
	}
	fmt.Fprintf(formatter.Writer, "removed %d cached compilation(s)\n", n)
	return nil
}
