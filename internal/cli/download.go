package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/app"
	"github.com/alanyoungcy/polycache/internal/config"
)

// DownloadOptions holds flags of the download command.
type DownloadOptions struct {
	Dir       string
	PageLimit int
	Offset    int
	Interval  time.Duration
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DownloadOptions{}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Sync markets, order books and events into the cache",
		Long: `Download pages of CLOB markets (with the order books of tradeable tokens)
and Gamma events into the local cache. Both resources are synced side by
side and resume after the records already stored. Every page is committed
atomically; a rejected page stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, rootOpts, opts)
		},
	}

	dirFlag(cmd, &opts.Dir)
	cmd.Flags().IntVar(&opts.PageLimit, "page-limit", 0, "stop each resource after this many pages (overrides sync.page_limit)")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "start both resources at this offset instead of resuming")
	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "repeat the download at this interval until interrupted")

	return cmd
}

func runDownload(cmd *cobra.Command, rootOpts *RootOptions, opts *DownloadOptions) error {
	if opts.Offset < 0 || opts.PageLimit < 0 {
		return NewExitError(ExitCommandError, "--offset and --page-limit must not be negative")
	}
	var pageLimit int
	a, err := openApp(cmd, rootOpts, func(cfg *config.Config) {
		withDir(opts.Dir)(cfg)
		pageLimit = cfg.Sync.PageLimit
	})
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.PageLimit > 0 {
		pageLimit = opts.PageLimit
	}
	dl := app.DownloadOptions{PageLimit: pageLimit, Interval: opts.Interval}
	if cmd.Flags().Changed("offset") {
		dl.Offset = &opts.Offset
	}

	err = a.Download(cmd.Context(), dl)
	if opts.Interval > 0 && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
