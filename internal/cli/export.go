package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/config"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// ExportOptions holds flags of the export command.
type ExportOptions struct {
	Dir      string
	Keyspace string
	Prefix   string
}

// exportResult is printed after a successful export.
type exportResult struct {
	Keyspace domain.Keyspace `json:"keyspace"`
	Path     string          `json:"path"`
	Records  int             `json:"records"`
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Stream one keyspace to object storage as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, rootOpts, opts)
		},
	}

	dirFlag(cmd, &opts.Dir)
	cmd.Flags().StringVar(&opts.Keyspace, "keyspace", "", "keyspace to export (required)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "object key prefix (overrides s3.prefix)")
	_ = cmd.MarkFlagRequired("keyspace")

	return cmd
}

func runExport(cmd *cobra.Command, rootOpts *RootOptions, opts *ExportOptions) error {
	ks, err := domain.ParseKeyspace(opts.Keyspace)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid keyspace", err)
	}
	a, err := openApp(cmd, rootOpts, func(cfg *config.Config) {
		withDir(opts.Dir)(cfg)
		if opts.Prefix != "" {
			cfg.S3.Prefix = opts.Prefix
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	path, n, err := a.Export(cmd.Context(), ks)
	if err != nil {
		return sinkError(err)
	}
	return writeDocument(cmd.OutOrStdout(), rootOpts.Format, exportResult{Keyspace: ks, Path: path, Records: n})
}

// NewMirrorCommand creates the mirror command.
func NewMirrorCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "Upsert the derived markets into Postgres",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts, withDir(dir))
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.Mirror(cmd.Context())
			if err != nil {
				return sinkError(err)
			}
			return writeDocument(cmd.OutOrStdout(), rootOpts.Format, map[string]int{"mirrored": n})
		},
	}

	dirFlag(cmd, &dir)
	return cmd
}

// sinkError marks a disabled sink as a configuration problem.
func sinkError(err error) error {
	if errors.Is(err, domain.ErrNotConfigured) {
		return WrapExitError(ExitCommandError, "sink disabled", err)
	}
	return err
}
