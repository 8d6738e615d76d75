package cli

import (
	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/app"
	"github.com/alanyoungcy/polycache/internal/validation"
)

// CheckOptions holds flags of the check command.
type CheckOptions struct {
	Dir    string
	Limit  int
	Upload bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Audit the cache against every registered property",
		Long: `Run every registered property over every stored record within one
snapshot and print the violation report. Violations are reported, not
treated as failures; the command only fails when the store cannot be read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, rootOpts, opts)
		},
	}

	dirFlag(cmd, &opts.Dir)
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "example keys kept per violated property (overrides check.example_limit)")
	cmd.Flags().BoolVar(&opts.Upload, "upload", false, "also upload the report to object storage")

	return cmd
}

func runCheck(cmd *cobra.Command, rootOpts *RootOptions, opts *CheckOptions) error {
	a, err := openApp(cmd, rootOpts, withDir(opts.Dir))
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Check(cmd.Context(), app.CheckOptions{ExampleLimit: opts.Limit, Upload: opts.Upload})
	if err != nil {
		return sinkError(err)
	}
	return writeDocument(cmd.OutOrStdout(), rootOpts.Format, report)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dir       string
		batchSize int
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Replay stored market responses and order books through the admission gate",
		Long: `Decode every stored market response and order book summary, render it
back to its API form and admit it again. The command fails when any record
no longer round trips; every failing record is listed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts, withDir(dir))
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.Test(cmd.Context(), batchSize)
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), rootOpts.Format, summary)
		},
	}

	dirFlag(cmd, &dir)
	cmd.Flags().IntVar(&batchSize, "batch-size", validation.DefaultReplayBatchSize, "records replayed concurrently")

	return cmd
}
