package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// NewGammaEventsCommand creates the gamma-events command with its list and
// date-cascade subcommands.
func NewGammaEventsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := newKeyspaceCommand(rootOpts, "gamma-events", "Gamma events")
	cmd.AddCommand(newListDateCascadesCommand(rootOpts))
	cmd.AddCommand(newMonitorDateCascadesCommand(rootOpts))
	cmd.AddCommand(newMonitorTimeSpreadCommand(rootOpts))
	return cmd
}

func newListDateCascadesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list-date-cascades",
		Short: "List stored events classified as date cascades",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts, domain.KeyspaceGammaEvents, isCascade)
		},
	}
	opts.register(cmd)
	return cmd
}

func isCascade(v any) bool {
	ev, ok := v.(*domain.GammaEvent)
	return ok && ev.IsCascade()
}

// MonitorOptions holds flags of the monitor commands.
type MonitorOptions struct {
	Dir           string
	MaxIterations int
	Interval      time.Duration
}

func (o *MonitorOptions) register(cmd *cobra.Command) {
	dirFlag(cmd, &o.Dir)
	cmd.Flags().IntVar(&o.MaxIterations, "max-iterations", 0, "stop after this many refreshes, 0 means forever (overrides sync.max_iterations)")
	cmd.Flags().DurationVar(&o.Interval, "interval", 0, "pause between refreshes (overrides sync.refresh_interval)")
}

func newMonitorDateCascadesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MonitorOptions{}
	cmd := &cobra.Command{
		Use:   "monitor-date-cascades",
		Short: "Keep the stored date cascades fresh",
		Long: `Collect the ids of the stored date cascades, then repeatedly re-fetch
them by id and rewrite them in the cache.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, rootOpts, opts, false)
		},
	}
	opts.register(cmd)
	return cmd
}

func newMonitorTimeSpreadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MonitorOptions{}
	cmd := &cobra.Command{
		Use:   "monitor-time-spread",
		Short: "Report date cascades whose earlier market prices yes above a later one",
		Long: `Refresh the stored date cascades like monitor-date-cascades and print
every time-spread opportunity as one JSON line. Configured notification
channels are alerted once per opportunity within notify.dedup_ttl.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonitor(cmd, rootOpts, opts, true)
		},
	}
	opts.register(cmd)
	return cmd
}

func runMonitor(cmd *cobra.Command, rootOpts *RootOptions, opts *MonitorOptions, spreads bool) error {
	a, err := openApp(cmd, rootOpts, withDir(opts.Dir))
	if err != nil {
		return err
	}
	defer a.Close()

	mo := a.MonitorDefaults()
	if cmd.Flags().Changed("max-iterations") {
		mo.MaxIterations = opts.MaxIterations
	}
	if cmd.Flags().Changed("interval") {
		mo.Interval = opts.Interval
	}

	ctx := cmd.Context()
	if spreads {
		w := cmd.OutOrStdout()
		err = a.MonitorTimeSpread(ctx, mo, func(o domain.TimeSpreadOpportunity) error {
			return writeJSONLine(w, o)
		})
	} else {
		err = a.MonitorDateCascades(ctx, mo)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
