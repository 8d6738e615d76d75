package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/polycache/internal/codec"
	"github.com/alanyoungcy/polycache/internal/domain"
)

// ListOptions holds flags shared by the list commands.
type ListOptions struct {
	Dir    string
	Offset int
	Limit  int
	Kind   string
}

func (o *ListOptions) register(cmd *cobra.Command) {
	dirFlag(cmd, &o.Dir)
	cmd.Flags().IntVar(&o.Offset, "offset", 0, "skip this many records")
	cmd.Flags().IntVar(&o.Limit, "limit", 0, "print at most this many records (0 means all)")
	cmd.Flags().StringVar(&o.Kind, "kind", string(KindKeyValue), "what to print per record (key|value|key-value)")
}

// errStopListing ends a filtered scan once the limit is reached.
var errStopListing = errors.New("listing complete")

// keyspaceCommands maps command names to the keyspace they list.
var keyspaceCommands = map[string]domain.Keyspace{
	"market-responses":             domain.KeyspaceMarketResponses,
	"markets":                      domain.KeyspaceMarkets,
	"order-book-summary-responses": domain.KeyspaceOrderBooks,
	"gamma-events":                 domain.KeyspaceGammaEvents,
}

// newKeyspaceCommand creates the parent command of one keyspace with its
// list subcommand.
func newKeyspaceCommand(rootOpts *RootOptions, name, what string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name,
		Short: "Inspect stored " + what,
	}
	cmd.AddCommand(newListCommand(rootOpts, keyspaceCommands[name], what))
	return cmd
}

func newListCommand(rootOpts *RootOptions, ks domain.Keyspace, what string) *cobra.Command {
	opts := &ListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored " + what + " in key order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts, ks, nil)
		},
	}
	opts.register(cmd)
	return cmd
}

// runList prints the records of ks that pass keep. Offset and limit count
// kept records only.
func runList(cmd *cobra.Command, rootOpts *RootOptions, opts *ListOptions, ks domain.Keyspace, keep func(any) bool) error {
	kind, err := parseKind(opts.Kind)
	if err != nil {
		return err
	}
	a, err := openApp(cmd, rootOpts, withDir(opts.Dir))
	if err != nil {
		return err
	}
	defer a.Close()

	return listKeyspace(cmd.Context(), a.Deps().DB, cmd.OutOrStdout(), ks, kind, opts.Offset, opts.Limit, keep)
}

func listKeyspace(ctx context.Context, db domain.Database, w io.Writer, ks domain.Keyspace, kind Kind, offset, limit int, keep func(any) bool) error {
	snap, err := db.Snapshot(ctx)
	if err != nil {
		return err
	}
	defer snap.Close()

	// Without a filter the store applies offset and limit itself.
	storeOpts := domain.ListOpts{}
	if keep == nil {
		storeOpts = domain.ListOpts{Offset: offset, Limit: limit}
		offset = 0
	}

	skipped, printed := 0, 0
	err = snap.Iterate(ctx, ks, storeOpts, func(key, value []byte) error {
		v, err := codec.DecodeValue(ks, value)
		if err != nil {
			return fmt.Errorf("decode %s: %w", codec.FormatKey(ks, key), err)
		}
		if keep != nil && !keep(v) {
			return nil
		}
		if skipped < offset {
			skipped++
			return nil
		}
		if keep != nil && limit > 0 && printed >= limit {
			return errStopListing
		}
		printed++
		return writeEntry(w, kind, codec.FormatKey(ks, key), v)
	})
	if err == errStopListing {
		return nil
	}
	return err
}
