// Command polycache maintains a verified local cache of Polymarket markets,
// order books and events, and audits it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alanyoungcy/polycache/internal/cli"
)

func main() {
	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "polycache:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
