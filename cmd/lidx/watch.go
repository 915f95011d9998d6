package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and keep the code graph in sync",
	Long: `Runs the filesystem watch loop: bootstraps with a reindex if the
graph is empty, then applies debounced incremental syncs as files change
until interrupted.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("mode", "", "watch mode: off, auto, or on (default: config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ix := openIndexer(st)

	watchCfg := cfg.Watch
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		watchCfg.Mode = mode
	}

	w := watch.New(cfg.RepoRoot, ix, st, watchCfg, logger)
	return w.Run(ctx)
}
