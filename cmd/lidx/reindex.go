package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/git"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the code graph from scratch",
	Long: `Scans the configured repository root, re-extracts every file's
symbols and edges, allocates a new graph version, and mines commit history
for co-change pairs used by the historical impact layer.`,
	RunE: runReindex,
}

func init() {
	reindexCmd.Flags().String("commit", "", "commit SHA to stamp this graph version with")
	reindexCmd.Flags().Bool("no-ignore", false, "ignore .gitignore rules while scanning")
	reindexCmd.Flags().Bool("skip-cochange", false, "skip mining git history for co-change pairs")
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ix := openIndexer(st)

	var commitSHA *string
	if s, _ := cmd.Flags().GetString("commit"); s != "" {
		commitSHA = &s
	} else if sha, err := git.GetCurrentCommitSHA(); err == nil {
		commitSHA = &sha
	}
	noIgnore, _ := cmd.Flags().GetBool("no-ignore")

	stats, err := ix.Reindex(ctx, commitSHA, noIgnore)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Printf("scanned=%d indexed=%d skipped=%d deleted=%d symbols=%d edges=%d errors=%d duration_ms=%d\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Deleted, stats.Symbols, stats.Edges, stats.Errors, stats.DurationMS)

	skipCoChange, _ := cmd.Flags().GetBool("skip-cochange")
	if !skipCoChange {
		miner := git.NewCoChangeMiner(cfg.RepoRoot)
		pairs, err := miner.Mine(ctx, st)
		if err != nil {
			logger.WithError(err).Warn("co-change mining failed, continuing without it")
		} else {
			fmt.Printf("co_change_pairs=%d\n", pairs)
		}
	}

	return nil
}
