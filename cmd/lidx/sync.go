package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/git"
)

var syncCmd = &cobra.Command{
	Use:   "sync [path...]",
	Short: "Incrementally sync specific files into the code graph",
	Long: `Re-extracts the given repository-relative paths against the current
graph version without rescanning the whole repository. A path that no longer
exists on disk is recorded as deleted. With no paths given, syncs whatever
git reports as changed (or staged, with --staged) against HEAD.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("commit", "", "commit SHA to stamp these changes with")
	syncCmd.Flags().Bool("staged", false, "sync staged files instead of all changed files")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	paths := args
	if len(paths) == 0 {
		staged, _ := cmd.Flags().GetBool("staged")
		var err error
		if staged {
			paths, err = git.GetStagedFiles()
		} else {
			paths, err = git.GetChangedFiles()
		}
		if err != nil {
			return fmt.Errorf("failed to determine changed paths: %w", err)
		}
		if len(paths) == 0 {
			fmt.Println("no changed files to sync")
			return nil
		}
	}

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

	stats, err := ix.Sync(ctx, paths, commitSHA)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("scanned=%d indexed=%d skipped=%d deleted=%d symbols=%d edges=%d errors=%d duration_ms=%d\n",
		stats.Scanned, stats.Indexed, stats.Skipped, stats.Deleted, stats.Symbols, stats.Edges, stats.Errors, stats.DurationMS)
	return nil
}
