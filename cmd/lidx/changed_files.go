package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/impact"
	"github.com/lidxdev/lidx/internal/rpcapi"
)

var changedFilesCmd = &cobra.Command{
	Use:   "changed-files",
	Short: "List files changed since the last indexed graph version",
	RunE:  runChangedFiles,
}

func init() {
	changedFilesCmd.Flags().StringSlice("languages", nil, "restrict to these languages")
}

func runChangedFiles(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ix := openIndexer(st)
	server := rpcapi.New(st, ix, impact.New(st), logger)

	languages, _ := cmd.Flags().GetStringSlice("languages")
	result, err := server.ChangedFiles(ctx, rpcapi.ChangedFilesRequest{Languages: languages})
	if err != nil {
		return fmt.Errorf("changed-files failed: %w", err)
	}

	for _, p := range result.Added {
		fmt.Printf("A %s\n", p)
	}
	for _, p := range result.Modified {
		fmt.Printf("M %s\n", p)
	}
	for _, p := range result.Deleted {
		fmt.Printf("D %s\n", p)
	}
	return nil
}
