package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/impact"
	"github.com/lidxdev/lidx/internal/rpcapi"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List recorded graph versions",
	RunE:  runVersions,
}

func init() {
	versionsCmd.Flags().Int("limit", 20, "maximum versions to list")
	versionsCmd.Flags().Int("offset", 0, "versions to skip, newest first")
}

func runVersions(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ix := openIndexer(st)
	server := rpcapi.New(st, ix, impact.New(st), logger)

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	resp, err := server.ListGraphVersions(ctx, rpcapi.ListGraphVersionsRequest{Limit: limit, Offset: offset})
	if err != nil {
		return fmt.Errorf("versions failed: %w", err)
	}

	for _, v := range resp.Versions {
		commit := "-"
		if v.CommitSHA != nil {
			commit = *v.CommitSHA
		}
		fmt.Printf("%d\t%s\t%s\n", v.ID, v.Created.Format("2006-01-02T15:04:05Z07:00"), commit)
	}
	return nil
}
