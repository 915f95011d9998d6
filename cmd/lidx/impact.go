package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/git"
	"github.com/lidxdev/lidx/internal/impact"
	"github.com/lidxdev/lidx/internal/rpcapi"
	"github.com/lidxdev/lidx/internal/store"
)

var impactCmd = &cobra.Command{
	Use:   "impact [qualname...]",
	Short: "Analyze the downstream/upstream impact of one or more symbols",
	Long: `Resolves each argument as a seed qualname and runs the multi-layer
impact analysis (direct edges, test links, historical co-change) against the
current graph version. With --file, every symbol declared in that file (and,
unless --no-follow-renames, in any path it historically lived at) is used as
a seed instead.`,
	RunE: runImpact,
}

func init() {
	impactCmd.Flags().StringSlice("file", nil, "seed with every symbol declared in this file")
	impactCmd.Flags().Bool("no-follow-renames", false, "don't resolve --file through its git rename history")
	impactCmd.Flags().Int("max-depth", 3, "maximum traversal depth for the direct layer")
	impactCmd.Flags().String("direction", "both", "upstream, downstream, or both")
	impactCmd.Flags().Bool("include-tests", false, "include test files in the direct layer")
	impactCmd.Flags().Int("limit", 0, "cap on the number of affected symbols returned")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ix := openIndexer(st)
	server := rpcapi.New(st, ix, impact.New(st), logger)

	files, _ := cmd.Flags().GetStringSlice("file")
	followRenames, _ := cmd.Flags().GetBool("no-follow-renames")
	followRenames = !followRenames

	seeds, err := collectSeeds(ctx, st, args, files, followRenames)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Println("no seeds resolved")
		return nil
	}

	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	direction, _ := cmd.Flags().GetString("direction")
	includeTests, _ := cmd.Flags().GetBool("include-tests")
	limit, _ := cmd.Flags().GetInt("limit")

	result, skips, err := server.AnalyzeImpact(ctx, rpcapi.AnalyzeImpactRequest{
		Seeds:        seeds,
		MaxDepth:     maxDepth,
		Direction:    direction,
		IncludeTests: includeTests,
		Limit:        limit,
	})
	if err != nil {
		return fmt.Errorf("analyze-impact failed: %w", err)
	}
	for _, skip := range skips {
		fmt.Printf("skip: %s\n", skip.Message)
	}

	fmt.Printf("affected=%d truncated=%t\n", result.Summary.TotalAffected, result.Truncated)
	for _, entry := range result.Affected {
		fmt.Printf("%s\t%s\t%.2f\n", entry.Qualname, entry.FilePath, entry.Confidence)
	}
	return nil
}

// collectSeeds turns --file paths and positional qualname arguments into
// SeedRefs. Each --file path is expanded, when followRenames is set, through
// its historical paths (via git.RenameResolver) so a symbol declared in a
// file that has since been renamed is still picked up as a seed.
func collectSeeds(ctx context.Context, st *store.Store, qualnames, files []string, followRenames bool) ([]rpcapi.SeedRef, error) {
	seeds := make([]rpcapi.SeedRef, 0, len(qualnames)+len(files))
	for i := range qualnames {
		seeds = append(seeds, rpcapi.SeedRef{Qualname: &qualnames[i]})
	}

	if len(files) == 0 {
		return seeds, nil
	}

	var resolver *git.RenameResolver
	if followRenames {
		r, err := git.NewRenameResolver(cfg.RepoRoot, cfg.Store.Path+".renames")
		if err != nil {
			logger.WithError(err).Warn("rename resolver unavailable, using literal file paths only")
		} else {
			resolver = r
			defer resolver.Close()
		}
	}

	for _, f := range files {
		paths := []string{f}
		if resolver != nil {
			historical, err := resolver.HistoricalPaths(ctx, f)
			if err != nil {
				logger.WithError(err).WithField("file", f).Warn("rename history lookup failed")
			} else {
				paths = historical
			}
		}

		for _, p := range paths {
			file, err := st.GetFileByPath(ctx, p)
			if err != nil || file == nil {
				continue
			}
			symbols, err := st.SymbolsForFile(ctx, file.ID)
			if err != nil {
				continue
			}
			for i := range symbols {
				seeds = append(seeds, rpcapi.SeedRef{ID: &symbols[i].ID})
			}
		}
	}

	return seeds, nil
}
