package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lidxdev/lidx/internal/config"
	"github.com/lidxdev/lidx/internal/logging"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logger  *logrus.Logger
	cfg     *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lidx",
	Short: "lidx builds and queries a persistent, language-agnostic code graph",
	Long: `lidx indexes a repository's symbols and edges into a local graph and
answers change-impact, subgraph and reference queries against it.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		} else {
			logger.SetLevel(logrus.InfoLevel)
		}

		logCfg := logging.DefaultConfig(verbose)
		logCfg.RunID = uuid.New().String()
		if err := logging.Initialize(logCfg); err != nil {
			logger.WithError(err).Warn("failed to initialize file logger, continuing with stdout only")
		}
		logging.Info("lidx starting", "command", cmd.Name(), "version", Version, "run_id", logCfg.RunID)

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			logger.WithError(err).Warn("failed to load config, using defaults")
			cfg = config.Default()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .lidx/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.SetVersionTemplate(`lidx {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(changedFilesCmd)
	rootCmd.AddCommand(versionsCmd)
}
