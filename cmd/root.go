package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"workfocus/internal/config"
	"workfocus/internal/logging"
)

var (
	verbose bool
	rootDir string

	projectRoot string
	cfg         *config.Config
	logger      = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "workfocus",
	Short: "Pick the work item that matters most right now",
	Long: `workfocus reads your open work items, asks a reasoning model which one
deserves attention first, and remembers the answer until the items change.
When the model is unreachable it falls back to a deterministic ranking.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := rootDir
		if dir == "" {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			dir = wd
		}
		projectRoot = dir
		loaded, err := config.LoadConfig(dir)
		if err != nil {
			return err
		}
		cfg = loaded

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Config{Level: level, Development: cfg.Logging.Development})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rootDir, "dir", "", "project directory holding .workfocus (default: current directory)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
