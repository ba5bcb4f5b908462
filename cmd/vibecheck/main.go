// Command vibecheck normalizes static-analysis tool output into scored
// findings and synchronizes a deduplicated set of tracker issues.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Custom slog levels for graduated verbosity, below slog.LevelDebug.
const (
	// LevelTrace is the handler threshold newLogger selects at -vv.
	LevelTrace slog.Level = slog.LevelDebug - 4

	// LevelDump is the handler threshold newLogger selects at -vvv and above.
	LevelDump slog.Level = slog.LevelDebug - 8
)

var (
	configPath string
	verbosity  int
	dryRun     bool
)

var rootCmd = &cobra.Command{
	Use:   "vibecheck",
	Short: "Synchronize static-analysis findings with an issue tracker",
	Long: `vibecheck normalizes heterogeneous static-analysis tool output into a
common finding model, fingerprints and deduplicates it, and reconciles
the result against an issue tracker's existing labeled issues.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.yaml (default: ~/.vibecheck/config.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v, -vv, -vvv)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Compute reconciliation ops without executing tracker mutations")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch verbosity {
	case 1:
		level = slog.LevelDebug
	case 2:
		level = LevelTrace
	default:
		if verbosity >= 3 {
			level = LevelDump
		}
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
