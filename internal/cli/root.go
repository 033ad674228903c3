// Package cli provides the companion command-line interface: the web server,
// a terminal chat client and safety review tools.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/kai-companion/internal/config"
	"github.com/suPer8Hu/kai-companion/internal/logging"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	verbose bool

	cfg    config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "companion",
	Short: "Kai, a mental wellness chat companion",
	Long: `Kai is a supportive chat companion backed by a large language model.

Run "companion serve" for the web app or "companion chat --user NAME" to talk
to Kai from a terminal. Kai is not a substitute for a real doctor.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger = logging.New(level, cfg.LogPretty, "companion")
		cmd.SetContext(logger.WithContext(cmd.Context()))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(flagsCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// MissingConfigError reports required variables that are not set.
type MissingConfigError struct {
	Missing []string
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("missing required configuration: %v", e.Missing)
}
