// Package cli implements reportctl, the offline companion to the server:
// schema migrations, one-shot report rendering and formula evaluation.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/logger"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

// NewRootCommand builds the reportctl command tree
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Event statistics report tooling",
		Long: `reportctl manages the report database and renders reports offline.

Examples:
  reportctl migrate up --db ./data/eventstats.db
  reportctl render --configs charts.yaml --stats stats.json --layout layout.json --width 1200
  reportctl render --configs charts.json --stats stats.json --layout layout.json --format csv
  reportctl eval "(eventAttendees / eventRegistrations) * 100" --stats stats.json`,
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: ./configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text | json")

	root.AddCommand(newMigrateCommand(opts))
	root.AddCommand(newRenderCommand(opts))
	root.AddCommand(newEvalCommand(opts))
	return root
}

// Execute runs reportctl and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *rootOptions) logger(errOut io.Writer) *logger.BatchLogger {
	return logger.NewWithOutput(o.logLevel, o.logFormat, errOut)
}

// loadConfig falls back to defaults when no config file is present
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
