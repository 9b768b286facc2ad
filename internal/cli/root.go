// Package cli implements blogctl, the command line companion of the theme
// proxy: E2E scenarios, fixture data, and terminal versions of the feed and
// search widgets.
package cli

import (
	"fmt"

	"github.com/hungpv1995/blog-frontkit/internal/config"
	"github.com/hungpv1995/blog-frontkit/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configDir string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "Tooling for the blog front end",
	Long: `blogctl runs the browser E2E scenarios against a live blog, loads the
fixture posts they depend on, and drives the infinite-scroll feed and the
search modal from a terminal.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory holding config.yml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
}

// loadConfig loads the config and a logger honouring --log-level.
func loadConfig() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
