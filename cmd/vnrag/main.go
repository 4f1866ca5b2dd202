// Command vnrag retrieves passages from a topic-tagged knowledge file,
// builds knowledge files from chunk directories and reports corpus stats.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hqta1110/vnrag"
	"github.com/hqta1110/vnrag/internal/config"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vnrag",
		Short:         "Topic-filtered passage retrieval over a knowledge file",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(retrieveCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(statsCmd())
	return root
}

func loadConfig() (*config.Config, *vnrag.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) (*vnrag.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Log.Format, "json") {
		return vnrag.NewJSONLogger(level), nil
	}
	return vnrag.NewTextLogger(level), nil
}

func componentLogger(l *vnrag.Logger, name string) *slog.Logger {
	return l.WithComponent(name).Logger
}
