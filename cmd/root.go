// Package cmd defines the CLI commands for the fiberloom executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fiberloom/fiberloom/internal/logging"
	"github.com/fiberloom/fiberloom/internal/metrics"
	"github.com/fiberloom/fiberloom/pkg/config"
)

var (
	cfgFile string
	devMode bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fiberloom",
		Short: "A polite product crawler that maps retailer catalogs to a material graph.",
		Long: `fiberloom discovers a retailer's product pages through its sitemaps,
extracts structured product data, variants, and reviews, normalizes the
textile composition of each product, and persists the whole graph to
Postgres for analysis.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig()
		metrics.Init()
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/fiberloom, $HOME/.fiberloom)")
	cmd.PersistentFlags().BoolVar(&devMode, "dev", false, "human-readable development logging")

	cmd.AddCommand(newCrawlCmd(), newServeCmd(), newExportCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildLogger() (*zap.Logger, error) {
	logger, err := logging.New(devMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
