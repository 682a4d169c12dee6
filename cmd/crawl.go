package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fiberloom/fiberloom/internal/clock/system"
	"github.com/fiberloom/fiberloom/internal/crawler"
	"github.com/fiberloom/fiberloom/internal/fetch"
	iduuid "github.com/fiberloom/fiberloom/internal/id/uuid"
	"github.com/fiberloom/fiberloom/internal/materials"
	"github.com/fiberloom/fiberloom/internal/pipeline"
	"github.com/fiberloom/fiberloom/internal/sitemap"
	"github.com/fiberloom/fiberloom/internal/store"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Runs one harvest of the configured domain",
		Long: `Resolves the domain's sitemaps to a product URL list, then fetches,
extracts, normalizes, and persists each page under the configured
concurrency and rate limits. Re-running is safe: all writes are
idempotent.`,
		RunE: runCrawlCommand,
	}
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	logger, err := buildLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := crawler.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := cmd.Context()
	db, err := store.New(ctx, cfg.DatabaseDSN, system.New())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return err
	}

	fetcher, err := fetch.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}
	resolver, err := sitemap.New(fetcher, cfg, logger)
	if err != nil {
		return fmt.Errorf("init resolver: %w", err)
	}
	table, err := materials.LoadSynonymsFile(cfg.SynonymsFile)
	if err != nil {
		return fmt.Errorf("load synonyms: %w", err)
	}

	p := pipeline.New(cfg, resolver, fetcher, db, materials.NewEngine(table), iduuid.New(), logger)
	stats, err := p.Run(ctx)
	switch {
	case errors.Is(err, sitemap.ErrNoSitemaps):
		// Nothing to crawl is an empty run, not a failure.
		logger.Warn("no valid sitemaps discovered", zap.String("domain", cfg.Domain))
		return nil
	case err != nil && !errors.Is(err, context.Canceled):
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("crawl complete",
		zap.String("run_id", stats.RunID),
		zap.Int64("products", stats.Products),
		zap.Int64("failed", stats.Failed))
	return nil
}
