// Package pipeline orchestrates a crawl run: sitemap resolution, bounded
// concurrent fetching, extraction, material normalization, and
// persistence. A failure on one page never aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fiberloom/fiberloom/internal/crawler"
	"github.com/fiberloom/fiberloom/internal/extract"
	"github.com/fiberloom/fiberloom/internal/materials"
	"github.com/fiberloom/fiberloom/internal/metrics"
)

// Resolver discovers the product URLs to crawl.
type Resolver interface {
	Resolve(ctx context.Context) ([]string, error)
}

// Stats summarizes one completed run.
type Stats struct {
	RunID    string
	URLs     int
	Fetched  int64
	Failed   int64
	Skipped  int64
	Products int64
	Variants int64
	Reviews  int64
	Mentions int64
}

type counters struct {
	fetched  atomic.Int64
	failed   atomic.Int64
	skipped  atomic.Int64
	products atomic.Int64
	variants atomic.Int64
	reviews  atomic.Int64
	mentions atomic.Int64
}

// Pipeline wires the run together. All collaborators are injected so
// tests can drive it with fakes end to end.
type Pipeline struct {
	cfg      crawler.Config
	resolver Resolver
	fetcher  crawler.Fetcher
	store    crawler.Store
	engine   *materials.Engine
	ids      crawler.IDGenerator
	logger   *zap.Logger
}

func New(cfg crawler.Config, resolver Resolver, fetcher crawler.Fetcher, store crawler.Store,
	engine *materials.Engine, ids crawler.IDGenerator, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		resolver: resolver,
		fetcher:  fetcher,
		store:    store,
		engine:   engine,
		ids:      ids,
		logger:   logger,
	}
}

// Run executes one crawl. It returns an error only for run-level
// failures (no sitemaps, context canceled); per-page failures are
// logged, counted, and contained.
func (p *Pipeline) Run(ctx context.Context) (Stats, error) {
	runID, err := p.ids.NewID()
	if err != nil {
		return Stats{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := p.logger.With(zap.String("run_id", runID))

	urls, err := p.resolver.Resolve(ctx)
	if err != nil {
		return Stats{RunID: runID}, fmt.Errorf("resolve product urls: %w", err)
	}
	if p.cfg.MaxURLs > 0 && len(urls) > p.cfg.MaxURLs {
		logger.Info("capping url list",
			zap.Int("discovered", len(urls)),
			zap.Int("max_urls", p.cfg.MaxURLs))
		urls = urls[:p.cfg.MaxURLs]
	}

	logger.Info("crawl starting",
		zap.String("domain", p.cfg.Domain),
		zap.Int("urls", len(urls)),
		zap.Int("concurrency", p.cfg.Concurrency))

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, u := range urls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.processURL(gctx, logger, u, &c)
			return nil
		})
	}
	err = g.Wait()

	stats := Stats{
		RunID:    runID,
		URLs:     len(urls),
		Fetched:  c.fetched.Load(),
		Failed:   c.failed.Load(),
		Skipped:  c.skipped.Load(),
		Products: c.products.Load(),
		Variants: c.variants.Load(),
		Reviews:  c.reviews.Load(),
		Mentions: c.mentions.Load(),
	}
	logger.Info("crawl finished",
		zap.Int("urls", stats.URLs),
		zap.Int64("fetched", stats.Fetched),
		zap.Int64("failed", stats.Failed),
		zap.Int64("skipped", stats.Skipped),
		zap.Int64("products", stats.Products),
		zap.Int64("variants", stats.Variants),
		zap.Int64("reviews", stats.Reviews),
		zap.Int64("material_mentions", stats.Mentions))
	return stats, err
}

// processURL handles one page start to finish. Every failure path logs
// and returns; partial writes are acceptable because all store writes
// are idempotent on the next run.
func (p *Pipeline) processURL(ctx context.Context, logger *zap.Logger, url string, c *counters) {
	body, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObservePage("failed")
		c.failed.Add(1)
		logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return
	}
	metrics.ObservePage("fetched")
	c.fetched.Add(1)

	page, err := extract.Parse(body)
	if err != nil {
		c.failed.Add(1)
		logger.Warn("parse failed", zap.String("url", url), zap.Error(err))
		return
	}
	ext, ok := page.Product()
	if !ok {
		c.skipped.Add(1)
		logger.Debug("no product data on page", zap.String("url", url))
		return
	}
	ext.Product.SourceDomain = p.cfg.Domain
	ext.Product.URL = url
	ext.Product.Materials = page.Materials()

	productID, err := p.store.UpsertProduct(ctx, ext.Product)
	if err != nil {
		c.failed.Add(1)
		logger.Warn("persist product failed", zap.String("url", url), zap.Error(err))
		return
	}
	metrics.ObserveProduct()
	c.products.Add(1)

	for _, v := range ext.Variants {
		if err := p.store.InsertVariant(ctx, productID, v); err != nil {
			logger.Warn("persist variant failed",
				zap.String("url", url), zap.String("sku", v.SKU), zap.Error(err))
			continue
		}
		metrics.ObserveVariant()
		c.variants.Add(1)
	}
	for _, r := range ext.Reviews {
		if err := p.store.InsertReview(ctx, productID, r); err != nil {
			logger.Warn("persist review failed", zap.String("url", url), zap.Error(err))
			continue
		}
		metrics.ObserveReview()
		c.reviews.Add(1)
	}
	for _, m := range p.engine.Mentions(ext.Product.Materials) {
		materialID, err := p.store.UpsertMaterial(ctx, m.Material)
		if err != nil {
			logger.Warn("persist material failed",
				zap.String("url", url), zap.String("material", m.Material), zap.Error(err))
			continue
		}
		if err := p.store.InsertProductMaterial(ctx, productID, materialID, m); err != nil {
			logger.Warn("persist material mention failed",
				zap.String("url", url), zap.String("material", m.Material), zap.Error(err))
			continue
		}
		metrics.ObserveMention(m.Source)
		c.mentions.Add(1)
	}

	logger.Info("page processed",
		zap.String("url", url),
		zap.String("name", ext.Product.Name),
		zap.Int("variants", len(ext.Variants)),
		zap.Int("reviews", len(ext.Reviews)))
}
