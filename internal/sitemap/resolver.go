// Package sitemap discovers and expands a site's sitemap graph into a
// flat, deduplicated set of product-page URLs.
package sitemap

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/samber/lo"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"

	"github.com/fiberloom/fiberloom/internal/crawler"
)

// ErrNoSitemaps is returned when no candidate sitemap validates. The run
// ends early; there is nothing to crawl.
var ErrNoSitemaps = errors.New("no valid sitemaps discovered")

// Well-known sitemap locations probed before consulting robots.txt.
var sitemapHints = []string{"sitemap.xml", "sitemap_index.xml", "sitemap-index.xml"}

var productPathRe = regexp.MustCompile(`(?i)/(product|products|p)/`)

// Resolver turns a base URL into product-page URLs.
type Resolver struct {
	fetcher       crawler.Fetcher
	base          *url.URL
	domain        string
	maxPerSitemap int
	logger        *zap.Logger
}

// New builds a Resolver from the run configuration.
func New(fetcher crawler.Fetcher, cfg crawler.Config, logger *zap.Logger) (*Resolver, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	return &Resolver{
		fetcher:       fetcher,
		base:          base,
		domain:        cfg.Domain,
		maxPerSitemap: cfg.MaxURLsPerSitemap,
		logger:        logger,
	}, nil
}

// Resolve produces the deduplicated, order-preserving crawl set. Sitemap
// indexes are expanded exactly one level deep; every sub-sitemap is capped
// at maxPerSitemap leaf URLs.
func (r *Resolver) Resolve(ctx context.Context) ([]string, error) {
	valid := r.validate(ctx, r.candidates(ctx))
	if len(valid) == 0 {
		return nil, ErrNoSitemaps
	}

	var all []string
	for _, sm := range valid {
		locs, isIndex := extractLocs(sm.body)
		if !isIndex {
			all = append(all, capLocs(locs, r.maxPerSitemap)...)
			continue
		}
		for _, sub := range locs {
			body, err := r.fetcher.Fetch(ctx, sub)
			if err != nil {
				r.logger.Warn("sub-sitemap fetch failed", zap.String("url", sub), zap.Error(err))
				continue
			}
			subLocs, _ := extractLocs(body)
			all = append(all, capLocs(subLocs, r.maxPerSitemap)...)
		}
	}

	productLike := lo.Filter(all, func(u string, _ int) bool {
		return r.isProductURL(u)
	})
	return lo.Uniq(productLike), nil
}

// candidates joins the well-known hints onto the base URL and appends any
// Sitemap directives advertised by robots.txt. Robots failures are not
// fatal to discovery.
func (r *Resolver) candidates(ctx context.Context) []string {
	out := make([]string, 0, len(sitemapHints)+1)
	for _, hint := range sitemapHints {
		if ref, err := url.Parse(hint); err == nil {
			out = append(out, r.base.ResolveReference(ref).String())
		}
	}

	robotsURL := r.base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
	body, err := r.fetcher.Fetch(ctx, robotsURL)
	if err != nil {
		r.logger.Debug("robots.txt unavailable", zap.String("url", robotsURL), zap.Error(err))
		return out
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		r.logger.Debug("robots.txt unparsable", zap.String("url", robotsURL), zap.Error(err))
		return out
	}
	out = append(out, data.Sitemaps...)
	return out
}

type validatedSitemap struct {
	url  string
	body []byte
}

// validate fetches each unique candidate and keeps those carrying a
// url-set or sitemap-index root marker. Unreachable or malformed
// candidates are dropped without failing the run.
func (r *Resolver) validate(ctx context.Context, candidates []string) []validatedSitemap {
	var valid []validatedSitemap
	seen := make(map[string]struct{}, len(candidates))
	for _, u := range candidates {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		body, err := r.fetcher.Fetch(ctx, u)
		if err != nil {
			r.logger.Debug("sitemap candidate rejected", zap.String("url", u), zap.Error(err))
			continue
		}
		if !bytes.Contains(body, []byte("<urlset")) && !bytes.Contains(body, []byte("<sitemapindex")) {
			continue
		}
		valid = append(valid, validatedSitemap{url: u, body: body})
	}
	return valid
}

func (r *Resolver) isProductURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(u.Hostname()), strings.ToLower(r.domain)) {
		return false
	}
	return productPathRe.MatchString(u.Path)
}

// extractLocs streams the document and collects every <loc> value. The
// second return reports whether the root element is a sitemap index.
func extractLocs(body []byte) ([]string, bool) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	var (
		locs    []string
		isIndex bool
		rootSet bool
		inLoc   bool
		current strings.Builder
	)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !rootSet {
				rootSet = true
				isIndex = t.Name.Local == "sitemapindex"
			}
			if t.Name.Local == "loc" {
				inLoc = true
				current.Reset()
			}
		case xml.CharData:
			if inLoc {
				current.Write(t)
			}
		case xml.EndElement:
			if t.Name.Local == "loc" && inLoc {
				inLoc = false
				if v := strings.TrimSpace(current.String()); v != "" {
					locs = append(locs, v)
				}
			}
		}
	}
	return locs, isIndex
}

func capLocs(locs []string, limit int) []string {
	if limit > 0 && len(locs) > limit {
		return locs[:limit]
	}
	return locs
}
