// Package fetch retrieves pages through a shared Colly collector under a
// global token-bucket rate cap.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fiberloom/fiberloom/internal/crawler"
	"github.com/fiberloom/fiberloom/internal/metrics"
)

// Fetcher implements crawler.Fetcher. Every fetch waits on the shared
// limiter first, so the request rate is capped globally rather than per
// worker.
type Fetcher struct {
	base    *colly.Collector
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New constructs a configured Colly-based Fetcher.
func New(cfg crawler.Config, logger *zap.Logger) (*Fetcher, error) {
	base := colly.NewCollector(
		colly.Async(true),
		colly.UserAgent(cfg.UserAgent),
	)
	base.AllowURLRevisit = true
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		MaxConnsPerHost:       cfg.Concurrency * 2,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
		ForceAttemptHTTP2:     true,
	})
	base.SetRequestTimeout(cfg.RequestTimeout)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}
	return &Fetcher{
		base:    base,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst),
		logger:  logger,
	}, nil
}

type fetchResult struct {
	body   []byte
	status int
	err    error
}

// Fetch retrieves a single URL. Non-2xx responses, timeouts, and
// transport failures all surface as *crawler.FetchError; there is no
// retry.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &crawler.FetchError{URL: rawURL, Err: err}
	}

	metrics.FetchStarted()
	start := time.Now()
	defer func() {
		metrics.FetchFinished(time.Since(start).Seconds())
	}()

	collector := f.base.Clone()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() {
			resultCh <- res
		})
	}

	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{
			body:   append([]byte{}, r.Body...),
			status: r.StatusCode,
		})
	})
	collector.OnError(func(r *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		send(fetchResult{status: status, err: err})
	})

	if err := collector.Visit(rawURL); err != nil {
		return nil, &crawler.FetchError{URL: rawURL, Err: err}
	}
	collector.Wait()

	select {
	case res := <-resultCh:
		if err := ctx.Err(); err != nil {
			return nil, &crawler.FetchError{URL: rawURL, Err: err}
		}
		if res.err != nil {
			return nil, &crawler.FetchError{URL: rawURL, StatusCode: res.status, Err: res.err}
		}
		return res.body, nil
	default:
		return nil, &crawler.FetchError{URL: rawURL, Err: errors.New("fetch produced no result")}
	}
}
