package crawler

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a harvest run. It is built
// once from Viper at startup and passed by value; nothing mutates it
// afterwards.
type Config struct {
	Domain            string
	BaseURL           string
	UserAgent         string
	Concurrency       int
	RatePerSecond     float64
	RateBurst         int
	RequestTimeout    time.Duration
	MaxURLsPerSitemap int
	MaxURLs           int
	SynonymsFile      string
	DatabaseDSN       string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Domain:            v.GetString("crawler.domain"),
		BaseURL:           v.GetString("crawler.base_url"),
		UserAgent:         v.GetString("crawler.user_agent"),
		Concurrency:       v.GetInt("crawler.concurrency"),
		RatePerSecond:     v.GetFloat64("crawler.rate_per_second"),
		RateBurst:         v.GetInt("crawler.rate_burst"),
		RequestTimeout:    v.GetDuration("crawler.request_timeout"),
		MaxURLsPerSitemap: v.GetInt("crawler.max_urls_per_sitemap"),
		MaxURLs:           v.GetInt("crawler.max_urls"),
		SynonymsFile:      v.GetString("materials.synonyms_file"),
		DatabaseDSN:       v.GetString("database.dsn"),
	}
	if cfg.BaseURL == "" && cfg.Domain != "" {
		cfg.BaseURL = "https://" + cfg.Domain + "/"
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("crawler.domain must be set")
	}
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("crawler.base_url must be an absolute http(s) URL")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("crawler.user_agent must be set")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.RatePerSecond <= 0 {
		return fmt.Errorf("crawler.rate_per_second must be > 0")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if c.MaxURLsPerSitemap <= 0 {
		return fmt.Errorf("crawler.max_urls_per_sitemap must be > 0")
	}
	if c.MaxURLs < 0 {
		return fmt.Errorf("crawler.max_urls must be >= 0")
	}
	return nil
}
