// Package config initializes the application's configuration with
// Viper, unifying a config file, environment variables, and defaults.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// InitConfig sets defaults, search paths, and environment binding. It
// is called once at startup, before any command runs.
func InitConfig() {
	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/fiberloom/")
	viper.AddConfigPath("$HOME/.fiberloom")

	viper.SetDefault("crawler.user_agent", "fiberloom/1.0 (+https://github.com/fiberloom/fiberloom)")
	viper.SetDefault("crawler.concurrency", 5)
	viper.SetDefault("crawler.rate_per_second", 2.0)
	viper.SetDefault("crawler.rate_burst", 1)
	viper.SetDefault("crawler.request_timeout", "10s")
	viper.SetDefault("crawler.max_urls_per_sitemap", 5000)
	viper.SetDefault("crawler.max_urls", 0)

	viper.SetDefault("materials.synonyms_file", "")

	viper.SetDefault("database.dsn", "")

	viper.SetDefault("api.listen_addr", ":8080")
	viper.SetDefault("export.dir", "data/export")

	// e.g. FIBERLOOM_CRAWLER_DOMAIN=shop.example.com
	viper.SetEnvPrefix("FIBERLOOM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Missing config file is fine; defaults and env cover it.
	_ = viper.ReadInConfig()
}
