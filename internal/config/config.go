// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Cache and publisher backend selectors.
const (
	CacheBackendMemory    = "memory"
	CacheBackendMemcached = "memcached"

	PublisherBackendNone   = "none"
	PublisherBackendMemory = "memory"
	PublisherBackendRedis  = "redis"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs the crawl pipeline.
type CrawlerConfig struct {
	Origin            string `mapstructure:"origin"`
	ListingPath       string `mapstructure:"listing_path"`
	ItemSelector      string `mapstructure:"item_selector"`
	UserAgent         string `mapstructure:"user_agent"`
	PolitenessDelayMs int    `mapstructure:"politeness_delay_ms"`
	MaxPagesDefault   int    `mapstructure:"max_pages_default"`
	MaxPagesLimit     int    `mapstructure:"max_pages_limit"`
	Concurrency       int    `mapstructure:"concurrency"`
	QueueDepth        int    `mapstructure:"queue_depth"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CacheConfig selects and configures the result cache backend.
type CacheConfig struct {
	Backend       string `mapstructure:"backend"`
	MemcachedAddr string `mapstructure:"memcached_addr"`
}

// PublisherConfig selects and configures the completion-event publisher.
type PublisherConfig struct {
	Backend         string `mapstructure:"backend"`
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisDB         int    `mapstructure:"redis_db"`
	Stream          string `mapstructure:"stream"`
	StreamMaxLength int64  `mapstructure:"stream_max_length"`
}

// OutputConfig sets where result documents are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QNACRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("crawler.origin", "https://answer.chancefoundation.org.cn")
	v.SetDefault("crawler.listing_path", "/questions")
	v.SetDefault("crawler.item_selector", "div.list-group-item")
	v.SetDefault("crawler.user_agent", "qna-crawler/1.0")
	v.SetDefault("crawler.politeness_delay_ms", 1500)
	v.SetDefault("crawler.max_pages_default", 10)
	v.SetDefault("crawler.max_pages_limit", 50)
	v.SetDefault("crawler.concurrency", 2)
	v.SetDefault("crawler.queue_depth", 16)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("publisher.backend", PublisherBackendMemory)
	v.SetDefault("publisher.stream", "qna-crawler:completions")
	v.SetDefault("publisher.stream_max_length", 1024)
	v.SetDefault("output.dir", "data/output")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Origin == "" {
		return fmt.Errorf("crawler.origin must be set")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.MaxPagesLimit <= 0 {
		return fmt.Errorf("crawler.max_pages_limit must be > 0")
	}
	if c.Crawler.MaxPagesDefault < 1 || c.Crawler.MaxPagesDefault > c.Crawler.MaxPagesLimit {
		return fmt.Errorf("crawler.max_pages_default must be within 1..%d", c.Crawler.MaxPagesLimit)
	}
	if c.Crawler.PolitenessDelayMs < 0 {
		return fmt.Errorf("crawler.politeness_delay_ms must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendMemcached:
		if c.Cache.MemcachedAddr == "" {
			return fmt.Errorf("cache.memcached_addr must be set for the memcached backend")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", c.Cache.Backend)
	}
	switch c.Publisher.Backend {
	case PublisherBackendNone, PublisherBackendMemory:
	case PublisherBackendRedis:
		if c.Publisher.RedisAddr == "" {
			return fmt.Errorf("publisher.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("unknown publisher.backend %q", c.Publisher.Backend)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir must be set")
	}
	return nil
}

// PolitenessDelay returns the configured inter-page pause.
func (c Config) PolitenessDelay() time.Duration {
	return time.Duration(c.Crawler.PolitenessDelayMs) * time.Millisecond
}

// FetchTimeout returns the per-page network timeout.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
