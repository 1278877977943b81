package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 5000, cfg.Server.Port)
	require.Equal(t, "https://answer.chancefoundation.org.cn", cfg.Crawler.Origin)
	require.Equal(t, "/questions", cfg.Crawler.ListingPath)
	require.Equal(t, "div.list-group-item", cfg.Crawler.ItemSelector)
	require.Equal(t, 1500, cfg.Crawler.PolitenessDelayMs)
	require.Equal(t, 10, cfg.Crawler.MaxPagesDefault)
	require.Equal(t, 50, cfg.Crawler.MaxPagesLimit)
	require.Equal(t, 2, cfg.Crawler.Concurrency)
	require.Equal(t, 16, cfg.Crawler.QueueDepth)
	require.Equal(t, 15, cfg.HTTP.TimeoutSeconds)
	require.Equal(t, CacheBackendMemory, cfg.Cache.Backend)
	require.Equal(t, PublisherBackendMemory, cfg.Publisher.Backend)
	require.Equal(t, "data/output", cfg.Output.Dir)

	require.Equal(t, 1500*time.Millisecond, cfg.PolitenessDelay())
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8080
crawler:
  origin: https://qa.example.org
  max_pages_default: 20
cache:
  backend: memcached
  memcached_addr: localhost:11211
publisher:
  backend: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "https://qa.example.org", cfg.Crawler.Origin)
	require.Equal(t, 20, cfg.Crawler.MaxPagesDefault)
	require.Equal(t, CacheBackendMemcached, cfg.Cache.Backend)
	require.Equal(t, "localhost:11211", cfg.Cache.MemcachedAddr)
	require.Equal(t, PublisherBackendNone, cfg.Publisher.Backend)

	// Untouched keys keep their defaults.
	require.Equal(t, "/questions", cfg.Crawler.ListingPath)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.Origin = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.MaxPagesDefault = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.MaxPagesDefault = 51
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Crawler.Concurrency = 0
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Backend = "redis"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Cache.Backend = CacheBackendMemcached
	cfg.Cache.MemcachedAddr = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Publisher.Backend = PublisherBackendRedis
	cfg.Publisher.RedisAddr = ""
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.Publisher.Backend = PublisherBackendRedis
	cfg.Publisher.RedisAddr = "localhost:6379"
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Output.Dir = ""
	require.Error(t, cfg.Validate())
}
