package uexpr

import (
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
)

// Cache keeps recently parsed expressions keyed by source. It is safe for
// concurrent use. Failed parses are not cached.
type Cache struct {
	config *Config // as given to NewCache, passed on to ParseConfig
	lru    *lru.Cache
	logger *slog.Logger
}

// NewCache creates a cache that parses with config. A nil config uses the
// defaults.
func NewCache(config *Config) (*Cache, error) {
	var orig Config
	if config != nil {
		orig = *config
	}
	c := withDefaults(config)
	l, err := lru.New(c.CacheSize)
	if err != nil {
		return nil, err
	}
	return &Cache{config: &orig, lru: l, logger: c.Logger}, nil
}

// Parse returns the cached expression for src, parsing it on a miss.
func (c *Cache) Parse(src string) (*Expression, error) {
	if v, ok := c.lru.Get(src); ok {
		c.logger.Debug("expression cache hit", "source", src)
		return v.(*Expression), nil
	}
	c.logger.Debug("expression cache miss", "source", src)

	expr, err := ParseConfig(src, c.config)
	if err != nil {
		return nil, err
	}
	if evicted := c.lru.Add(src, expr); evicted {
		c.logger.Debug("expression cache evicted oldest entry", "size", c.lru.Len())
	}
	return expr, nil
}

// Len returns the number of cached expressions.
func (c *Cache) Len() int {
	return c.lru.Len()
}

// Purge removes all cached expressions.
func (c *Cache) Purge() {
	c.lru.Purge()
}
