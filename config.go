package uexpr

import (
	"io"
	"log/slog"

	"github.com/kolkov/uexpr/internal/parser"
)

// DefaultCacheSize is the number of parsed expressions a Cache keeps when
// Config.CacheSize is zero.
const DefaultCacheSize = 256

// Config holds options for parsing and caching expressions.
type Config struct {
	// CacheSize bounds the number of expressions a Cache keeps
	// (default: DefaultCacheSize).
	CacheSize int

	// MaxDepth bounds the nesting of parsed expressions and statements
	// (default: 2000). Deeper input fails with a syntax error.
	MaxDepth int

	// FoldConstants replaces binary operations on two numeric literals
	// with their result at parse time. The folded tree prints the result,
	// not the original operands.
	FoldConstants bool

	// Logger receives debug records for cache hits and misses, parse
	// failures and regular expression literals that need the backtracking
	// engine. It only sees records for expressions parsed with this
	// config. If nil, records are discarded.
	Logger *slog.Logger
}

// applyDefaults fills in default values for unset Config fields.
func (c *Config) applyDefaults() {
	if c.CacheSize <= 0 {
		c.CacheSize = DefaultCacheSize
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = parser.DefaultMaxDepth
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// parserOptions translates the config into parser options.
func (c *Config) parserOptions() []parser.Option {
	opts := []parser.Option{parser.WithMaxDepth(c.MaxDepth), parser.WithLogger(c.Logger)}
	if c.FoldConstants {
		opts = append(opts, parser.WithConstantFolding())
	}
	return opts
}

// withDefaults returns a copy of config with defaults applied, so the
// caller's value is never modified.
func withDefaults(config *Config) *Config {
	var c Config
	if config != nil {
		c = *config
	}
	c.applyDefaults()
	return &c
}
