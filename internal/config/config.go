package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Quotes struct {
	Source              string  `yaml:"source"` // alphavantage | offline
	BaseURL             string  `yaml:"base_url"`
	APIKeyEnv           string  `yaml:"api_key_env"`
	RateLimitIntervalMs int     `yaml:"rate_limit_interval_ms"`
	TimeoutSeconds      int     `yaml:"timeout_seconds"`
	SyntheticVolatility float64 `yaml:"synthetic_volatility"`
}

type Refresh struct {
	WatchlistIntervalSeconds int   `yaml:"watchlist_interval_seconds"`
	DetailIntervalSeconds    int   `yaml:"detail_interval_seconds"`
	AutoRefresh              *bool `yaml:"auto_refresh"` // unset means enabled
}

type Watchlist struct {
	DefaultSymbols []string `yaml:"default_symbols"`
}

type Store struct {
	Kind      string `yaml:"kind"` // none | file | sqlite | redis
	Path      string `yaml:"path"`
	RedisAddr string `yaml:"redis_addr"`
	RedisKey  string `yaml:"redis_key"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Root struct {
	Quotes    Quotes    `yaml:"quotes"`
	Refresh   Refresh   `yaml:"refresh"`
	Watchlist Watchlist `yaml:"watchlist"`
	Store     Store     `yaml:"store"`
	Server    Server    `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() Root {
	var c Root
	c.applyDefaults()
	return c
}

func Load(path string) (Root, error) {
	var c Root
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	c.applyDefaults()
	return c, nil
}

func (c *Root) applyDefaults() {
	// quote acquisition
	if c.Quotes.Source == "" {
		c.Quotes.Source = "alphavantage"
	}
	if c.Quotes.BaseURL == "" {
		c.Quotes.BaseURL = "https://www.alphavantage.co/query"
	}
	if c.Quotes.APIKeyEnv == "" {
		c.Quotes.APIKeyEnv = "ALPHA_VANTAGE_API_KEY"
	}
	if c.Quotes.RateLimitIntervalMs == 0 {
		c.Quotes.RateLimitIntervalMs = 12000
	}
	if c.Quotes.TimeoutSeconds == 0 {
		c.Quotes.TimeoutSeconds = 10
	}
	if c.Quotes.SyntheticVolatility == 0 {
		c.Quotes.SyntheticVolatility = 0.02
	}

	if c.Refresh.WatchlistIntervalSeconds == 0 {
		c.Refresh.WatchlistIntervalSeconds = 30
	}
	if c.Refresh.DetailIntervalSeconds == 0 {
		c.Refresh.DetailIntervalSeconds = 5
	}
	if c.Refresh.AutoRefresh == nil {
		on := true
		c.Refresh.AutoRefresh = &on
	}

	if len(c.Watchlist.DefaultSymbols) == 0 {
		c.Watchlist.DefaultSymbols = []string{"AAPL", "GOOGL", "MSFT", "TSLA", "NVDA", "AMZN", "META", "NFLX"}
	}

	if c.Store.Kind == "" {
		c.Store.Kind = "none"
	}
	if c.Store.RedisKey == "" {
		c.Store.RedisKey = "quotedash:watchlist"
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func (q Quotes) RateLimitInterval() time.Duration {
	return time.Duration(q.RateLimitIntervalMs) * time.Millisecond
}

func (r Refresh) WatchlistInterval() time.Duration {
	return time.Duration(r.WatchlistIntervalSeconds) * time.Second
}

func (r Refresh) DetailInterval() time.Duration {
	return time.Duration(r.DetailIntervalSeconds) * time.Second
}

func (r Refresh) AutoRefreshEnabled() bool {
	return r.AutoRefresh == nil || *r.AutoRefresh
}
