package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Download DownloadConfig `mapstructure:"download"`
	History  HistoryConfig  `mapstructure:"history"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ResolverConfig contains dispatch-related configuration
type ResolverConfig struct {
	RedirectHops      int           `mapstructure:"redirect_hops"`
	ParseTimeout      time.Duration `mapstructure:"parse_timeout"`
	DisabledPlatforms []string      `mapstructure:"disabled_platforms"`
	ShortDomains      []string      `mapstructure:"short_domains"`
	BundleThreshold   int           `mapstructure:"bundle_threshold"`
	ResultCacheSize   int           `mapstructure:"result_cache_size"`
}

// DownloadConfig contains download-related configuration
type DownloadConfig struct {
	CacheDir      string        `mapstructure:"cache_dir"`
	Concurrency   int           `mapstructure:"concurrency"`
	MaxSizeMB     int64         `mapstructure:"max_size_mb"`
	MaxDuration   time.Duration `mapstructure:"max_duration"`
	FetchTimeout  time.Duration `mapstructure:"fetch_timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	Base64Payload bool          `mapstructure:"base64_payload"`
	Proxy         string        `mapstructure:"proxy"`
}

// HistoryConfig contains parse-history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Resolver: ResolverConfig{
			RedirectHops:    5,
			ParseTimeout:    2 * time.Minute,
			ShortDomains:    []string{"b23.tv", "v.kuaishou.com", "163cn.tv", "t.cn"},
			BundleThreshold: 4,
			ResultCacheSize: 100,
		},
		Download: DownloadConfig{
			CacheDir:     "$HOME/.cache/link-resolve",
			Concurrency:  4,
			MaxSizeMB:    100,
			MaxDuration:  8 * time.Minute,
			FetchTimeout: 2 * time.Minute,
			MaxRetries:   2,
			RetryDelay:   time.Second,
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "$HOME/.cache/link-resolve/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
