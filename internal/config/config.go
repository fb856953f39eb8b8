// Package config defines the top-level configuration for the stakerise
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/stakerise/internal/catalog"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by STAKERISE_* environment variables.
type Config struct {
	Chain      ChainConfig      `toml:"chain"`
	Supabase   SupabaseConfig   `toml:"supabase"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Sync       SyncConfig       `toml:"sync"`
	Projection ProjectionConfig `toml:"projection"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// ChainConfig holds the RPC endpoint and contract addresses used for
// read-only staking queries.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ChainID         int64  `toml:"chain_id"`
	StakingContract string `toml:"staking_contract"`
	// Tokens maps asset tickers (STR, BTC, ...) to ERC-20 contract addresses.
	Tokens      map[string]string `toml:"tokens"`
	CallTimeout duration          `toml:"call_timeout"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters.
type SupabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string   `toml:"addr"`
	Password   string   `toml:"password"`
	DB         int      `toml:"db"`
	PoolSize   int      `toml:"pool_size"`
	MaxRetries int      `toml:"max_retries"`
	TLSEnabled bool     `toml:"tls_enabled"`
	CacheTTL   duration `toml:"cache_ttl"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// APIKey, when set, is required on every /api route except health.
	APIKey     string   `toml:"api_key"`
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// SyncConfig controls the on-chain stake synchroniser.
type SyncConfig struct {
	Interval duration `toml:"interval"`
	// Wallets are always synced in addition to wallets already stored.
	Wallets         []string `toml:"wallets"`
	LockTTL         duration `toml:"lock_ttl"`
	RetryMaxElapsed duration `toml:"retry_max_elapsed"`
	// ArchiveActivity copies each day's activity log to S3 as JSONL.
	ArchiveActivity bool     `toml:"archive_activity"`
	ArchiveInterval duration `toml:"archive_interval"`
}

// ProjectionConfig controls the projection endpoints.
type ProjectionConfig struct {
	CacheEnabled bool `toml:"cache_enabled"`
	// DefaultCompound is used when a request does not say.
	DefaultCompound bool `toml:"default_compound"`
}

// CatalogConfig overrides the built-in tier catalog when Assets is non-empty.
type CatalogConfig struct {
	Assets []catalog.Token `toml:"assets"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chain: ChainConfig{
			Tokens:      map[string]string{},
			CallTimeout: duration{10 * time.Second},
		},
		Supabase: SupabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
			CacheTTL:   duration{5 * time.Minute},
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "stakerise-statements",
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Sync: SyncConfig{
			Interval:        duration{5 * time.Minute},
			LockTTL:         duration{4 * time.Minute},
			RetryMaxElapsed: duration{time.Minute},
			ArchiveActivity: true,
			ArchiveInterval: duration{time.Hour},
		},
		Projection: ProjectionConfig{
			CacheEnabled: true,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"sync":   true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// NeedsChain reports whether the configured mode reads from the chain.
func (c *Config) NeedsChain() bool {
	m := strings.ToLower(c.Mode)
	return m == "sync" || m == "full"
}

// Tiers returns the tier catalog: the configured assets when present,
// otherwise the built-in catalog.
func (c *Config) Tiers() (*catalog.Catalog, error) {
	if len(c.Catalog.Assets) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(c.Catalog.Assets...)
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, sync, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chain
	if c.NeedsChain() {
		if c.Chain.RPCURL == "" {
			errs = append(errs, "chain: rpc_url is required for mode "+c.Mode)
		}
		if c.Chain.StakingContract == "" {
			errs = append(errs, "chain: staking_contract is required for mode "+c.Mode)
		}
	}
	if c.Chain.StakingContract != "" && !common.IsHexAddress(c.Chain.StakingContract) {
		errs = append(errs, fmt.Sprintf("chain: staking_contract %q is not a hex address", c.Chain.StakingContract))
	}
	for sym, addr := range c.Chain.Tokens {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("chain: tokens.%s %q is not a hex address", sym, addr))
		}
	}
	if c.Chain.ChainID < 0 {
		errs = append(errs, "chain: chain_id must be >= 0")
	}
	if c.Chain.CallTimeout.Duration <= 0 {
		errs = append(errs, "chain: call_timeout must be > 0")
	}

	// Supabase
	if strings.TrimSpace(c.Supabase.DSN) == "" {
		if c.Supabase.Host == "" {
			errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
		}
		if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
			errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
		}
		if c.Supabase.Database == "" {
			errs = append(errs, "supabase: database must not be empty")
		}
	}
	if c.Supabase.PoolMaxConns < 1 {
		errs = append(errs, "supabase: pool_max_conns must be >= 1")
	}
	if c.Supabase.PoolMinConns < 0 {
		errs = append(errs, "supabase: pool_min_conns must be >= 0")
	}
	if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
		errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}
	if c.Redis.CacheTTL.Duration <= 0 {
		errs = append(errs, "redis: cache_ttl must be > 0")
	}

	// S3
	if c.S3.Endpoint == "" {
		errs = append(errs, "s3: endpoint must not be empty")
	}
	if c.S3.Bucket == "" {
		errs = append(errs, "s3: bucket must not be empty")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0 (0 disables)")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	// Sync
	if c.NeedsChain() {
		if c.Sync.Interval.Duration <= 0 {
			errs = append(errs, "sync: interval must be > 0")
		}
		if c.Sync.LockTTL.Duration <= 0 {
			errs = append(errs, "sync: lock_ttl must be > 0")
		}
		if c.Sync.ArchiveActivity && c.Sync.ArchiveInterval.Duration <= 0 {
			errs = append(errs, "sync: archive_interval must be > 0 when archive_activity is set")
		}
	}
	for _, w := range c.Sync.Wallets {
		if !common.IsHexAddress(w) {
			errs = append(errs, fmt.Sprintf("sync: wallet %q is not a hex address", w))
		}
	}

	// Catalog
	if len(c.Catalog.Assets) > 0 {
		if err := catalog.Validate(c.Catalog.Assets); err != nil {
			errs = append(errs, "catalog: "+err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
