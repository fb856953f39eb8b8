package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies STAKERISE_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
//
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known STAKERISE_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chain ──
	setStr(&cfg.Chain.RPCURL, "STAKERISE_CHAIN_RPC_URL")
	setInt64(&cfg.Chain.ChainID, "STAKERISE_CHAIN_ID")
	setStr(&cfg.Chain.StakingContract, "STAKERISE_CHAIN_STAKING_CONTRACT")
	setStringMap(&cfg.Chain.Tokens, "STAKERISE_CHAIN_TOKENS")
	setDuration(&cfg.Chain.CallTimeout, "STAKERISE_CHAIN_CALL_TIMEOUT")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "STAKERISE_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "STAKERISE_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "STAKERISE_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "STAKERISE_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "STAKERISE_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "STAKERISE_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "STAKERISE_SUPABASE_SSL_MODE")
	setInt(&cfg.Supabase.PoolMaxConns, "STAKERISE_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "STAKERISE_SUPABASE_POOL_MIN_CONNS")
	setBool(&cfg.Supabase.RunMigrations, "STAKERISE_SUPABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "STAKERISE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "STAKERISE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "STAKERISE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "STAKERISE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "STAKERISE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "STAKERISE_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.CacheTTL, "STAKERISE_REDIS_CACHE_TTL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "STAKERISE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "STAKERISE_S3_REGION")
	setStr(&cfg.S3.Bucket, "STAKERISE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "STAKERISE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "STAKERISE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "STAKERISE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "STAKERISE_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "STAKERISE_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "STAKERISE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "STAKERISE_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "STAKERISE_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "STAKERISE_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "STAKERISE_SERVER_RATE_WINDOW")

	// ── Sync ──
	setDuration(&cfg.Sync.Interval, "STAKERISE_SYNC_INTERVAL")
	setStringSlice(&cfg.Sync.Wallets, "STAKERISE_SYNC_WALLETS")
	setDuration(&cfg.Sync.LockTTL, "STAKERISE_SYNC_LOCK_TTL")
	setDuration(&cfg.Sync.RetryMaxElapsed, "STAKERISE_SYNC_RETRY_MAX_ELAPSED")
	setBool(&cfg.Sync.ArchiveActivity, "STAKERISE_SYNC_ARCHIVE_ACTIVITY")
	setDuration(&cfg.Sync.ArchiveInterval, "STAKERISE_SYNC_ARCHIVE_INTERVAL")

	// ── Projection ──
	setBool(&cfg.Projection.CacheEnabled, "STAKERISE_PROJECTION_CACHE_ENABLED")
	setBool(&cfg.Projection.DefaultCompound, "STAKERISE_PROJECTION_DEFAULT_COMPOUND")

	// ── Top-level ──
	setStr(&cfg.Mode, "STAKERISE_MODE")
	setStr(&cfg.LogLevel, "STAKERISE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}

// setStringMap parses "K1=v1,K2=v2" and merges the pairs into dst.
func setStringMap(dst *map[string]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if *dst == nil {
		*dst = make(map[string]string)
	}
	for _, pair := range strings.Split(v, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || val == "" {
			continue
		}
		(*dst)[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(val)
	}
}
