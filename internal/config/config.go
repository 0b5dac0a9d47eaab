// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

type Config struct {
	RPCList          []string `mapstructure:"rpc_list"`
	ListenAddr       string   `mapstructure:"listen_addr"`
	PollIntervalMs   int      `mapstructure:"poll_interval_ms"`
	ConfirmTimeoutMs int      `mapstructure:"confirm_timeout_ms"`
	Commitment       string   `mapstructure:"commitment"`
	SkipPreflight    bool     `mapstructure:"skip_preflight"`
	SettlementAssets []string `mapstructure:"settlement_assets"`
	TokenMetadataURL string   `mapstructure:"token_metadata_url"`

	History HistoryConfig `mapstructure:"history"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Log     LogConfig     `mapstructure:"log"`
}

type HistoryConfig struct {
	URL         string `mapstructure:"url"`
	PageSize    int    `mapstructure:"page_size"`
	PostgresURL string `mapstructure:"postgres_url"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"`
	Size    int    `mapstructure:"size"`
	TTLSec  int    `mapstructure:"ttl_sec"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
}

const (
	DefaultListenAddr       = ":8080"
	DefaultPollIntervalMs   = 200
	DefaultConfirmTimeoutMs = 30_000
	DefaultCommitment       = "confirmed"
	DefaultHistoryPageSize  = 500
	DefaultCacheSize        = 4096
	DefaultCacheTTLSec      = 300

	CacheMemory = "memory"
	CacheRedis  = "redis"

	envPrefix = "TXCORE"
)

// PollInterval и ConfirmTimeout - значения в виде time.Duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

func (c *Config) ConfirmTimeout() time.Duration {
	return time.Duration(c.ConfirmTimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// LoadConfig читает файл конфигурации (может быть пустым путем - тогда
// только env и значения по умолчанию). Перед этим подхватывается .env,
// если он есть.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	defaults := map[string]interface{}{
		"listen_addr":          DefaultListenAddr,
		"poll_interval_ms":     DefaultPollIntervalMs,
		"confirm_timeout_ms":   DefaultConfirmTimeoutMs,
		"commitment":           DefaultCommitment,
		"skip_preflight":       false,
		"settlement_assets":    []string{},
		"token_metadata_url":   "",
		"history.url":          "",
		"history.page_size":    DefaultHistoryPageSize,
		"history.postgres_url": "",
		"cache.backend":        CacheMemory,
		"cache.size":           DefaultCacheSize,
		"cache.ttl_sec":        DefaultCacheTTLSec,
		"redis.addr":           "",
		"redis.password":       "",
		"redis.db":             0,
		"log.file":             "txcore.log",
		"log.development":      false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadListVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return fmt.Errorf("invalid RPC URL %q: %w", rpcURL, err)
		}
	}
	if cfg.History.URL != "" {
		if err := validateURL(cfg.History.URL, "http"); err != nil {
			return fmt.Errorf("invalid history.url: %w", err)
		}
	}
	if cfg.TokenMetadataURL != "" {
		if err := validateURL(cfg.TokenMetadataURL, "http"); err != nil {
			return fmt.Errorf("invalid token_metadata_url: %w", err)
		}
	}
	if _, ok := types.ParseConfirmationLevel(cfg.Commitment); !ok {
		return fmt.Errorf("invalid commitment %q", cfg.Commitment)
	}
	switch cfg.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr is required for cache.backend=redis")
		}
	default:
		return fmt.Errorf("unknown cache.backend %q", cfg.Cache.Backend)
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.PollIntervalMs <= 0 {
		return errors.New("invalid poll_interval_ms")
	}
	if cfg.ConfirmTimeoutMs <= 0 {
		return errors.New("invalid confirm_timeout_ms")
	}
	if cfg.ConfirmTimeoutMs < cfg.PollIntervalMs {
		return errors.New("confirm_timeout_ms must not be shorter than poll_interval_ms")
	}
	if cfg.History.PageSize <= 0 {
		return errors.New("invalid history.page_size")
	}
	if cfg.Cache.Size <= 0 {
		return errors.New("invalid cache.size")
	}
	if cfg.Cache.TTLSec <= 0 {
		return errors.New("invalid cache.ttl_sec")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	if parsed.Host == "" {
		return errors.New("missing URL host")
	}
	return nil
}

// loadListVariables: viper не разбивает env-строки на списки,
// поэтому TXCORE_RPC_LIST и TXCORE_SETTLEMENT_ASSETS разбираем сами.
func loadListVariables(v *viper.Viper, cfg *Config) {
	if list := splitList(v.GetString("RPC_LIST")); len(list) > 0 {
		cfg.RPCList = list
	}
	if list := splitList(v.GetString("SETTLEMENT_ASSETS")); len(list) > 0 {
		cfg.SettlementAssets = list
	}
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if clean := strings.TrimSpace(item); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
