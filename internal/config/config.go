package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "MANNMITRA"
	defaultHTTPAddress   = "0.0.0.0:8080"
	defaultDatabasePath  = "mannmitra.db"
	defaultStoreDriver   = StoreDriverSQLite
	defaultRedisAddress  = "127.0.0.1:6379"
	defaultRedisPrefix   = "mannmitra"
	defaultScopeTTLHours = 24 * 30
	defaultPageSize      = 6
	defaultLogLevel      = "info"
	defaultLogFormat     = "json"
)

// Store drivers accepted by store.driver.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress        string
	AllowedOrigins     []string
	DatabasePath       string
	StoreDriver        string
	RedisAddress       string
	RedisKeyPrefix     string
	ScopeSigningSecret string
	ScopeTokenTTL      time.Duration
	CommunityPageSize  int
	LogLevel           string
	LogFormat          string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("http.allowed_origins", []string{"*"})
	configViper.SetDefault("database.path", defaultDatabasePath)
	configViper.SetDefault("store.driver", defaultStoreDriver)
	configViper.SetDefault("redis.address", defaultRedisAddress)
	configViper.SetDefault("redis.key_prefix", defaultRedisPrefix)
	configViper.SetDefault("scope.ttl_hours", defaultScopeTTLHours)
	configViper.SetDefault("community.page_size", defaultPageSize)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("log.format", defaultLogFormat)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:        configViper.GetString("http.address"),
		AllowedOrigins:     splitOrigins(configViper.GetStringSlice("http.allowed_origins")),
		DatabasePath:       configViper.GetString("database.path"),
		StoreDriver:        strings.ToLower(strings.TrimSpace(configViper.GetString("store.driver"))),
		RedisAddress:       configViper.GetString("redis.address"),
		RedisKeyPrefix:     configViper.GetString("redis.key_prefix"),
		ScopeSigningSecret: configViper.GetString("scope.signing_secret"),
		ScopeTokenTTL:      time.Duration(configViper.GetInt("scope.ttl_hours")) * time.Hour,
		CommunityPageSize:  configViper.GetInt("community.page_size"),
		LogLevel:           configViper.GetString("log.level"),
		LogFormat:          strings.ToLower(strings.TrimSpace(configViper.GetString("log.format"))),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// splitOrigins accepts both list values and a comma separated env string.
func splitOrigins(values []string) []string {
	origins := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				origins = append(origins, trimmed)
			}
		}
	}
	return origins
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.ScopeSigningSecret) == "" {
		return fmt.Errorf("scope.signing_secret is required")
	}
	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("http.address is required")
	}
	switch c.StoreDriver {
	case StoreDriverSQLite:
		if strings.TrimSpace(c.DatabasePath) == "" {
			return fmt.Errorf("database.path is required for the sqlite store")
		}
	case StoreDriverRedis:
		if strings.TrimSpace(c.RedisAddress) == "" {
			return fmt.Errorf("redis.address is required for the redis store")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("store.driver must be one of sqlite, redis, memory (got %q)", c.StoreDriver)
	}
	if c.ScopeTokenTTL <= 0 {
		return fmt.Errorf("scope.ttl_hours must be positive")
	}
	if c.CommunityPageSize <= 0 {
		return fmt.Errorf("community.page_size must be positive")
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("log.format must be json or console (got %q)", c.LogFormat)
	}
	return nil
}
