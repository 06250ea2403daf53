// Package config loads and validates tubescout configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/JakeFAU/tubescout/internal/discovery"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	YouTube YouTubeConfig `mapstructure:"youtube"`
	DB      DBConfig      `mapstructure:"db"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Export  ExportConfig  `mapstructure:"export"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig configures dashboard sessions and the seeded admin account.
type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	CookieSecure  bool          `mapstructure:"cookie_secure"`
	AdminUsername string        `mapstructure:"admin_username"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
}

// YouTubeConfig configures the platform client and the discovery grid.
type YouTubeConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	MaxResults     int64         `mapstructure:"max_results"`
	MaxSubscribers int64         `mapstructure:"max_subscribers"`
	TargetChannels int           `mapstructure:"target_channels"`
	BatchPause     time.Duration `mapstructure:"batch_pause"`
	PairPause      time.Duration `mapstructure:"pair_pause"`
	Regions        []string      `mapstructure:"regions"`
	Keywords       []string      `mapstructure:"keywords"`
	SearchOrders   []string      `mapstructure:"search_orders"`

	// RequestsPerSecond caps calls per API endpoint; 0 disables the cap.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	RequestBurst      int     `mapstructure:"request_burst"`
}

// DBConfig selects and tunes the persistence driver.
type DBConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// CacheConfig enables the Redis handle cache when RedisURL is set.
type CacheConfig struct {
	RedisURL  string        `mapstructure:"redis_url"`
	HandleTTL time.Duration `mapstructure:"handle_ttl"`
}

// ExportConfig selects where rendered exports are archived.
type ExportConfig struct {
	Archive   string `mapstructure:"archive"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for crawl event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Driver and archive names.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveGCS   = "gcs"
)

// Load builds a Config from .env, an optional YAML file, and TUBESCOUT_* variables.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("TUBESCOUT")
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
	v.SetDefault("server.port", 5001)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.request_timeout", 10*time.Minute)
	v.SetDefault("auth.jwt_issuer", "tubescout")
	v.SetDefault("auth.session_ttl", 12*time.Hour)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_email", "admin@localhost")
	v.SetDefault("youtube.api_key", "")
	v.SetDefault("youtube.base_url", "")
	v.SetDefault("youtube.max_results", discovery.DefaultMaxResults)
	v.SetDefault("youtube.max_subscribers", discovery.DefaultMaxSubscribers)
	v.SetDefault("youtube.target_channels", discovery.DefaultTargetChannels)
	v.SetDefault("youtube.batch_pause", time.Second)
	v.SetDefault("youtube.pair_pause", time.Second)
	v.SetDefault("youtube.requests_per_second", 0)
	v.SetDefault("youtube.request_burst", 1)
	v.SetDefault("youtube.regions", discovery.DefaultRegions)
	v.SetDefault("youtube.keywords", discovery.DefaultTerms)
	v.SetDefault("youtube.search_orders", discovery.DefaultOrders)
	v.SetDefault("db.driver", DriverPostgres)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("db.max_conn_lifetime", time.Hour)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.handle_ttl", 24*time.Hour)
	v.SetDefault("export.archive", ArchiveNone)
	v.SetDefault("export.base_dir", "data/exports")
	v.SetDefault("export.prefix", "tubescout")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.topic_name", "tubescout-crawls")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 {
		errs = append(errs, errors.New("server.port must be > 0"))
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 bytes"))
	}
	if c.YouTube.MaxResults < 1 || c.YouTube.MaxResults > 50 {
		errs = append(errs, errors.New("youtube.max_results must be between 1 and 50"))
	}
	if c.YouTube.TargetChannels <= 0 {
		errs = append(errs, errors.New("youtube.target_channels must be > 0"))
	}
	if c.YouTube.BatchPause < 0 || c.YouTube.PairPause < 0 {
		errs = append(errs, errors.New("youtube pauses must not be negative"))
	}
	if c.YouTube.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("youtube.requests_per_second must not be negative"))
	}
	switch c.DB.Driver {
	case DriverPostgres:
		if c.DB.DSN == "" {
			errs = append(errs, errors.New("db.dsn is required for the postgres driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("db.driver %q must be postgres or memory", c.DB.Driver))
	}
	switch c.Export.Archive {
	case ArchiveNone, "":
	case ArchiveLocal:
		if c.Export.BaseDir == "" {
			errs = append(errs, errors.New("export.base_dir is required for local archives"))
		}
	case ArchiveGCS:
		if c.Export.GCSBucket == "" {
			errs = append(errs, errors.New("export.gcs_bucket is required for gcs archives"))
		}
	default:
		errs = append(errs, fmt.Errorf("export.archive %q must be none, local, or gcs", c.Export.Archive))
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		errs = append(errs, errors.New("pubsub.project_id and pubsub.topic_name are required when pubsub is enabled"))
	}
	return errors.Join(errs...)
}
