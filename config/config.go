package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/database"
	boxhttp "github.com/sagarc03/boxgate/http"
	"github.com/sagarc03/boxgate/keybackend"
	"github.com/sagarc03/boxgate/objectstore/s3store"
	"github.com/sagarc03/boxgate/ratelimit"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for boxgate.
type Config struct {
	Env       string                 `mapstructure:"env" validate:"required,oneof=dev prod"`
	Server    ServerConfig           `mapstructure:"server"`
	Auth      keybackend.TokenConfig `mapstructure:"auth"`
	RateLimit RateLimitConfig        `mapstructure:"ratelimit"`
	Storage   StorageConfig          `mapstructure:"storage"`
	Database  DatabaseConfig         `mapstructure:"database"`
	List      ListConfig             `mapstructure:"list"`
	CORS      boxhttp.CORSConfig     `mapstructure:"cors"`
	Metrics   MetricsConfig          `mapstructure:"metrics"`
	Log       LogConfig              `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr" validate:"required"`
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers"`
	MaxUploadSize     int64         `mapstructure:"max_upload_size" validate:"min=0"`
	BackendTimeout    time.Duration `mapstructure:"backend_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// RateLimitConfig holds the two fixed windows and where their counters live.
type RateLimitConfig struct {
	GlobalLimit        int           `mapstructure:"global_limit" validate:"min=1,max=10000"`
	GlobalWindow       time.Duration `mapstructure:"global_window" validate:"min=1s"`
	UnauthorizedLimit  int           `mapstructure:"unauthorized_limit" validate:"min=1"`
	UnauthorizedWindow time.Duration `mapstructure:"unauthorized_window" validate:"min=1s"`
	Grace              time.Duration `mapstructure:"grace" validate:"min=0"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval" validate:"min=0"`
	Store              string        `mapstructure:"store" validate:"required,oneof=memory database"`
}

// Limiter converts the section to a ratelimit.Config.
func (c RateLimitConfig) Limiter() ratelimit.Config {
	return ratelimit.Config{
		GlobalLimit:        c.GlobalLimit,
		GlobalWindow:       c.GlobalWindow,
		UnauthorizedLimit:  c.UnauthorizedLimit,
		UnauthorizedWindow: c.UnauthorizedWindow,
		Grace:              c.Grace,
	}
}

// StorageConfig selects the object store backend.
type StorageConfig struct {
	Type string   `mapstructure:"type" validate:"required,oneof=filesystem s3 memory"`
	Path string   `mapstructure:"path" validate:"required_if=Type filesystem"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config holds S3 or R2 bucket settings.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint" validate:"omitempty,url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// Store converts the section to an s3store.Config.
func (c S3Config) Store() s3store.Config {
	return s3store.Config{
		Bucket:          c.Bucket,
		Region:          c.Region,
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		UsePathStyle:    c.UsePathStyle,
	}
}

// DatabaseConfig holds the SQL backend used for redirects and, optionally,
// rate limit counters.
type DatabaseConfig struct {
	database.Config `mapstructure:",squash"`
	AutoMigrate     bool `mapstructure:"auto_migrate"`
}

// ListConfig bounds backend listing and batch deletion.
type ListConfig struct {
	PageSize        int `mapstructure:"page_size" validate:"min=1,max=1000"`
	MaxPages        int `mapstructure:"max_pages" validate:"min=1"`
	DeleteBatchSize int `mapstructure:"delete_batch_size" validate:"min=1,max=1000"`
}

// Service converts the section to a boxgate.ServiceConfig.
func (c ListConfig) Service() boxgate.ServiceConfig {
	return boxgate.ServiceConfig{
		ListPageSize:    c.PageSize,
		MaxListPages:    c.MaxPages,
		DeleteBatchSize: c.DeleteBatchSize,
	}
}

// MetricsConfig controls the Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
	Path    string `mapstructure:"path" validate:"omitempty,startswith=/"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"addr":         "server.addr",
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"auto-migrate": "database.auto_migrate",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance. Every key
// that should be reachable from the environment needs a default here.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("server.max_upload_size", 0) // 0 means no limit
	v.SetDefault("server.backend_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("auth.token", "")
	v.SetDefault("auth.token_file", "")
	v.SetDefault("auth.token_env", "")

	rl := ratelimit.DefaultConfig()
	v.SetDefault("ratelimit.global_limit", rl.GlobalLimit)
	v.SetDefault("ratelimit.global_window", rl.GlobalWindow)
	v.SetDefault("ratelimit.unauthorized_limit", rl.UnauthorizedLimit)
	v.SetDefault("ratelimit.unauthorized_window", rl.UnauthorizedWindow)
	v.SetDefault("ratelimit.grace", rl.Grace)
	v.SetDefault("ratelimit.sweep_interval", time.Minute)
	v.SetDefault("ratelimit.store", "memory")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "boxgate.db")
	v.SetDefault("database.tables.redirects", "redirects")
	v.SetDefault("database.tables.rate_buckets", "rate_buckets")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("list.page_size", 1000)
	v.SetDefault("list.max_pages", 100)
	v.SetDefault("list.delete_batch_size", 1000)

	cors := boxhttp.DefaultCORSConfig()
	v.SetDefault("cors.enabled", cors.Enabled)
	v.SetDefault("cors.allowed_origins", cors.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", cors.AllowedMethods)
	v.SetDefault("cors.allowed_headers", cors.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", cors.ExposedHeaders)
	v.SetDefault("cors.allow_credentials", cors.AllowCredentials)
	v.SetDefault("cors.max_age", cors.MaxAge)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("BOXGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}

	if err := c.Database.Tables.Validate(); err != nil {
		return err
	}

	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return errors.New("storage.s3.bucket is required when storage.type is s3")
	}

	if c.Metrics.Enabled && c.Metrics.Addr == c.Server.Addr {
		return errors.New("metrics.addr must differ from server.addr")
	}

	return nil
}
