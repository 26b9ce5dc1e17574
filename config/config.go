package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/retracehq/retrace/blob"
	"github.com/retracehq/retrace/database"
	retracehttp "github.com/retracehq/retrace/http"
	"github.com/retracehq/retrace/llm"
	"github.com/retracehq/retrace/secrets"
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

// Config is the root configuration struct for retrace.
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`
	Service  ServiceConfig           `mapstructure:"service"`
	Database database.Config         `mapstructure:"database"`
	Storage  StorageConfig           `mapstructure:"storage"`
	Ingest   IngestConfig            `mapstructure:"ingest"`
	Share    ShareConfig             `mapstructure:"share"`
	Admin    retracehttp.AdminConfig `mapstructure:"admin"`
	AI       AIConfig                `mapstructure:"ai"`
	Metrics  MetricsConfig           `mapstructure:"metrics"`
	CORS     retracehttp.CORSConfig  `mapstructure:"cors"`
	Log      LogConfig               `mapstructure:"log"`
	Secrets  secrets.StoreConfig     `mapstructure:"secrets"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int `mapstructure:"port" validate:"required,min=1,max=65535"`
	RequestTimeout int `mapstructure:"request_timeout" validate:"min=1"`
}

// ServiceConfig holds service-level configuration.
type ServiceConfig struct {
	CleanupTimeout int `mapstructure:"cleanup_timeout" validate:"min=1"`
}

// StorageConfig holds blob storage configuration. It is the settings
// source for the blob facade; see Snapshot for the hot-swappable view
// the server hands to the store.
type StorageConfig struct {
	Mode        string `mapstructure:"mode" validate:"required,oneof=memory remote"`
	Endpoint    string `mapstructure:"endpoint"`
	Bucket      string `mapstructure:"bucket"`
	ServiceKey  string `mapstructure:"service_key"`
	PublicBase  string `mapstructure:"public_base"`
	ProxyPrefix string `mapstructure:"proxy_prefix"`
}

// BlobSettings converts the section into the blob layer's settings type.
func (c StorageConfig) BlobSettings() blob.Settings {
	return blob.Settings{
		Mode:        c.Mode,
		Endpoint:    c.Endpoint,
		Bucket:      c.Bucket,
		ServiceKey:  c.ServiceKey,
		PublicBase:  c.PublicBase,
		ProxyPrefix: c.ProxyPrefix,
	}
}

// IngestConfig holds recording ingest configuration.
type IngestConfig struct {
	// Key, when set, is the bearer token required to record sessions.
	Key string `mapstructure:"key"`
	// MaxBodySize caps recording and attachment payloads in bytes.
	MaxBodySize int64 `mapstructure:"max_body_size" validate:"min=1"`
}

// ShareConfig holds share link configuration.
type ShareConfig struct {
	// Secret signs share tokens. Sharing is disabled when empty.
	Secret string `mapstructure:"secret"`
	// TTL is the share link lifetime in seconds.
	TTL int `mapstructure:"ttl" validate:"min=1,max=604800"`
}

// AIConfig holds summarization configuration.
type AIConfig struct {
	// APIKey authenticates against the completion API. Summaries are
	// disabled when empty.
	APIKey    string `mapstructure:"api_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens" validate:"min=1"`
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"port":         "server.port",
	"storage-mode": "storage.mode",
	"log-level":    "log.level",
	"log-format":   "log.format",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		// Use custom mapping if it exists, otherwise use flag name as-is
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

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5710)
	v.SetDefault("server.request_timeout", 60) // seconds

	v.SetDefault("service.cleanup_timeout", 30) // seconds

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "retrace.db")
	v.SetDefault("database.tables.sessions", "retrace_sessions")

	v.SetDefault("storage.mode", "memory")
	v.SetDefault("storage.proxy_prefix", blob.DefaultProxyPrefix)

	v.SetDefault("ingest.max_body_size", 10<<20)

	v.SetDefault("share.ttl", 86400) // seconds

	v.SetDefault("ai.endpoint", llm.DefaultEndpoint)
	v.SetDefault("ai.model", llm.DefaultModel)
	v.SetDefault("ai.max_tokens", llm.DefaultMaxTokens)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
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
		v.AddConfigPath("$HOME/.config/retrace")
		v.AddConfigPath("/etc/retrace")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("RETRACE")
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

	// 6. Overlay secret material
	if err := applySecrets(&cfg); err != nil {
		return nil, err
	}

	// 7. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applySecrets fills secret-bearing fields from the layered secret
// source. Environment secrets (RETRACE_SECRET_*) win over the configured
// secrets file; values set directly in the config are left alone.
func applySecrets(cfg *Config) error {
	store, err := secrets.NewStore(cfg.Secrets)
	if err != nil {
		return fmt.Errorf("load secrets: %w", err)
	}
	src := secrets.NewLayeredSource(secrets.NewEnvSource("RETRACE_SECRET"), store)

	overlay := func(target *string, name string) {
		if *target != "" {
			return
		}
		if value, err := src.Lookup(name); err == nil {
			*target = value
		}
	}

	overlay(&cfg.Storage.ServiceKey, "storage.service_key")
	overlay(&cfg.Share.Secret, "share.secret")
	overlay(&cfg.AI.APIKey, "ai.api_key")
	overlay(&cfg.Admin.PasswordHash, "admin.password_hash")

	return nil
}
