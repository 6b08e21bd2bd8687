package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/timmy/quill/internal/storage"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
	Generation GenerationConfig `mapstructure:"generation"`
	Topic      TopicConfig      `mapstructure:"topic"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres
	Path            string        `mapstructure:"path"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// ProvidersConfig lists the provider families in preference order.
type ProvidersConfig struct {
	Order     []string       `mapstructure:"order"`
	OpenAI    ProviderConfig `mapstructure:"openai"`
	Anthropic ProviderConfig `mapstructure:"anthropic"`
}

type GenerationConfig struct {
	DefaultModel        string        `mapstructure:"default_model"`
	DefaultTargetLength int           `mapstructure:"default_target_length"`
	Tolerance           int           `mapstructure:"tolerance"`
	OutlineTimeout      time.Duration `mapstructure:"outline_timeout"`
	ArticleTimeout      time.Duration `mapstructure:"article_timeout"`
	CorrectionTimeout   time.Duration `mapstructure:"correction_timeout"`
	MaxConcurrent       int           `mapstructure:"max_concurrent"`
	Preflight           bool          `mapstructure:"preflight"`
}

type TopicConfig struct {
	SerpAPIKey string        `mapstructure:"serp_api_key"`
	Endpoint   string        `mapstructure:"endpoint"`
	Language   string        `mapstructure:"language"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type NotifyConfig struct {
	WebhookURL   string        `mapstructure:"webhook_url"`
	RedisURL     string        `mapstructure:"redis_url"`
	RedisChannel string        `mapstructure:"redis_channel"`
	QueueSize    int           `mapstructure:"queue_size"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Type      string `mapstructure:"type"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Prefix    string `mapstructure:"prefix"`
	PublicURL string `mapstructure:"public_url"`
}

// StorageConfig converts the archive section into an S3 client configuration.
func (a ArchiveConfig) StorageConfig() *storage.S3Config {
	return &storage.S3Config{
		Type:      storage.StorageType(a.Type),
		Endpoint:  a.Endpoint,
		AccessKey: a.AccessKey,
		SecretKey: a.SecretKey,
		UseSSL:    a.UseSSL,
		Bucket:    a.Bucket,
		Region:    a.Region,
		PublicURL: a.PublicURL,
	}
}

// Load reads configuration from an optional YAML file, .env and the environment.
// Parameters:
//   - configPath: explicit config file; empty searches ./configs and the working directory.
// Returns:
//   - *Config: merged configuration with provider credentials resolved.
//   - error: non-nil if the file exists but cannot be parsed.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets and deployment endpoints
	_ = v.BindEnv("database.url", "DATABASE_URL")
	_ = v.BindEnv("providers.openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("providers.openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("providers.anthropic.api_key", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("providers.anthropic.base_url", "ANTHROPIC_BASE_URL")
	_ = v.BindEnv("generation.default_model", "DEFAULT_MODEL")
	_ = v.BindEnv("topic.serp_api_key", "SERP_API_KEY")
	_ = v.BindEnv("notify.webhook_url", "NOTIFY_WEBHOOK_URL")
	_ = v.BindEnv("notify.redis_url", "REDIS_URL")
	_ = v.BindEnv("archive.endpoint", "S3_ENDPOINT")
	_ = v.BindEnv("archive.access_key", "S3_ACCESS_KEY")
	_ = v.BindEnv("archive.secret_key", "S3_SECRET_KEY")
	_ = v.BindEnv("archive.bucket", "S3_BUCKET")
	_ = v.BindEnv("archive.region", "S3_REGION")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Providers.OpenAI.Family = FamilyOpenAI
	cfg.Providers.Anthropic.Family = FamilyAnthropic
	cfg.Providers.OpenAI.ResolveEnvVars()
	cfg.Providers.Anthropic.ResolveEnvVars()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/quill.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("providers.order", []string{FamilyOpenAI, FamilyAnthropic})
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.timeout", 60*time.Second)
	v.SetDefault("providers.openai.max_retries", 2)
	v.SetDefault("providers.openai.requests_per_second", 2.0)
	v.SetDefault("providers.anthropic.timeout", 60*time.Second)
	v.SetDefault("providers.anthropic.max_retries", 2)
	v.SetDefault("providers.anthropic.requests_per_second", 2.0)

	v.SetDefault("generation.default_model", "gpt-4o-mini")
	v.SetDefault("generation.default_target_length", 5000)
	v.SetDefault("generation.tolerance", 200)
	v.SetDefault("generation.outline_timeout", 60*time.Second)
	v.SetDefault("generation.article_timeout", 60*time.Second)
	v.SetDefault("generation.correction_timeout", 45*time.Second)
	v.SetDefault("generation.max_concurrent", 4)
	v.SetDefault("generation.preflight", true)

	v.SetDefault("topic.endpoint", "https://serpapi.com/search")
	v.SetDefault("topic.language", "en")
	v.SetDefault("topic.timeout", 15*time.Second)

	v.SetDefault("notify.redis_channel", "quill:events")
	v.SetDefault("notify.queue_size", 64)
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.bucket", "quill-articles")
	v.SetDefault("archive.prefix", "articles")
}
