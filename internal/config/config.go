package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Worker     WorkerConfig     `mapstructure:"worker" yaml:"worker"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics"`
	Telegram   TelegramConfig   `mapstructure:"telegram" yaml:"telegram"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage"`
	Redis      RedisConfig      `mapstructure:"redis" yaml:"redis"`
	LeafFlow   LeafFlowConfig   `mapstructure:"leafflow" yaml:"leafflow"`
	Cloudinary CloudinaryConfig `mapstructure:"cloudinary" yaml:"cloudinary"`
	Images     ImagesConfig     `mapstructure:"images" yaml:"images"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// WorkerConfig controls the job runtime. VisibilityTimeout is the lease a
// worker holds on a claimed task before another worker may pick it up.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	PollInterval      time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxIdleTime       time.Duration `mapstructure:"max_idle_time" yaml:"max_idle_time"`
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" yaml:"visibility_timeout"`
	Queues            []string      `mapstructure:"queues" yaml:"queues"`
	StatsSchedule     string        `mapstructure:"stats_schedule" yaml:"stats_schedule"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address" yaml:"address"`
}

type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token" yaml:"bot_token"`
	AdminChatID    int64         `mapstructure:"admin_chat_id" yaml:"admin_chat_id"`
	BaseURL        string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// StorageConfig selects the object store that receives image variants.
// Driver is "s3" (any S3-compatible endpoint) or "gcs".
type StorageConfig struct {
	Driver string    `mapstructure:"driver" yaml:"driver"`
	S3     S3Config  `mapstructure:"s3" yaml:"s3"`
	GCS    GCSConfig `mapstructure:"gcs" yaml:"gcs"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Region    string `mapstructure:"region" yaml:"region"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint"`
}

// RedisConfig points at the result backend. An empty Host disables it.
type RedisConfig struct {
	Host      string        `mapstructure:"host" yaml:"host"`
	Port      int           `mapstructure:"port" yaml:"port"`
	Password  string        `mapstructure:"password" yaml:"password"`
	DB        int           `mapstructure:"db" yaml:"db"`
	ResultTTL time.Duration `mapstructure:"result_ttl" yaml:"result_ttl"`
}

type LeafFlowConfig struct {
	APIBaseURL    string        `mapstructure:"api_base_url" yaml:"api_base_url"`
	InternalToken string        `mapstructure:"internal_token" yaml:"internal_token"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type CloudinaryConfig struct {
	CloudName string `mapstructure:"cloud_name" yaml:"cloud_name"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	APISecret string `mapstructure:"api_secret" yaml:"api_secret"`
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// ImagesConfig is the fixed variant table. Order matters: the transform
// service reports results positionally in this order.
type ImagesConfig struct {
	Variants        []Variant     `mapstructure:"variants" yaml:"variants"`
	OutputFormat    string        `mapstructure:"output_format" yaml:"output_format"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout" yaml:"download_timeout"`
}

type Variant struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Width   int    `mapstructure:"width" yaml:"width"`
	Height  int    `mapstructure:"height" yaml:"height"`
	Quality int    `mapstructure:"quality" yaml:"quality"`
}

// DefaultVariants mirrors the catalogue's thumb/md/lg sizes.
func DefaultVariants() []Variant {
	return []Variant{
		{Name: "thumb", Width: 150, Height: 150, Quality: 80},
		{Name: "md", Width: 600, Height: 600, Quality: 85},
		{Name: "lg", Width: 1200, Height: 1200, Quality: 90},
	}
}

// VariantNames returns the configured names in order.
func (c ImagesConfig) VariantNames() []string {
	names := make([]string, len(c.Variants))
	for i, v := range c.Variants {
		names[i] = v.Name
	}
	return names
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")

	v.SetDefault("database.url", "")

	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("worker.poll_interval", "2s")
	v.SetDefault("worker.max_idle_time", "30s")
	v.SetDefault("worker.visibility_timeout", "30m")
	v.SetDefault("worker.queues", []string{"notifications", "images"})
	v.SetDefault("worker.stats_schedule", "@every 1m")

	v.SetDefault("metrics.address", ":9090")

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.admin_chat_id", 0)
	v.SetDefault("telegram.base_url", "https://api.telegram.org")
	v.SetDefault("telegram.timeout", "10s")
	v.SetDefault("telegram.connect_timeout", "5s")

	v.SetDefault("storage.driver", "s3")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", false)
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("storage.gcs.endpoint", "")

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 1)
	v.SetDefault("redis.result_ttl", "24h")

	v.SetDefault("leafflow.api_base_url", "")
	v.SetDefault("leafflow.internal_token", "")
	v.SetDefault("leafflow.timeout", "30s")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.api_key", "")
	v.SetDefault("cloudinary.api_secret", "")
	v.SetDefault("cloudinary.namespace", "leaf-flow")

	v.SetDefault("images.output_format", "webp")
	v.SetDefault("images.download_timeout", "60s")
}

// Load reads config.yaml (optional) and environment variables. Env keys are
// the upper-cased dotted paths, e.g. TELEGRAM_BOT_TOKEN or STORAGE_S3_BUCKET.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/leafflow-worker")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Images.Variants) == 0 {
		cfg.Images.Variants = DefaultVariants()
	}

	return &cfg, nil
}

// ValidateDatabase checks only what queue maintenance commands need.
func (c *Config) ValidateDatabase() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url (DATABASE_URL) is required")
	}
	return nil
}

// Validate checks everything the worker needs to run.
func (c *Config) Validate() error {
	var errs []error
	if err := c.ValidateDatabase(); err != nil {
		errs = append(errs, err)
	}

	if c.Worker.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("worker.concurrency must be >= 1, got %d", c.Worker.Concurrency))
	}
	if c.Worker.VisibilityTimeout <= 0 {
		errs = append(errs, errors.New("worker.visibility_timeout must be positive"))
	}
	if len(c.Worker.Queues) == 0 {
		errs = append(errs, errors.New("worker.queues must not be empty"))
	}

	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram.bot_token (TELEGRAM_BOT_TOKEN) is required"))
	}
	if c.Telegram.AdminChatID == 0 {
		errs = append(errs, errors.New("telegram.admin_chat_id (TELEGRAM_ADMIN_CHAT_ID) is required"))
	}

	switch c.Storage.Driver {
	case "s3":
		if c.Storage.S3.Endpoint == "" || c.Storage.S3.Bucket == "" {
			errs = append(errs, errors.New("storage.s3.endpoint and storage.s3.bucket are required for the s3 driver"))
		}
	case "gcs":
		if c.Storage.GCS.Bucket == "" {
			errs = append(errs, errors.New("storage.gcs.bucket is required for the gcs driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}

	if c.LeafFlow.APIBaseURL == "" || c.LeafFlow.InternalToken == "" {
		errs = append(errs, errors.New("leafflow.api_base_url and leafflow.internal_token are required"))
	}
	if c.Cloudinary.CloudName == "" || c.Cloudinary.APIKey == "" || c.Cloudinary.APISecret == "" {
		errs = append(errs, errors.New("cloudinary.cloud_name, cloudinary.api_key and cloudinary.api_secret are required"))
	}

	seen := map[string]bool{}
	for _, variant := range c.Images.Variants {
		if variant.Name == "" || variant.Width <= 0 || variant.Height <= 0 {
			errs = append(errs, fmt.Errorf("invalid image variant %+v", variant))
		}
		if seen[variant.Name] {
			errs = append(errs, fmt.Errorf("duplicate image variant %q", variant.Name))
		}
		seen[variant.Name] = true
	}
	if c.Images.OutputFormat == "" {
		errs = append(errs, errors.New("images.output_format is required"))
	}

	return errors.Join(errs...)
}
