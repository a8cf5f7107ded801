package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Site      SiteConfig      `mapstructure:"site"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// MaxUploadBytes caps a whole submit request body.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	// Driver is "sqlite3" or "postgres".
	Driver         string `mapstructure:"driver"`
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	SlugTTL  time.Duration `mapstructure:"slug_ttl"`
}

type StorageConfig struct {
	// Driver is "local" or "s3".
	Driver        string `mapstructure:"driver"`
	LocalDir      string `mapstructure:"local_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	S3Bucket      string `mapstructure:"s3_bucket"`
	S3Region      string `mapstructure:"s3_region"`
	S3Endpoint    string `mapstructure:"s3_endpoint"`
	S3AccessKey   string `mapstructure:"s3_access_key"`
	S3SecretKey   string `mapstructure:"s3_secret_key"`
	S3PathStyle   bool   `mapstructure:"s3_path_style"`
}

type AuthConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret"`
	GoTrueURL   string `mapstructure:"gotrue_url"`
	GoTrueKey   string `mapstructure:"gotrue_key"`
	RemoteCheck bool   `mapstructure:"remote_check"`
}

type StripeConfig struct {
	SecretKey        string `mapstructure:"secret_key"`
	WebhookSecret    string `mapstructure:"webhook_secret"`
	UnlimitedPriceID string `mapstructure:"unlimited_price_id"`
}

type SiteConfig struct {
	URL string `mapstructure:"url"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type WorkerConfig struct {
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
	// Endpoint is an OTLP gRPC collector, host:port.
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// env and defaults are enough to boot
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.max_upload_bytes", 1<<30)

	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.url", "file:data/filedrop.db")
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("redis.slug_ttl", 5*time.Minute)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "data/uploads")
	v.SetDefault("storage.public_base_url", "http://localhost:8080/files")
	v.SetDefault("storage.s3_region", "us-east-1")

	v.SetDefault("stripe.unlimited_price_id", "price_unlimited")
	v.SetDefault("site.url", "http://localhost:3000")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)

	v.SetDefault("worker.reconcile_schedule", "@every 1h")
	v.SetDefault("telemetry.service_name", "filedrop")
	v.SetDefault("telemetry.endpoint", "localhost:4317")
	v.SetDefault("telemetry.insecure", true)

	// AutomaticEnv only resolves keys viper already knows about
	for _, key := range []string{
		"redis.addr", "redis.password", "redis.db",
		"storage.s3_bucket", "storage.s3_endpoint", "storage.s3_access_key", "storage.s3_secret_key", "storage.s3_path_style",
		"auth.jwt_secret", "auth.gotrue_url", "auth.gotrue_key", "auth.remote_check",
		"stripe.secret_key", "stripe.webhook_secret", "stripe.unlimited_price_id", "site.url",
		"logging.file_path", "logging.compress", "telemetry.enabled", "telemetry.endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
