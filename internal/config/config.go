package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	S3      S3Config
	App     AppConfig
	Client  ClientConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StorageConfig struct {
	// Backend is "memory" or "postgres".
	Backend string
	DSN     string
}

type S3Config struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	BucketName      string
	Region          string
}

type AppConfig struct {
	MaxUploadSize    int64
	AllowedFormats   []string
	DefaultTolerance float64
	DefaultClass     string
}

// ClientConfig is used by the operator console to reach the server.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

type LogConfig struct {
	Level    string
	Encoding string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("STORAGE_BACKEND", "memory")
	v.SetDefault("STORAGE_DSN", "host=localhost user=measuring password=measuring dbname=measuring port=5432 sslmode=disable")
	v.SetDefault("S3_ENABLED", false)
	v.SetDefault("S3_ENDPOINT", "http://localhost:9000")
	v.SetDefault("S3_ACCESS_KEY_ID", "minioadmin")
	v.SetDefault("S3_SECRET_ACCESS_KEY", "minioadmin")
	v.SetDefault("S3_USE_SSL", false)
	v.SetDefault("S3_BUCKET_NAME", "drawings")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("APP_MAX_UPLOAD_SIZE", 20*1024*1024) // 20MB
	v.SetDefault("APP_ALLOWED_FORMATS", []string{"png", "jpeg", "gif", "bmp", "tiff", "webp"})
	v.SetDefault("APP_DEFAULT_TOLERANCE", 0.1)
	v.SetDefault("APP_DEFAULT_CLASS", "medium")
	v.SetDefault("CLIENT_BASE_URL", "http://localhost:8080")
	v.SetDefault("CLIENT_TIMEOUT", 15*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")

	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:         v.GetString("SERVER_HOST"),
			Port:         v.GetString("SERVER_PORT"),
			ReadTimeout:  v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("SERVER_WRITE_TIMEOUT"),
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(v.GetString("STORAGE_BACKEND")),
			DSN:     v.GetString("STORAGE_DSN"),
		},
		S3: S3Config{
			Enabled:         v.GetBool("S3_ENABLED"),
			Endpoint:        v.GetString("S3_ENDPOINT"),
			AccessKeyID:     v.GetString("S3_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("S3_SECRET_ACCESS_KEY"),
			UseSSL:          v.GetBool("S3_USE_SSL"),
			BucketName:      v.GetString("S3_BUCKET_NAME"),
			Region:          v.GetString("S3_REGION"),
		},
		App: AppConfig{
			MaxUploadSize:    v.GetInt64("APP_MAX_UPLOAD_SIZE"),
			AllowedFormats:   v.GetStringSlice("APP_ALLOWED_FORMATS"),
			DefaultTolerance: v.GetFloat64("APP_DEFAULT_TOLERANCE"),
			DefaultClass:     v.GetString("APP_DEFAULT_CLASS"),
		},
		Client: ClientConfig{
			BaseURL: v.GetString("CLIENT_BASE_URL"),
			Timeout: v.GetDuration("CLIENT_TIMEOUT"),
		},
		Log: LogConfig{
			Level:    v.GetString("LOG_LEVEL"),
			Encoding: v.GetString("LOG_ENCODING"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Backend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.App.DefaultTolerance < 0 {
		return fmt.Errorf("default tolerance must not be negative, got %v", c.App.DefaultTolerance)
	}
	if c.App.MaxUploadSize <= 0 {
		return fmt.Errorf("max upload size must be positive, got %d", c.App.MaxUploadSize)
	}
	return nil
}
