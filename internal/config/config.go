package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config structure represents the application configuration
type Config struct {
	Server struct {
		Port        string `yaml:"port" env:"SERVER_PORT"`
		Mode        string `yaml:"mode" env:"SERVER_MODE"`
		PublicURL   string `yaml:"public_url" env:"SERVER_PUBLIC_URL"`
		StoragePath string `yaml:"storage_path" env:"SERVER_STORAGE_PATH"`
	} `yaml:"server"`

	Database struct {
		Host            string `yaml:"host" env:"DB_HOST"`
		Port            string `yaml:"port" env:"DB_PORT"`
		User            string `yaml:"user" env:"DB_USER"`
		Password        string `yaml:"password" env:"DB_PASSWORD"`
		DBName          string `yaml:"dbname" env:"DB_NAME"`
		SSLMode         string `yaml:"sslmode" env:"DB_SSLMODE"`
		MaxIdleConns    int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS"`
		MaxOpenConns    int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`
		MigrationsDir   string `yaml:"migrations_dir" env:"DB_MIGRATIONS_DIR"`
	} `yaml:"database"`

	JWT struct {
		Secret         string `yaml:"secret" env:"JWT_SECRET"`
		Issuer         string `yaml:"issuer" env:"JWT_ISSUER"`
		AccessTokenTTL string `yaml:"access_token_ttl" env:"JWT_ACCESS_TOKEN_TTL"`
	} `yaml:"jwt"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"`
	} `yaml:"logging"`

	SMTP struct {
		Host      string `yaml:"host" env:"SMTP_HOST"`
		Port      int    `yaml:"port" env:"SMTP_PORT"`
		Username  string `yaml:"username" env:"SMTP_USERNAME"`
		Password  string `yaml:"password" env:"SMTP_PASSWORD"`
		FromName  string `yaml:"from_name" env:"SMTP_FROM_NAME"`
		FromEmail string `yaml:"from_email" env:"SMTP_FROM_EMAIL"`
		UseTLS    bool   `yaml:"use_tls" env:"SMTP_USE_TLS"`
	} `yaml:"smtp"`

	Notifications struct {
		QueueSize     int     `yaml:"queue_size" env:"NOTIFY_QUEUE_SIZE"`
		Workers       int     `yaml:"workers" env:"NOTIFY_WORKERS"`
		RatePerSecond float64 `yaml:"rate_per_second" env:"NOTIFY_RATE_PER_SECOND"`
	} `yaml:"notifications"`

	Storage struct {
		// Backend is "local" or "s3"
		Backend   string `yaml:"backend" env:"STORAGE_BACKEND"`
		Bucket    string `yaml:"bucket" env:"STORAGE_S3_BUCKET"`
		Region    string `yaml:"region" env:"STORAGE_S3_REGION"`
		Endpoint  string `yaml:"endpoint" env:"STORAGE_S3_ENDPOINT"`
		AccessKey string `yaml:"access_key" env:"STORAGE_S3_ACCESS_KEY"`
		SecretKey string `yaml:"secret_key" env:"STORAGE_S3_SECRET_KEY"`
		PublicURL string `yaml:"public_url" env:"STORAGE_S3_PUBLIC_URL"`
	} `yaml:"storage"`

	Meeting struct {
		Enabled      bool     `yaml:"enabled" env:"ZOOM_ENABLED"`
		AccountID    string   `yaml:"account_id" env:"ZOOM_ACCOUNT_ID"`
		ClientID     string   `yaml:"client_id" env:"ZOOM_CLIENT_ID"`
		ClientSecret string   `yaml:"client_secret" env:"ZOOM_CLIENT_SECRET"`
		UserEmail    string   `yaml:"user_email" env:"ZOOM_USER_EMAIL"`
		APIBaseURL   string   `yaml:"api_base_url" env:"ZOOM_API_BASE_URL"`
		TokenURL     string   `yaml:"token_url" env:"ZOOM_TOKEN_URL"`
		Timeout      string   `yaml:"timeout" env:"ZOOM_TIMEOUT"`
		EventTypes   []string `yaml:"event_types" env:"ZOOM_EVENT_TYPES"`
	} `yaml:"meeting"`

	Recommendations struct {
		CommunityLimit int   `yaml:"community_limit" env:"RECOMMEND_COMMUNITY_LIMIT"`
		UserLimit      int   `yaml:"user_limit" env:"RECOMMEND_USER_LIMIT"`
		MaxLimit       int   `yaml:"max_limit" env:"RECOMMEND_MAX_LIMIT"`
		TieSeed        int64 `yaml:"tie_seed" env:"RECOMMEND_TIE_SEED"`
	} `yaml:"recommendations"`
}

// LoadConfig loads configuration from a file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := processStructFields(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	config.Server.Port = "8080"
	config.Server.Mode = "development"
	config.Server.PublicURL = "http://localhost:8080"
	config.Server.StoragePath = "uploads"

	config.Database.Host = "localhost"
	config.Database.Port = "5432"
	config.Database.User = "postgres"
	config.Database.Password = "postgres"
	config.Database.DBName = "unihub"
	config.Database.SSLMode = "disable"
	config.Database.MaxIdleConns = 5
	config.Database.MaxOpenConns = 20
	config.Database.ConnMaxLifetime = "1h"
	config.Database.MigrationsDir = "migrations"

	config.JWT.Issuer = "unihub.app"
	config.JWT.AccessTokenTTL = "24h"

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	config.SMTP.Port = 587
	config.SMTP.FromName = "UniHub"
	config.SMTP.FromEmail = "no-reply@unihub.app"

	config.Notifications.QueueSize = 256
	config.Notifications.Workers = 2
	config.Notifications.RatePerSecond = 5

	config.Storage.Backend = "local"

	config.Meeting.APIBaseURL = "https://api.zoom.us/v2"
	config.Meeting.TokenURL = "https://zoom.us/oauth/token"
	config.Meeting.Timeout = "10s"
	config.Meeting.EventTypes = []string{"meeting", "webinar"}

	config.Recommendations.CommunityLimit = 5
	config.Recommendations.UserLimit = 6
	config.Recommendations.MaxLimit = 50
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	if config.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if _, err := time.ParseDuration(config.JWT.AccessTokenTTL); err != nil {
		return fmt.Errorf("invalid JWT access token TTL: %w", err)
	}

	if _, err := time.ParseDuration(config.Database.ConnMaxLifetime); err != nil {
		return fmt.Errorf("invalid database connection lifetime: %w", err)
	}

	switch strings.ToLower(config.Storage.Backend) {
	case "local":
	case "s3":
		if config.Storage.Bucket == "" || config.Storage.Region == "" {
			return fmt.Errorf("s3 storage requires bucket and region")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", config.Storage.Backend)
	}

	if config.Meeting.Enabled {
		if config.Meeting.AccountID == "" || config.Meeting.ClientID == "" || config.Meeting.ClientSecret == "" {
			return fmt.Errorf("meeting integration requires account_id, client_id and client_secret")
		}
		if _, err := time.ParseDuration(config.Meeting.Timeout); err != nil {
			return fmt.Errorf("invalid meeting timeout: %w", err)
		}
	}

	if config.Notifications.Workers < 1 {
		return fmt.Errorf("notifications.workers must be at least 1")
	}

	r := config.Recommendations
	if r.CommunityLimit < 1 || r.UserLimit < 1 || r.MaxLimit < r.CommunityLimit || r.MaxLimit < r.UserLimit {
		return fmt.Errorf("recommendation limits must be positive and not exceed max_limit")
	}

	return nil
}

// GetPostgresConnectionString returns postgres connection string
func (c *Config) GetPostgresConnectionString() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.DBName,
		sslMode,
	)
}

// IsProduction reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Server.Mode, "production")
}
