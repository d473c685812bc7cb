package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Redis        RedisConfig        `yaml:"redis"`
	SendGrid     SendGridConfig     `yaml:"sendgrid"`
	Notification NotificationConfig `yaml:"notification"`
	Log          LogConfig          `yaml:"log"`
	Currency     string             `yaml:"currency"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Mode           string   `yaml:"mode"` // gin mode: debug, release, test
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Name         string `yaml:"name"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
	Seed         bool   `yaml:"seed"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// RedisConfig is optional; an empty Addr disables the schedule cache.
type RedisConfig struct {
	Addr               string `yaml:"addr"`
	Password           string `yaml:"password"`
	DB                 int    `yaml:"db"`
	ScheduleTTLSeconds int    `yaml:"schedule_ttl_seconds"`
}

// SendGridConfig is optional; an empty APIKey disables the email channel.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

type NotificationConfig struct {
	QueueSize     int    `yaml:"queue_size"`
	MaxAttempts   int    `yaml:"max_attempts"`
	RetrySchedule string `yaml:"retry_schedule"` // cron spec with seconds
}

type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from a YAML file. A missing file is not an error:
// defaults and environment variables are used instead.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.Password == "" {
		c.Database.Password = "postgres"
	}
	if c.Database.Name == "" {
		c.Database.Name = "postgres"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Redis.ScheduleTTLSeconds == 0 {
		c.Redis.ScheduleTTLSeconds = 300
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Charge Desk"
	}
	if c.Notification.QueueSize == 0 {
		c.Notification.QueueSize = 256
	}
	if c.Notification.MaxAttempts == 0 {
		c.Notification.MaxAttempts = 5
	}
	if c.Notification.RetrySchedule == "" {
		c.Notification.RetrySchedule = "0 */5 * * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Currency == "" {
		c.Currency = "TZS"
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	if val := os.Getenv("PORT"); val != "" {
		c.Server.Port = val
	}
	if val := os.Getenv("GIN_MODE"); val != "" {
		c.Server.Mode = val
	}
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		c.Server.AllowedOrigins = strings.Split(val, ",")
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.Database.Port = port
		}
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Name = val
	}
	if val := os.Getenv("DB_SSLMODE"); val != "" {
		c.Database.SSLMode = val
	}
	if val := os.Getenv("DB_AUTO_MIGRATE"); val != "" {
		c.Database.AutoMigrate = val == "true"
	}
	if val := os.Getenv("DB_SEED"); val != "" {
		c.Database.Seed = val == "true"
	}

	if val := os.Getenv("JWT_SECRET"); val != "" {
		c.JWT.Secret = val
	}

	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.Redis.Addr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.Redis.Password = val
	}

	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.SendGrid.APIKey = val
	}
	if val := os.Getenv("SENDGRID_FROM_EMAIL"); val != "" {
		c.SendGrid.FromEmail = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		if c.Server.Mode == "release" {
			return fmt.Errorf("jwt.secret is required in release mode")
		}
		c.JWT.Secret = "default_super_secret_key" // development fallback only
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port out of range: %d", c.Database.Port)
	}
	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid.from_email is required when sendgrid.api_key is set")
	}
	if c.Notification.QueueSize < 1 {
		return fmt.Errorf("notification.queue_size must be positive")
	}
	if c.Redis.ScheduleTTLSeconds < 0 {
		return fmt.Errorf("redis.schedule_ttl_seconds must not be negative")
	}
	return nil
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}
