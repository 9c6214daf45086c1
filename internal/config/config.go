package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	License   LicenseConfig   `yaml:"license"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Admin     AdminConfig     `yaml:"admin"`
}

type ServerConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver"` // postgres или memory
	Postgres string `yaml:"postgres"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // json или text
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // дней
	Compress   bool   `yaml:"compress"`
}

type LicenseConfig struct {
	ServerURL   string        `yaml:"server_url"`
	ProductName string        `yaml:"product_name"`
	Key         string        `yaml:"key"`
	Timeout     time.Duration `yaml:"timeout"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // пусто: кэш в памяти
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type SchedulerConfig struct {
	// DeadlineSweep: расписание cron для перевода просроченных тендеров в review
	DeadlineSweep string `yaml:"deadline_sweep"`
}

type AdminConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

func defaults() *Config {
	return &Config{
		Server:    ServerConfig{Address: "0.0.0.0:8080", ShutdownTimeout: 10 * time.Second},
		Storage:   StorageConfig{Driver: "postgres"},
		Auth:      AuthConfig{TokenTTL: 24 * time.Hour},
		Log:       LogConfig{Level: "info", Format: "text", MaxSize: 100, MaxBackups: 5, MaxAge: 30},
		License:   LicenseConfig{ProductName: "TenderSystem", Timeout: 10 * time.Second, CacheTTL: 5 * time.Minute},
		Redis:     RedisConfig{Prefix: "tenderportal:"},
		Scheduler: SchedulerConfig{DeadlineSweep: "@every 1m"},
		Admin:     AdminConfig{FullName: "Administrator"},
	}
}

// Load читает .env (если есть), затем YAML-файл из CONFIG_FILE (если задан),
// затем переменные окружения. Каждый следующий источник переопределяет предыдущий.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.ShutdownTimeout = getEnvAsDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)

	cfg.Storage.Driver = getEnv("STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Postgres = getEnv("POSTGRES_CONN", cfg.Storage.Postgres)

	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.TokenTTL = getEnvAsDuration("TOKEN_TTL", cfg.Auth.TokenTTL)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)
	cfg.Log.FilePath = getEnv("LOG_FILE", cfg.Log.FilePath)
	cfg.Log.MaxSize = getEnvAsInt("LOG_MAX_SIZE", cfg.Log.MaxSize)
	cfg.Log.MaxBackups = getEnvAsInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAge = getEnvAsInt("LOG_MAX_AGE", cfg.Log.MaxAge)
	cfg.Log.Compress = getEnvAsBool("LOG_COMPRESS", cfg.Log.Compress)

	cfg.License.ServerURL = getEnv("LICENSE_SERVER_URL", cfg.License.ServerURL)
	cfg.License.ProductName = getEnv("LICENSE_PRODUCT_NAME", cfg.License.ProductName)
	cfg.License.Key = strings.TrimSpace(getEnv("LICENSE_KEY", cfg.License.Key))
	cfg.License.Timeout = getEnvAsDuration("LICENSE_TIMEOUT", cfg.License.Timeout)
	cfg.License.CacheTTL = getEnvAsDuration("LICENSE_CACHE_TTL", cfg.License.CacheTTL)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Prefix = getEnv("REDIS_PREFIX", cfg.Redis.Prefix)

	cfg.Scheduler.DeadlineSweep = getEnv("DEADLINE_SWEEP_SPEC", cfg.Scheduler.DeadlineSweep)

	cfg.Admin.Email = getEnv("ADMIN_EMAIL", cfg.Admin.Email)
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", cfg.Admin.Password)
	cfg.Admin.FullName = getEnv("ADMIN_FULL_NAME", cfg.Admin.FullName)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres":
		if c.Storage.Postgres == "" {
			return fmt.Errorf("POSTGRES_CONN env variable is not set")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET env variable is not set")
	}
	if c.License.Timeout <= 0 {
		return fmt.Errorf("license timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true"
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
