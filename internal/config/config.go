package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	// Server налаштування
	Port     string
	Host     string
	Env      string
	LogLevel string

	// Сховище: mongo або memory (лише для розробки)
	StorageDriver string

	// MongoDB налаштування
	MongoURI     string
	DatabaseName string
	MongoTimeout int

	// JWT налаштування
	JWTSecret string

	// CORS
	AllowedOrigins []string

	// Rate limit
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Redis для розсилки сповіщень між інстансами
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

const (
	StorageMongo  = "mongo"
	StorageMemory = "memory"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", StorageMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "civic_reports")
	v.SetDefault("MONGO_TIMEOUT", 10)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:3001,http://localhost:3002")
	v.SetDefault("RATE_LIMIT_ENABLED", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", time.Minute)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
}

// Load читає .env (якщо є) і змінні оточення.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:              v.GetString("PORT"),
		Host:              v.GetString("HOST"),
		Env:               v.GetString("ENV"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		StorageDriver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		MongoURI:          v.GetString("MONGO_URI"),
		DatabaseName:      v.GetString("DATABASE_NAME"),
		MongoTimeout:      v.GetInt("MONGO_TIMEOUT"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimitEnabled:  v.GetBool("RATE_LIMIT_ENABLED"),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		RedisEnabled:      v.GetBool("REDIS_ENABLED"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		RedisDB:           v.GetInt("REDIS_DB"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.StorageDriver != StorageMongo && c.StorageDriver != StorageMemory {
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.IsProduction() && c.StorageDriver == StorageMemory {
		return errors.New("memory storage is not allowed in production")
	}
	if c.MongoTimeout <= 0 {
		c.MongoTimeout = 10
	}
	if c.RateLimitEnabled && (c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0) {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
