package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App struct {
		ENV string
	}

	Log struct {
		Level     string
		Format    string
		Component string
		Source    bool
	}

	DB struct {
		Driver       string
		DSN          string
		Host         string
		Port         string
		User         string
		Password     string
		Name         string
		MaxOpenConns int
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	GRPC struct {
		Host string
		Port string
	}

	HTTP struct {
		Host string
		Port string
	}

	// Swipe holds the knobs of the swipe/match engine.
	Swipe struct {
		DailyLimit       int
		Timezone         string
		ChargeDuplicates bool
	}

	// Storage points at the S3-compatible image host used for profile photos.
	Storage struct {
		Bucket          string
		Region          string
		Endpoint        string
		AccessKeyID     string
		SecretAccessKey string
		PublicBaseURL   string
	}

	Kafka struct {
		Brokers []string
		Topic   string
	}

	Dispatch struct {
		Enabled   bool
		Interval  time.Duration
		BatchSize int
	}
}

// New builds the config from the environment. A .env file in the working
// directory is loaded first when present; real env vars win over it.
func New() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.App.ENV = getEnvDefault("APP_ENV", "development")

	// Logger
	cfg.Log.Level = getEnvDefault("LOG_LEVEL", "info")
	cfg.Log.Format = getEnvDefault("LOG_FORMAT", "text")
	cfg.Log.Component = getEnvDefault("LOG_COMPONENT", "birdie")
	cfg.Log.Source = isTruthy(os.Getenv("LOG_SOURCE"))

	// Database
	cfg.DB.Driver = strings.ToLower(getEnvDefault("DB_DRIVER", "postgres"))
	cfg.DB.DSN = os.Getenv("DATABASE_URL")
	cfg.DB.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 20)
	if cfg.DB.DSN == "" {
		cfg.DB.Host = getEnvDefault("DB_HOST", "localhost")
		cfg.DB.User = getEnvDefault("DB_USER", "birdie")
		cfg.DB.Password = getEnvDefault("DB_PASSWORD", "birdie")
		cfg.DB.Name = getEnvDefault("DB_NAME", "birdie")

		switch cfg.DB.Driver {
		case "mysql":
			cfg.DB.Port = getEnvDefault("DB_PORT", "3306")
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		case "sqlite":
			cfg.DB.DSN = getEnvDefault("DB_PATH", "birdie.db")
		default:
			cfg.DB.Port = getEnvDefault("DB_PORT", "5432")
			cfg.DB.DSN = fmt.Sprintf(
				"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
				cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name,
			)
		}
	}

	// Redis
	cfg.Redis.Addr = getEnvDefault("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnvDefault("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// gRPC
	cfg.GRPC.Host = getEnvDefault("GRPC_HOST", "127.0.0.1")
	cfg.GRPC.Port = getEnvDefault("GRPC_PORT", "50051")

	// HTTP
	cfg.HTTP.Host = getEnvDefault("HTTP_HOST", "0.0.0.0")
	cfg.HTTP.Port = getEnvDefault("PORT", "3000")

	// Swipe engine
	cfg.Swipe.DailyLimit = getEnvInt("SWIPE_DAILY_LIMIT", 20)
	cfg.Swipe.Timezone = getEnvDefault("SWIPE_TIMEZONE", "Local")
	cfg.Swipe.ChargeDuplicates = isTruthy(getEnvDefault("SWIPE_CHARGE_DUPLICATES", "true"))

	// Image host
	cfg.Storage.Bucket = os.Getenv("S3_BUCKET")
	cfg.Storage.Region = getEnvDefault("S3_REGION", "auto")
	cfg.Storage.Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.Storage.AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.Storage.SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.Storage.PublicBaseURL = strings.TrimRight(os.Getenv("S3_PUBLIC_BASE_URL"), "/")

	// Notification delivery
	cfg.Kafka.Brokers = splitList(getEnvDefault("KAFKA_BROKERS", "localhost:9092"))
	cfg.Kafka.Topic = getEnvDefault("KAFKA_NOTIFICATIONS_TOPIC", "birdie.notifications")
	cfg.Dispatch.Enabled = isTruthy(os.Getenv("DISPATCH_ENABLED"))
	cfg.Dispatch.Interval = getEnvDuration("DISPATCH_INTERVAL", 5*time.Second)
	cfg.Dispatch.BatchSize = getEnvInt("DISPATCH_BATCH_SIZE", 100)

	return cfg
}

// Location resolves the configured swipe timezone, falling back to the
// server's local zone when the name is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Swipe.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnvDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if v, err := strconv.Atoi(getEnvDefault(k, "")); err == nil {
		return v
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvDefault(k, "")); err == nil && v > 0 {
		return v
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
