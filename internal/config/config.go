package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`
	DBMaxConns    int    `env:"DB_MAX_CONNS" envDefault:"10"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"json"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	RedisPool int    `env:"REDIS_POOL_SIZE" envDefault:"10"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"5"`
	WebhookRetryDelay time.Duration `env:"WEBHOOK_RETRY_DELAY" envDefault:"1s"`

	// Location tracker
	LocationMinInterval   time.Duration `env:"LOCATION_MIN_INTERVAL" envDefault:"5s"`
	LocationStaleAfter    time.Duration `env:"LOCATION_STALE_AFTER" envDefault:"60s"`
	LocationFlushInterval time.Duration `env:"LOCATION_FLUSH_INTERVAL" envDefault:"1s"`

	// Event fan-out
	EventSubscriberQueue int `env:"EVENT_SUBSCRIBER_QUEUE" envDefault:"256"`
	EventLogRetention    int `env:"EVENT_LOG_RETENTION" envDefault:"10000"`

	// Optional integrations
	NATSURL        string `env:"NATS_URL"`
	NATSSubject    string `env:"NATS_SUBJECT_PREFIX" envDefault:"fireguard.events"`
	MQTTBrokerURL  string `env:"MQTT_BROKER_URL"`
	MQTTClientID   string `env:"MQTT_CLIENT_ID" envDefault:"fireguard-dispatch"`
	MQTTTopic      string `env:"MQTT_LOCATION_TOPIC" envDefault:"units/+/location"`
	MetricsEnabled bool   `env:"METRICS_ENABLED" envDefault:"true"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		StorageDriver:         strings.ToLower(getEnv("STORAGE_DRIVER", StoragePostgres)),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		DBMaxConns:            getEnvAsInt("DB_MAX_CONNS", 10),
		HTTPPort:              getEnv("HTTP_PORT", "8080"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             strings.ToLower(getEnv("LOG_FORMAT", "json")),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getEnvAsInt("REDIS_DB", 0),
		RedisPool:             getEnvAsInt("REDIS_POOL_SIZE", 10),
		WebhookURL:            os.Getenv("WEBHOOK_URL"),
		WebhookSecret:         os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:        getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:     getEnvAsInt("WEBHOOK_MAX_RETRIES", 5),
		WebhookRetryDelay:     getEnvAsDuration("WEBHOOK_RETRY_DELAY", time.Second),
		LocationMinInterval:   getEnvAsDuration("LOCATION_MIN_INTERVAL", 5*time.Second),
		LocationStaleAfter:    getEnvAsDuration("LOCATION_STALE_AFTER", 60*time.Second),
		LocationFlushInterval: getEnvAsDuration("LOCATION_FLUSH_INTERVAL", time.Second),
		EventSubscriberQueue:  getEnvAsInt("EVENT_SUBSCRIBER_QUEUE", 256),
		EventLogRetention:     getEnvAsInt("EVENT_LOG_RETENTION", 10000),
		NATSURL:               os.Getenv("NATS_URL"),
		NATSSubject:           getEnv("NATS_SUBJECT_PREFIX", "fireguard.events"),
		MQTTBrokerURL:         os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:          getEnv("MQTT_CLIENT_ID", "fireguard-dispatch"),
		MQTTTopic:             getEnv("MQTT_LOCATION_TOPIC", "units/+/location"),
		MetricsEnabled:        getEnvAsBool("METRICS_ENABLED", true),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL environment variable is required for the postgres storage driver")
		}
	case StorageMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q, expected postgres or memory", cfg.StorageDriver)
	}
	if cfg.LocationMinInterval < 0 {
		return nil, fmt.Errorf("LOCATION_MIN_INTERVAL must not be negative")
	}
	if cfg.LocationStaleAfter <= 0 || cfg.LocationFlushInterval <= 0 {
		return nil, fmt.Errorf("LOCATION_STALE_AFTER and LOCATION_FLUSH_INTERVAL must be positive")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
