package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config содержит настройки Fulfillment Worker
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Triage   TriageConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port string // health, /triage и /metrics
}

// DatabaseConfig - PostgreSQL с журналом order_triage
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig - подписка на order_events
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	GroupID  string
	MinBytes int
	MaxBytes int
}

type TriageConfig struct {
	StaleAfter       time.Duration // через сколько needs_triage уходит в escalated
	EscalateSchedule string        // пятипольное cron выражение
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8090"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "fulfillment"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:  strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			Topic:    getEnv("KAFKA_ORDER_TOPIC", "order_events"),
			GroupID:  getEnv("KAFKA_GROUP_ID", "fulfillment-worker-group"),
			MinBytes: getEnvInt("KAFKA_MIN_BYTES", 1),
			MaxBytes: getEnvInt("KAFKA_MAX_BYTES", 10e6),
		},
		Triage: TriageConfig{
			StaleAfter:       getEnvDuration("TRIAGE_STALE_AFTER", 2*time.Hour),
			EscalateSchedule: getEnv("TRIAGE_ESCALATE_SCHEDULE", "*/15 * * * *"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}, nil
}

// DSN возвращает строку подключения к PostgreSQL в формате libpq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func (c *ServerConfig) Address() string {
	return ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
