package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config - настройки Storefront Service
type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	JWT     JWTConfig
	Order   OrderConfig
	Session SessionConfig
	Gate    GateConfig
	Cron    CronConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	AllowOrigins []string      // пусто = любые http(s) источники
	CartSettle   time.Duration // сколько ответ на мутацию корзины ждет свежий снапшот
}

// StoreConfig - документное хранилище.
// Driver: mongo (нужен replica set для change streams) или memory.
type StoreConfig struct {
	Driver   string
	MongoURI string
	Database string
}

// RedisConfig - справочник аптек и черновики заказов
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	DraftTTL     time.Duration
	DirectoryTTL time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	OrderTopic    string // ORDER_CREATED, ключ - id заказа
	ReviewTopic   string // REVIEW_CREATED/REVIEW_DELETED, ключ - id товара
	ConsumerGroup string
}

type JWTConfig struct {
	Secret string
}

// OrderConfig - значения по умолчанию для сборки заказа
type OrderConfig struct {
	DefaultDeliveryFee float64
	DefaultTax         float64
}

type SessionConfig struct {
	IdleTTL      time.Duration
	LoadTimeout  time.Duration
	AwaitTimeout time.Duration // сколько гейт ждет загрузки аккаунта
}

type GateConfig struct {
	RoutesFile string // YAML с таблицей назначений, пусто = встроенная
}

// CronConfig - расписания в 5-польном формате, "off" отключает задачу
type CronConfig struct {
	RatingReconcile  string
	DirectoryRefresh string
	SessionEviction  string
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			AllowOrigins: getEnvList("CORS_ALLOW_ORIGINS", nil),
			CartSettle:   getEnvDuration("CART_SETTLE_TIMEOUT", 500*time.Millisecond),
		},
		Store: StoreConfig{
			Driver:   strings.ToLower(getEnv("STORE_DRIVER", "mongo")),
			MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
			Database: getEnv("MONGO_DATABASE", "pharmacart"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			DraftTTL:     getEnvDuration("ORDER_DRAFT_TTL", 30*time.Minute),
			DirectoryTTL: getEnvDuration("PHARMACY_DIRECTORY_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			OrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order_events"),
			ReviewTopic:   getEnv("KAFKA_REVIEW_TOPIC", "review_events"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "storefront-rating-group"),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Order: OrderConfig{
			DefaultDeliveryFee: getEnvFloat("ORDER_DEFAULT_DELIVERY_FEE", 30),
			DefaultTax:         getEnvFloat("ORDER_DEFAULT_TAX", 5),
		},
		Session: SessionConfig{
			IdleTTL:      getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute),
			LoadTimeout:  getEnvDuration("SESSION_LOAD_TIMEOUT", 10*time.Second),
			AwaitTimeout: getEnvDuration("GATE_AWAIT_TIMEOUT", 5*time.Second),
		},
		Gate: GateConfig{
			RoutesFile: getEnv("GATE_ROUTES_FILE", ""),
		},
		Cron: CronConfig{
			// каждую ночь в 03:00
			RatingReconcile:  getSchedule("RATING_RECONCILE_SCHEDULE", "0 3 * * *"),
			DirectoryRefresh: getSchedule("DIRECTORY_REFRESH_SCHEDULE", "*/10 * * * *"),
			SessionEviction:  getSchedule("SESSION_EVICTION_SCHEDULE", "*/5 * * * *"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: getEnv("LOGSTASH_ADDR", ""),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Store.Driver != "mongo" && cfg.Store.Driver != "memory" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: expected mongo or memory", cfg.Store.Driver)
	}

	return cfg, nil
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *RedisConfig) Address() string {
	return c.Host + ":" + c.Port
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration принимает "90s", "15m" и т.п.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSchedule(key, defaultValue string) string {
	value := getEnv(key, defaultValue)
	if strings.EqualFold(value, "off") {
		return ""
	}
	return value
}

// getEnvList - список через запятую
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
