package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config представляет конфигурацию приложения
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Kafka     KafkaConfig     `json:"kafka"`
	Logger    LoggerConfig    `json:"logger"`
	Stripe    StripeConfig    `json:"stripe"`
	Checkout  CheckoutConfig  `json:"checkout"`
	Auth      AuthConfig      `json:"auth"`
	Catalog   CatalogConfig   `json:"catalog"`
	Analytics AnalyticsConfig `json:"analytics"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Notifier  NotifierConfig  `json:"notifier"`
}

// ServerConfig представляет конфигурацию HTTP сервера
type ServerConfig struct {
	Port         string `json:"port" env:"SERVER_PORT" envDefault:"8080"`
	Host         string `json:"host" env:"SERVER_HOST" envDefault:"0.0.0.0"`
	ReadTimeout  int    `json:"read_timeout" env:"SERVER_READ_TIMEOUT" envDefault:"10"`
	WriteTimeout int    `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" envDefault:"15"`
}

// DatabaseConfig представляет конфигурацию базы данных
type DatabaseConfig struct {
	Host         string `json:"host" env:"DB_HOST" envDefault:"localhost"`
	Port         string `json:"port" env:"DB_PORT" envDefault:"5432"`
	User         string `json:"user" env:"DB_USER" envDefault:"storefront"`
	Password     string `json:"-" env:"DB_PASSWORD" envDefault:"storefront"`
	DBName       string `json:"db_name" env:"DB_NAME" envDefault:"storefront"`
	SSLMode      string `json:"ssl_mode" env:"DB_SSL_MODE" envDefault:"disable"`
	MaxOpenConns int    `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns int    `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	AutoMigrate  bool   `json:"auto_migrate" env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

// DSN возвращает строку подключения для lib/pq
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// RedisConfig представляет конфигурацию Redis
type RedisConfig struct {
	Host     string `json:"host" env:"REDIS_HOST" envDefault:"localhost"`
	Port     string `json:"port" env:"REDIS_PORT" envDefault:"6379"`
	Password string `json:"-" env:"REDIS_PASSWORD"`
	DB       int    `json:"db" env:"REDIS_DB" envDefault:"0"`
}

// KafkaConfig представляет конфигурацию Kafka
type KafkaConfig struct {
	Brokers []string `json:"brokers" env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	GroupID string   `json:"group_id" env:"KAFKA_GROUP_ID" envDefault:"storefront"`
	Topics  Topics   `json:"topics"`
}

// Topics представляет список топиков Kafka
type Topics struct {
	Checkout string `json:"checkout" env:"KAFKA_TOPIC_CHECKOUT" envDefault:"checkout"`
	Orders   string `json:"orders" env:"KAFKA_TOPIC_ORDERS" envDefault:"orders"`
	Coupons  string `json:"coupons" env:"KAFKA_TOPIC_COUPONS" envDefault:"coupons"`
}

// All возвращает непустые топики для подписки
func (t Topics) All() []string {
	var topics []string
	for _, topic := range []string{t.Checkout, t.Orders, t.Coupons} {
		if strings.TrimSpace(topic) != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}

// LoggerConfig представляет конфигурацию логгера
type LoggerConfig struct {
	Level  string `json:"level" env:"LOG_LEVEL" envDefault:"info"`
	Format string `json:"format" env:"LOG_FORMAT" envDefault:"json"`
	File   string `json:"file" env:"LOG_FILE"`
}

// StripeConfig описывает подключение к платёжному шлюзу
type StripeConfig struct {
	SecretKey          string `json:"-" env:"STRIPE_SECRET_KEY"`
	APIURL             string `json:"api_url" env:"STRIPE_API_URL"`
	Currency           string `json:"currency" env:"STRIPE_CURRENCY" envDefault:"inr"`
	ClientURL          string `json:"client_url" env:"CLIENT_URL" envDefault:"http://localhost:5173"`
	TimeoutSeconds     int    `json:"timeout_seconds" env:"STRIPE_TIMEOUT_SECONDS" envDefault:"10"`
	StatusRetries      int    `json:"status_retries" env:"STRIPE_STATUS_RETRIES" envDefault:"3"`
	RetryBackoffMillis int    `json:"retry_backoff_millis" env:"STRIPE_RETRY_BACKOFF_MILLIS" envDefault:"200"`
}

// CheckoutConfig хранит правила выдачи наградных купонов
type CheckoutConfig struct {
	RewardThresholdMinor  int64  `json:"reward_threshold_minor" env:"REWARD_THRESHOLD_MINOR" envDefault:"200000"`
	RewardDiscountPercent int    `json:"reward_discount_percent" env:"REWARD_DISCOUNT_PERCENT" envDefault:"10"`
	RewardValidityDays    int    `json:"reward_validity_days" env:"REWARD_VALIDITY_DAYS" envDefault:"30"`
	CouponPrefix          string `json:"coupon_prefix" env:"COUPON_PREFIX" envDefault:"GIFT"`
}

// AuthConfig описывает проверку access-токенов
type AuthConfig struct {
	AccessTokenSecret string `json:"-" env:"ACCESS_TOKEN_SECRET"`
	CookieName        string `json:"cookie_name" env:"ACCESS_TOKEN_COOKIE" envDefault:"accessToken"`
}

// CatalogConfig хранит настройки кеша витрины
type CatalogConfig struct {
	FeaturedCacheTTLMinutes int `json:"featured_cache_ttl_minutes" env:"FEATURED_CACHE_TTL_MINUTES" envDefault:"60"`
}

// AnalyticsConfig хранит настройки аналитики
type AnalyticsConfig struct {
	CacheTTLMinutes       int    `json:"cache_ttl_minutes" env:"ANALYTICS_CACHE_TTL_MINUTES" envDefault:"10"`
	DashboardDays         int    `json:"dashboard_days" env:"ANALYTICS_DASHBOARD_DAYS" envDefault:"7"`
	MaxRangeDays          int    `json:"max_range_days" env:"ANALYTICS_MAX_RANGE_DAYS" envDefault:"365"`
	DefaultGroupBy        string `json:"default_group_by" env:"ANALYTICS_DEFAULT_GROUP_BY" envDefault:"none"`
	DefaultTopLimit       int    `json:"default_top_limit" env:"ANALYTICS_DEFAULT_TOP_LIMIT" envDefault:"5"`
	RequestTimeoutSeconds int    `json:"request_timeout_seconds" env:"ANALYTICS_REQUEST_TIMEOUT_SECONDS" envDefault:"5"`
}

// RateLimitConfig описывает настройки rate limiting
type RateLimitConfig struct {
	Enabled       bool   `json:"enabled" env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	Requests      int    `json:"requests" env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	WindowSeconds int    `json:"window_seconds" env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	KeyPrefix     string `json:"key_prefix" env:"RATE_LIMIT_KEY_PREFIX" envDefault:"ratelimit"`
}

// NotifierConfig описывает уведомления администратора в Telegram
type NotifierConfig struct {
	TelegramToken  string `json:"-" env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID int64  `json:"telegram_chat_id" env:"TELEGRAM_ADMIN_CHAT_ID"`
	TelegramAPIURL string `json:"telegram_api_url" env:"TELEGRAM_API_URL"`
}

// Enabled сообщает, настроены ли уведомления
func (c *NotifierConfig) Enabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.AccessTokenSecret == "" {
		return fmt.Errorf("ACCESS_TOKEN_SECRET is required")
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required")
	}
	if c.Checkout.RewardDiscountPercent < 0 || c.Checkout.RewardDiscountPercent > 100 {
		return fmt.Errorf("REWARD_DISCOUNT_PERCENT must be between 0 and 100")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must not be empty")
	}
	return nil
}
