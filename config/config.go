package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Booking  BookingConfig
	Stripe   StripeConfig
	Mail     MailConfig
	Auth     AuthConfig
	Queue    QueueConfig
}

type ServerConfig struct {
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// BookingConfig holds the ticketing policy knobs.
type BookingConfig struct {
	MaxQuantity         int
	DefaultCapacity     int
	CredentialNamespace string
	Currency            string
	// BookingFee is added once per paid checkout, in minor units.
	BookingFee          int64
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
}

type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type AuthConfig struct {
	JWTSecret string
}

// QueueConfig selects the notification queue: "redis" or "memory".
type QueueConfig struct {
	Driver     string
	BufferSize int
	ConsumerID string
	Workers    int
}

var AppConfig *Config

func LoadConfig() *Config {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	AppConfig = &Config{
		Server:   GetServerConfig(),
		Database: GetDatabaseConfig(),
		Redis:    GetRedisConfig(),
		Booking:  GetBookingConfig(),
		Stripe:   GetStripeConfig(),
		Mail:     GetMailConfig(),
		Auth:     AuthConfig{JWTSecret: getEnv("AUTH_JWT_SECRET", "")},
		Queue: QueueConfig{
			Driver:     getEnv("QUEUE_DRIVER", "redis"),
			BufferSize: getEnvInt("QUEUE_BUFFER_SIZE", 256),
			ConsumerID: getEnv("QUEUE_CONSUMER_ID", ""),
			Workers:    getEnvInt("QUEUE_WORKERS", 4),
		},
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // test DB runs on 5433
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // test Redis runs on 6380
		Password: "",
		DB:       1,
	}

	return &Config{
		Server:   ServerConfig{Port: "8080", LogLevel: "debug", ShutdownTimeout: time.Second},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Booking:  DefaultBookingConfig(),
		Stripe:   StripeConfig{WebhookSecret: "whsec_test"},
		Auth:     AuthConfig{JWTSecret: "test-secret"},
		Queue:    QueueConfig{Driver: "memory", BufferSize: 16, Workers: 1},
	}
}

func DefaultBookingConfig() BookingConfig {
	return BookingConfig{
		MaxQuantity:         10,
		DefaultCapacity:     100,
		CredentialNamespace: "GF-TICKET",
		Currency:            "gbp",
	}
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}
}

func GetBookingConfig() BookingConfig {
	def := DefaultBookingConfig()
	return BookingConfig{
		MaxQuantity:         getEnvInt("BOOKING_MAX_QUANTITY", def.MaxQuantity),
		DefaultCapacity:     getEnvInt("BOOKING_DEFAULT_CAPACITY", def.DefaultCapacity),
		CredentialNamespace: getEnv("BOOKING_CREDENTIAL_NAMESPACE", def.CredentialNamespace),
		Currency:            getEnv("BOOKING_CURRENCY", def.Currency),
		BookingFee:          int64(getEnvInt("BOOKING_FEE", 0)),
	}
}

func GetStripeConfig() StripeConfig {
	return StripeConfig{
		SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:3000/bookings/success"),
		CancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:3000/bookings/cancelled"),
	}
}

func GetMailConfig() MailConfig {
	return MailConfig{
		Enabled:  getEnvBool("MAIL_ENABLED", false),
		Host:     getEnv("MAIL_HOST", "localhost"),
		Port:     getEnvInt("MAIL_PORT", 587),
		Username: getEnv("MAIL_USERNAME", ""),
		Password: getEnv("MAIL_PASSWORD", ""),
		From:     getEnv("MAIL_FROM", "tickets@gigfinder.local"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic(err)
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		panic(err)
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic(err)
	}
	return d
}
