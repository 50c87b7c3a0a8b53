package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	JWT          JWTConfig
	App          AppConfig
	CORS         CORSConfig
	Payroll      PayrollConfig
	Notification NotificationConfig
	Cron         CronConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration time.Duration
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// PayrollConfig tunes payroll generation and payslip delivery.
type PayrollConfig struct {
	RegenerationPolicy string
	Workers            int
	DeliveryBatchSize  int
	DeliveryGrace      time.Duration
}

type NotificationConfig struct {
	Workers       int
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

type CronConfig struct {
	PayslipDeliveryInterval time.Duration
}

var validRegenerationPolicies = []string{"replace_all", "preserve_finalized", "reject"}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	} else if err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := getEnvInt("DB_PORT", 5432)
	if err != nil {
		return nil, err
	}
	maxConns, err := getEnvInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(maxConns),
	}

	// Application configuration
	appPort, err := getEnvInt("APP_PORT", 8080)
	if err != nil {
		return nil, err
	}

	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.CORS = CORSConfig{
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	// JWT configuration
	accessExpiration, err := getEnvDuration("JWT_ACCESS_EXPIRATION_TIME", time.Hour)
	if err != nil {
		return nil, err
	}

	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: accessExpiration,
	}

	// Payroll configuration
	payrollWorkers, err := getEnvInt("PAYROLL_WORKERS", 8)
	if err != nil {
		return nil, err
	}
	deliveryBatch, err := getEnvInt("PAYSLIP_DELIVERY_BATCH_SIZE", 200)
	if err != nil {
		return nil, err
	}
	deliveryGrace, err := getEnvDuration("PAYSLIP_DELIVERY_GRACE", time.Minute)
	if err != nil {
		return nil, err
	}

	config.Payroll = PayrollConfig{
		RegenerationPolicy: getEnv("PAYROLL_REGENERATION_POLICY", "preserve_finalized"),
		Workers:            payrollWorkers,
		DeliveryBatchSize:  deliveryBatch,
		DeliveryGrace:      deliveryGrace,
	}

	// Notification configuration
	notifWorkers, err := getEnvInt("NOTIFICATION_WORKERS", 2)
	if err != nil {
		return nil, err
	}
	notifBatch, err := getEnvInt("NOTIFICATION_BATCH_SIZE", 100)
	if err != nil {
		return nil, err
	}
	notifFlush, err := getEnvDuration("NOTIFICATION_FLUSH_INTERVAL", 5*time.Second)
	if err != nil {
		return nil, err
	}
	notifQueue, err := getEnvInt("NOTIFICATION_QUEUE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	config.Notification = NotificationConfig{
		Workers:       notifWorkers,
		BatchSize:     notifBatch,
		FlushInterval: notifFlush,
		QueueSize:     notifQueue,
	}

	deliveryInterval, err := getEnvDuration("PAYSLIP_DELIVERY_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	config.Cron = CronConfig{PayslipDeliveryInterval: deliveryInterval}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if !isOneOf(c.Payroll.RegenerationPolicy, validRegenerationPolicies) {
		return fmt.Errorf("PAYROLL_REGENERATION_POLICY must be one of %s", strings.Join(validRegenerationPolicies, ", "))
	}
	if c.Cron.PayslipDeliveryInterval <= 0 {
		return fmt.Errorf("PAYSLIP_DELIVERY_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.App.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvSlice(key string, fallback []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func isOneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}
