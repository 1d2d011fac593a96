package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/utils"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
	JWTSecret  string
	CORSOrigin string
	Port       string
	Env        string

	LogDir   string
	LogLevel string

	RabbitMQURIs      []string
	CoreQueue         string
	QueueDurable      bool
	Prefetch          int
	WorkerConcurrency int
	WorkerTimeout     time.Duration

	RenewalSchedule string
	MetricsAddr     string
}

// LoadConfig loads configuration from environment variables. A missing .env
// file is not an error; the process environment is used as is.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	config := &Config{
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:          getEnv("DB_HOST", utils.DefaultDBHost),
		DBPort:          getEnv("DB_PORT", utils.DefaultDBPort),
		DBUser:          getEnv("DB_USER", utils.DefaultDBUser),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBName:          getEnv("DB_NAME", utils.DefaultDBName),
		DBSSLMode:       getEnv("DB_SSLMODE", "disable"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		CORSOrigin:      os.Getenv("CORS_ORIGIN"),
		Port:            getEnv("PORT", utils.DefaultPort),
		Env:             getEnv("ENV", "development"),
		LogDir:          os.Getenv("LOG_DIR"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CoreQueue:       getEnv("RABBIT_MQ_CORE_QUEUE", utils.DefaultCoreQueue),
		RenewalSchedule: getEnv("RENEWAL_SCHEDULE", utils.DefaultRenewalSchedule),
		MetricsAddr:     os.Getenv("METRICS_ADDR"),
	}

	for _, uri := range strings.Split(os.Getenv("RABBIT_MQ_URI"), ",") {
		if uri = strings.TrimSpace(uri); uri != "" {
			config.RabbitMQURIs = append(config.RabbitMQURIs, uri)
		}
	}

	var err error
	if config.QueueDurable, err = getBool("RABBIT_MQ_QUEUE_DURABLE", true); err != nil {
		return nil, err
	}
	if config.Prefetch, err = getInt("RABBIT_MQ_PREFETCH", utils.DefaultPrefetch); err != nil {
		return nil, err
	}
	if config.WorkerConcurrency, err = getInt("WORKER_CONCURRENCY", config.Prefetch); err != nil {
		return nil, err
	}
	if config.WorkerTimeout, err = getDuration("WORKER_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if config.DBDriver != "postgres" && config.DBDriver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", config.DBDriver)
	}
	if config.Prefetch < 1 {
		return nil, fmt.Errorf("RABBIT_MQ_PREFETCH must be at least 1, got %d", config.Prefetch)
	}
	if config.WorkerConcurrency < 1 {
		return nil, fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", config.WorkerConcurrency)
	}

	return config, nil
}

// DSN builds the postgres connection string
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %v", key, err)
	}
	return b, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
