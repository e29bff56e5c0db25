package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	ServiceName string
	AdminPort   int
	Directory   DirectoryConfig
	RabbitMQ    RabbitMQConfig
	Matching    MatchingConfig
	Photos      PhotoStoreConfig
}

// DirectoryConfig holds the tenant directory database settings. The
// directory database stores one row per tenant together with the DSN
// of that tenant's own isolated database.
type DirectoryConfig struct {
	URL string
}

// RabbitMQConfig holds RabbitMQ connection, queue and command settings
type RabbitMQConfig struct {
	URL                string
	IngestExchange     string
	IngestQueue        string
	IngestBindingKey   string
	CommandExchange    string
	JobsQueue          string
	JobsBindingKey     string
	DLQQueue           string
	PrefetchCount      int
	AckTimeoutSeconds  int
	CommandTopicPrefix string
}

// MatchingConfig holds punch classification settings
type MatchingConfig struct {
	ScheduleToleranceMinutes int
	DuplicateWindowSeconds   int
}

// PhotoStoreConfig holds the employee photo object store settings
type PhotoStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName: getEnv("SERVICE_NAME", "attendance-worker"),
		AdminPort:   getEnvAsInt("ADMIN_PORT", 8082),
		Directory: DirectoryConfig{
			URL: getEnv("DIRECTORY_DATABASE_URL", ""),
		},
		RabbitMQ: RabbitMQConfig{
			URL:                getEnv("RABBITMQ_URL", ""),
			IngestExchange:     getEnv("RABBITMQ_INGEST_EXCHANGE", "attendance.devices.exchange"),
			IngestQueue:        getEnv("RABBITMQ_INGEST_QUEUE", "attendance.devices.queue"),
			IngestBindingKey:   getEnv("RABBITMQ_INGEST_BINDING_KEY", "#"),
			CommandExchange:    getEnv("RABBITMQ_COMMAND_EXCHANGE", "attendance.commands.exchange"),
			JobsQueue:          getEnv("RABBITMQ_JOBS_QUEUE", "attendance.jobs.queue"),
			JobsBindingKey:     getEnv("RABBITMQ_JOBS_BINDING_KEY", "jobs/#"),
			DLQQueue:           getEnv("RABBITMQ_DLQ_QUEUE", "attendance.devices.dlq"),
			PrefetchCount:      getEnvAsInt("RABBITMQ_PREFETCH", 10),
			AckTimeoutSeconds:  getEnvAsInt("COMMAND_ACK_TIMEOUT_SECONDS", 15),
			CommandTopicPrefix: getEnv("COMMAND_TOPIC_PREFIX", "mqtt/face"),
		},
		Matching: MatchingConfig{
			ScheduleToleranceMinutes: getEnvAsInt("MATCH_SCHEDULE_TOLERANCE_MINUTES", 90),
			DuplicateWindowSeconds:   getEnvAsInt("MATCH_DUPLICATE_WINDOW_SECONDS", 60),
		},
		Photos: PhotoStoreConfig{
			Endpoint:  getEnv("PHOTO_STORE_ENDPOINT", ""),
			AccessKey: getEnv("PHOTO_STORE_ACCESS_KEY", ""),
			SecretKey: getEnv("PHOTO_STORE_SECRET_KEY", ""),
			Bucket:    getEnv("PHOTO_STORE_BUCKET", "employee-photos"),
			UseSSL:    getEnvAsBool("PHOTO_STORE_USE_SSL", false),
		},
	}

	// Validate required fields
	if cfg.Directory.URL == "" {
		return nil, fmt.Errorf("DIRECTORY_DATABASE_URL is required but not set in environment variables")
	}
	if cfg.RabbitMQ.URL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required but not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
