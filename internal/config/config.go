package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// External site registry configuration.
	RegistryURL       string
	RegistryToken     string
	RegistryEnabled   bool
	RegistryTimeout   time.Duration
	RegistryCacheSize int
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	registryTimeoutStr := sharedcfg.EnvOrDefault("REGISTRY_TIMEOUT", "5s")
	registryTimeout, err2 := time.ParseDuration(registryTimeoutStr)
	if err2 != nil || registryTimeout <= 0 {
		return nil, errors.New("invalid REGISTRY_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	registryURL := os.Getenv("REGISTRY_URL")
	registryEnabled := registryURL != ""
	if v := os.Getenv("REGISTRY_ENABLED"); v != "" {
		registryEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "allocation-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "allocation-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "grid-allocation"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		RegistryURL:       registryURL,
		RegistryToken:     os.Getenv("REGISTRY_TOKEN"),
		RegistryEnabled:   registryEnabled,
		RegistryTimeout:   registryTimeout,
		RegistryCacheSize: parseRegistryCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.RegistryEnabled && cfg.RegistryURL == "" {
		return nil, errors.New("REGISTRY_ENABLED is true but REGISTRY_URL is not set")
	}

	return cfg, nil
}

func parseRegistryCacheSize() int {
	if s := os.Getenv("REGISTRY_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 100
}
