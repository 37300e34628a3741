package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Kafka     KafkaConfig     `yaml:"kafka"`
}

// ServerConfig represents the admin HTTP server configuration.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	Host           string        `yaml:"host"`
	Environment    string        `yaml:"environment"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// RedisConfig represents the Redis configuration.
type RedisConfig struct {
	Addresses              []string      `yaml:"addresses"`
	Host                   string        `yaml:"host"`
	Port                   int           `yaml:"port"`
	Password               string        `yaml:"password"`
	DB                     int           `yaml:"db"`
	PoolSize               int           `yaml:"pool_size"`
	MinIdleConns           int           `yaml:"min_idle_conns"`
	DialTimeout            time.Duration `yaml:"dial_timeout"`
	ReadTimeout            time.Duration `yaml:"read_timeout"`
	WriteTimeout           time.Duration `yaml:"write_timeout"`
	PoolTimeout            time.Duration `yaml:"pool_timeout"`
	IdleTimeout            time.Duration `yaml:"idle_timeout"`
	IdleCheckFrequency     time.Duration `yaml:"idle_check_frequency"`
	MaxRetries             int           `yaml:"max_retries"`
	MinRetryBackoff        time.Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff        time.Duration `yaml:"max_retry_backoff"`
	EnableCluster          bool          `yaml:"enable_cluster"`
	RouteByLatency         bool          `yaml:"route_by_latency"`
	RouteRandomly          bool          `yaml:"route_randomly"`
	EnableReadFromReplicas bool          `yaml:"enable_read_from_replicas"`
}

// LoggingConfig represents the logging configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	FilePath   string `yaml:"file_path"`
	MaxSize    int    `yaml:"max_size"`
	MaxAge     int    `yaml:"max_age"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
}

// RateLimitConfig configures the distributed rate limiter's own tunables,
// separate from the Redis transport config above.
type RateLimitConfig struct {
	MaxCooldownTTLSeconds int    `yaml:"max_cooldown_ttl_seconds"`
	KeyPrefixPolicy       string `yaml:"key_prefix_policy"`
	KeyPrefixLive         string `yaml:"key_prefix_live"`
	KeyPrefixCooldown     string `yaml:"key_prefix_cooldown"`
}

// KafkaConfig configures the optional usage/policy event publisher. An empty
// Brokers list means the publisher is a no-op.
type KafkaConfig struct {
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	Timeout      time.Duration `yaml:"timeout"`
	Compression  string        `yaml:"compression"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// Default returns a Config populated with the values this module ships with
// out of the box, mirroring how an operator would run it against a local
// Redis with no Kafka broker configured.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8090,
			Host:           "0.0.0.0",
			Environment:    "development",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		Redis: RedisConfig{
			Host:         "localhost",
			Port:         6379,
			DB:           0,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolTimeout:  4 * time.Second,
			MaxRetries:   3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Output: "stdout",
		},
		RateLimit: RateLimitConfig{
			MaxCooldownTTLSeconds: 120,
			KeyPrefixPolicy:       "riot",
			KeyPrefixLive:         "lol_api",
			KeyPrefixCooldown:     "lol_api",
		},
	}
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
