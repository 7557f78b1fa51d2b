package config

import (
	"fmt"
	"os"
	"strconv"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for merkledrop configuration
const (
	EnvStoreType     = "MERKLEDROP_STORE"
	EnvDataDir       = "MERKLEDROP_DATA_DIR"
	EnvRedisAddress  = "MERKLEDROP_REDIS_ADDRESS"
	EnvRedisPassword = "MERKLEDROP_REDIS_PASSWORD"
	EnvRedisDB       = "MERKLEDROP_REDIS_DB"
	EnvPort          = "MERKLEDROP_PORT"
	EnvVerbose       = "MERKLEDROP_VERBOSE"
)

// StoreType selects the distribution store backend
type StoreType string

const (
	StoreTypeBadger StoreType = "badger"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeMemory StoreType = "memory" // testing only
)

// Config represents the complete configuration for the merkledrop service
type Config struct {
	// Store selection
	StoreType StoreType `json:"store_type"`

	// Badger settings
	DataDir string `json:"data_dir"`

	// Redis settings
	RedisAddress  string `json:"redis_address"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Claim API settings
	Port int `json:"port"`

	// Operational settings
	Verbose bool `json:"verbose"`
}

// DefaultConfig returns a config with sensible local defaults.
func DefaultConfig() *Config {
	return &Config{
		StoreType: StoreTypeBadger,
		DataDir:   "./merkledrop-data",
		Port:      8080,
	}
}

// LoadFromEnv overlays environment variables onto the config.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvStoreType); v != "" {
		c.StoreType = StoreType(v)
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv(EnvRedisAddress); v != "" {
		c.RedisAddress = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv(EnvRedisDB); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRedisDB, err)
		}
		c.RedisDB = db
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvVerbose); v != "" {
		c.Verbose = v == "true" || v == "1"
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var allErrors field.ErrorList

	switch c.StoreType {
	case StoreTypeBadger:
		if c.DataDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("dataDir"), "dataDir is required for the badger store"))
		}
	case StoreTypeRedis:
		if c.RedisAddress == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("redisAddress"), "redisAddress is required for the redis store"))
		}
		if c.RedisDB < 0 || c.RedisDB > 15 {
			allErrors = append(allErrors, field.Invalid(field.NewPath("redisDB"), c.RedisDB, "must be in [0, 15]"))
		}
	case StoreTypeMemory:
		// no settings
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("storeType"), c.StoreType, []string{
			string(StoreTypeBadger), string(StoreTypeRedis), string(StoreTypeMemory),
		}))
	}

	if c.Port <= 0 || c.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), c.Port, "must be in [1, 65535]"))
	}

	if len(allErrors) > 0 {
		return fmt.Errorf("invalid configuration: %s", allErrors.ToAggregate().Error())
	}
	return nil
}
