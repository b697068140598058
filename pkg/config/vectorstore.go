package config

import "time"

// VectorStoreConfig holds C8 vector store gateway connection settings.
type VectorStoreConfig struct {
	// Addr is the Redis connection address (host:port).
	Addr string `yaml:"addr" validate:"required"`

	// PasswordEnv names the environment variable holding the Redis password.
	PasswordEnv string `yaml:"password_env,omitempty"`

	// CollectionPrefix namespaces collection keys, e.g. "jervis".
	// Collections are named "{prefix}_{modelName}_dim{N}".
	CollectionPrefix string `yaml:"collection_prefix"`

	// DialTimeout, ReadTimeout, WriteTimeout bound individual Redis calls.
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// PoolSize is the Redis client's connection pool size.
	PoolSize int `yaml:"pool_size" validate:"omitempty,min=1"`

	// BreakerMaxFailures is the consecutive-failure threshold that opens
	// the circuit breaker guarding every gateway operation.
	BreakerMaxFailures uint32 `yaml:"breaker_max_failures" validate:"omitempty,min=1"`

	// BreakerOpenTimeout is how long the breaker stays open before
	// allowing a single probe request through (half-open).
	BreakerOpenTimeout time.Duration `yaml:"breaker_open_timeout"`
}

// DefaultVectorStoreConfig returns the built-in vector store defaults.
func DefaultVectorStoreConfig() *VectorStoreConfig {
	return &VectorStoreConfig{
		Addr:               "localhost:6379",
		CollectionPrefix:   "jervis",
		DialTimeout:        5 * time.Second,
		ReadTimeout:        3 * time.Second,
		WriteTimeout:       3 * time.Second,
		PoolSize:           10,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}
