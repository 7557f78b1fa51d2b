package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/merkledrop-labs/merkledrop/pkg/persistence"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// Key prefixes for namespacing in Redis
const (
	keyPrefixDistribution = "merkledrop:distribution:"
	keySchemaVersion      = "merkledrop:metadata:schema_version"
	currentSchemaVersion  = "v1"

	// Key set for listing operations (Redis doesn't support prefix
	// iteration natively without SCAN)
	keySetDistributions = "merkledrop:distributions:index"

	opTimeout = 5 * time.Second
)

// RedisStore is a distribution store backed by Redis, suitable for
// cloud-native deployments where multiple claim frontends share one record
// set.
type RedisStore struct {
	client    *redis.Client
	logger    *zap.Logger
	keyPrefix string
	mu        sync.RWMutex
	closed    bool
}

var _ persistence.IDistributionStore = (*RedisStore)(nil)

// RedisConfig holds the configuration for connecting to Redis
type RedisConfig struct {
	// Address is the Redis server address (host:port)
	Address string
	// Password is the optional Redis password
	Password string
	// DB is the Redis database number (0-15)
	DB int
	// KeyPrefix is an optional custom prefix for all keys, for
	// multi-tenant setups. If empty, keys use the default "merkledrop:"
	// namespace only.
	KeyPrefix string
}

// NewRedisStore creates a new Redis-backed distribution store.
func NewRedisStore(cfg *RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	rs := &RedisStore{
		client:    client,
		logger:    logger,
		keyPrefix: cfg.KeyPrefix,
	}

	if err := rs.initSchema(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Sugar().Infow("Redis distribution store initialized", "address", cfg.Address, "db", cfg.DB)

	return rs, nil
}

func (r *RedisStore) key(base string) string {
	return r.keyPrefix + base
}

// initSchema initializes or validates the schema version
func (r *RedisStore) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	existing, err := r.client.Get(ctx, r.key(keySchemaVersion)).Result()
	if err == redis.Nil {
		return r.client.Set(ctx, r.key(keySchemaVersion), currentSchemaVersion, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if existing != currentSchemaVersion {
		return fmt.Errorf("unsupported schema version: %s (expected: %s)", existing, currentSchemaVersion)
	}

	return nil
}

// SaveDistribution persists a full distribution record.
// The record write and index update run in one pipeline so listings never
// observe a half-saved distribution.
func (r *RedisStore) SaveDistribution(record *types.DistributionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil DistributionRecord")
	}
	if record.DistributionID == "" {
		return fmt.Errorf("cannot save record with empty distribution id")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("distribution store is closed")
	}

	data, err := persistence.MarshalDistributionRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal DistributionRecord: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(keyPrefixDistribution+record.DistributionID), data, 0)
	pipe.SAdd(ctx, r.key(keySetDistributions), record.DistributionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save DistributionRecord: %w", err)
	}

	return nil
}

// LoadDistribution retrieves a record by distribution id.
func (r *RedisStore) LoadDistribution(distributionID string) (*types.DistributionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("distribution store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(keyPrefixDistribution+distributionID)).Bytes()
	if err == redis.Nil {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load DistributionRecord: %w", err)
	}

	record, err := persistence.UnmarshalDistributionRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal DistributionRecord: %w", err)
	}

	return record, nil
}

// HasDistribution reports whether a record exists for the id.
func (r *RedisStore) HasDistribution(distributionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false, fmt.Errorf("distribution store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := r.client.Exists(ctx, r.key(keyPrefixDistribution+distributionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check DistributionRecord existence: %w", err)
	}

	return n > 0, nil
}

// DeleteDistribution removes a record by id. Idempotent.
func (r *RedisStore) DeleteDistribution(distributionID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("distribution store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.key(keyPrefixDistribution+distributionID))
	pipe.SRem(ctx, r.key(keySetDistributions), distributionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete DistributionRecord: %w", err)
	}

	return nil
}

// ListDistributionIDs returns all stored distribution ids sorted ascending.
func (r *RedisStore) ListDistributionIDs() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("distribution store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	ids, err := r.client.SMembers(ctx, r.key(keySetDistributions)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list distribution ids: %w", err)
	}

	sort.Strings(ids)
	return ids, nil
}

// Close cleanly shuts down the store. Idempotent.
func (r *RedisStore) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.client.Close(); err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	r.logger.Sugar().Infow("Redis distribution store closed")
	return nil
}

// HealthCheck verifies the store is operational.
func (r *RedisStore) HealthCheck() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("distribution store is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	return nil
}
