package redis

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/merkledrop-labs/merkledrop/pkg/logger"
	"github.com/merkledrop-labs/merkledrop/pkg/merkle"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// getTestRedisAddress returns the Redis address for testing.
// Uses REDIS_TEST_ADDRESS env var if set, otherwise defaults to
// localhost:6379.
func getTestRedisAddress() string {
	if addr := os.Getenv("REDIS_TEST_ADDRESS"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// requireRedis skips the test if Redis is not reachable
func requireRedis(t *testing.T) *RedisStore {
	t.Helper()

	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	cfg := &RedisConfig{
		Address:   getTestRedisAddress(),
		DB:        15, // Use DB 15 for tests to avoid conflicts
		KeyPrefix: "test:",
	}

	rs, err := NewRedisStore(cfg, testLogger)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", cfg.Address, err)
		return nil
	}

	return rs
}

func sampleRecord(t *testing.T, id string, n int) *types.DistributionRecord {
	t.Helper()

	recipients := make([]types.Recipient, n)
	for i := range recipients {
		addr, err := types.NewAddress([]byte{byte(i + 1)})
		require.NoError(t, err)
		amount, err := types.NewAmountFromUint64(uint64(10 * (i + 1)))
		require.NoError(t, err)
		recipients[i] = types.Recipient{Address: addr, Amount: amount}
	}

	tree, err := merkle.BuildTree(recipients)
	require.NoError(t, err)

	return &types.DistributionRecord{
		DistributionID: id,
		Root:           tree.Root,
		Leaves:         tree.Leaves,
		Recipients:     recipients,
	}
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	record := sampleRecord(t, "redis-dist-1", 3)
	require.NoError(t, rs.SaveDistribution(record))
	defer func() { _ = rs.DeleteDistribution("redis-dist-1") }()

	loaded, err := rs.LoadDistribution("redis-dist-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, record.Root, loaded.Root)
	assert.Len(t, loaded.Recipients, 3)
}

func TestRedisStore_LoadNotFound(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	loaded, err := rs.LoadDistribution("redis-missing")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRedisStore_HasAndDelete(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	require.NoError(t, rs.SaveDistribution(sampleRecord(t, "redis-dist-2", 2)))

	exists, err := rs.HasDistribution("redis-dist-2")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, rs.DeleteDistribution("redis-dist-2"))
	require.NoError(t, rs.DeleteDistribution("redis-dist-2")) // idempotent

	exists, err = rs.HasDistribution("redis-dist-2")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRedisStore_ListIncludesSaved(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	require.NoError(t, rs.SaveDistribution(sampleRecord(t, "redis-dist-3", 2)))
	defer func() { _ = rs.DeleteDistribution("redis-dist-3") }()

	ids, err := rs.ListDistributionIDs()
	require.NoError(t, err)
	assert.Contains(t, ids, "redis-dist-3")
}

func TestRedisStore_HealthCheck(t *testing.T) {
	rs := requireRedis(t)
	defer func() { _ = rs.Close() }()

	require.NoError(t, rs.HealthCheck())
}

func TestRedisStore_ClosedOperations(t *testing.T) {
	rs := requireRedis(t)
	require.NoError(t, rs.Close())
	require.NoError(t, rs.Close()) // idempotent

	require.Error(t, rs.SaveDistribution(sampleRecord(t, "redis-dist-4", 2)))
	_, err := rs.LoadDistribution("redis-dist-4")
	require.Error(t, err)
	require.Error(t, rs.HealthCheck())
}

func TestNewRedisStore_InvalidConfig(t *testing.T) {
	testLogger, _ := logger.NewLogger(&logger.LoggerConfig{Debug: false})

	_, err := NewRedisStore(nil, testLogger)
	require.Error(t, err)

	_, err = NewRedisStore(&RedisConfig{}, testLogger)
	require.Error(t, err)
}
