package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/merkledrop-labs/merkledrop/pkg/persistence"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// MemoryStore is an in-memory implementation of IDistributionStore.
// This implementation is intended for TESTING ONLY.
//
// All data is stored in memory and will be lost when the process exits.
// Thread-safe using sync.RWMutex for concurrent access. Records are stored
// as serialized bytes so loads go through the same round trip as the
// durable backends.
type MemoryStore struct {
	mu sync.RWMutex

	// Serialized records: distribution id -> JSON bytes
	records map[string][]byte

	closed bool
}

var _ persistence.IDistributionStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory distribution store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string][]byte),
	}
}

// SaveDistribution persists a full distribution record.
func (m *MemoryStore) SaveDistribution(record *types.DistributionRecord) error {
	if record == nil {
		return fmt.Errorf("cannot save nil DistributionRecord")
	}
	if record.DistributionID == "" {
		return fmt.Errorf("cannot save record with empty distribution id")
	}

	data, err := persistence.MarshalDistributionRecord(record)
	if err != nil {
		return fmt.Errorf("failed to marshal DistributionRecord: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("distribution store is closed")
	}

	m.records[record.DistributionID] = data
	return nil
}

// LoadDistribution retrieves a record by distribution id.
func (m *MemoryStore) LoadDistribution(distributionID string) (*types.DistributionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("distribution store is closed")
	}

	data, exists := m.records[distributionID]
	if !exists {
		return nil, nil // Not found is not an error
	}

	record, err := persistence.UnmarshalDistributionRecord(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal DistributionRecord: %w", err)
	}

	return record, nil
}

// HasDistribution reports whether a record exists for the id.
func (m *MemoryStore) HasDistribution(distributionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return false, fmt.Errorf("distribution store is closed")
	}

	_, exists := m.records[distributionID]
	return exists, nil
}

// DeleteDistribution removes a record by id. Idempotent.
func (m *MemoryStore) DeleteDistribution(distributionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("distribution store is closed")
	}

	delete(m.records, distributionID)
	return nil
}

// ListDistributionIDs returns all stored distribution ids sorted ascending.
func (m *MemoryStore) ListDistributionIDs() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("distribution store is closed")
	}

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids, nil
}

// Close marks the store closed. Idempotent.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// HealthCheck verifies the store is operational.
func (m *MemoryStore) HealthCheck() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("distribution store is closed")
	}

	return nil
}

// Corrupt overwrites a stored record with invalid bytes. Test helper for
// exercising corrupted-record handling.
func (m *MemoryStore) Corrupt(distributionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[distributionID]; exists {
		m.records[distributionID] = []byte("{not json")
	}
}
