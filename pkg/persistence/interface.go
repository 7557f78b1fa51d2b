package persistence

import "github.com/merkledrop-labs/merkledrop/pkg/types"

// IDistributionStore defines the interface for durably storing distribution
// records keyed by distribution id. All implementations must be thread-safe.
//
// Each id is issued once by the external settlement contract at creation
// time; concurrent creation races for the same id are out of scope. Records
// are append-only: written once when the distribution is created, read
// repeatedly at claim time, never mutated.
type IDistributionStore interface {
	// SaveDistribution persists a full distribution record with atomic
	// replace semantics. Returns error only on storage failure.
	SaveDistribution(record *types.DistributionRecord) error

	// LoadDistribution retrieves a record by distribution id.
	// Returns nil if the record doesn't exist, error only on storage failure.
	LoadDistribution(distributionID string) (*types.DistributionRecord, error)

	// HasDistribution reports whether a record exists for the id.
	HasDistribution(distributionID string) (bool, error)

	// DeleteDistribution removes a record by id.
	// Idempotent - returns nil if the record doesn't exist.
	DeleteDistribution(distributionID string) error

	// ListDistributionIDs returns all stored distribution ids sorted
	// ascending. Returns empty slice if no records exist.
	ListDistributionIDs() ([]string, error)

	// Close cleanly shuts down the store.
	// Idempotent - safe to call multiple times.
	// After Close(), all other operations should return errors.
	Close() error

	// HealthCheck verifies the store is operational.
	// Returns nil if healthy, error describing the problem if not.
	HealthCheck() error
}
