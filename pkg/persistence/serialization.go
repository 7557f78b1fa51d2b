package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// MarshalDistributionRecord serializes a DistributionRecord to JSON bytes.
// Root and leaves encode as hex, amounts as decimal strings, so a
// rehydrated record rebuilds to a byte-identical tree.
func MarshalDistributionRecord(record *types.DistributionRecord) ([]byte, error) {
	if record == nil {
		return nil, fmt.Errorf("cannot marshal nil DistributionRecord")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal DistributionRecord to JSON: %w", err)
	}

	return data, nil
}

// UnmarshalDistributionRecord deserializes a DistributionRecord from JSON
// bytes.
func UnmarshalDistributionRecord(data []byte) (*types.DistributionRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("cannot unmarshal empty data")
	}

	var record types.DistributionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON to DistributionRecord: %w", err)
	}

	return &record, nil
}
