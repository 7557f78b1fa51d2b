package merkle

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Proof wire format: each 32-byte sibling at sequential 32-byte-aligned
// offsets, in leaf-to-root order, no length prefix. The element count is
// implied by the buffer length, as agreed with the settlement client.

// PackProof flattens a sibling list into the settlement contract's wire
// format.
func PackProof(siblings []common.Hash) []byte {
	packed := make([]byte, 0, len(siblings)*common.HashLength)
	for _, s := range siblings {
		packed = append(packed, s[:]...)
	}
	return packed
}

// UnpackProof is the inverse of PackProof. The buffer length must be a
// multiple of 32 bytes.
func UnpackProof(packed []byte) ([]common.Hash, error) {
	if len(packed)%common.HashLength != 0 {
		return nil, fmt.Errorf("packed proof length %d is not a multiple of %d", len(packed), common.HashLength)
	}

	siblings := make([]common.Hash, 0, len(packed)/common.HashLength)
	for off := 0; off < len(packed); off += common.HashLength {
		siblings = append(siblings, common.BytesToHash(packed[off:off+common.HashLength]))
	}
	return siblings, nil
}
