package merkle

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 16} {
		tree, err := BuildTree(createTestRecipients(t, n))
		require.NoError(t, err)

		proof, err := tree.GenerateProof(n - 1)
		require.NoError(t, err)

		packed := PackProof(proof.Siblings)
		require.Equal(t, len(proof.Siblings)*common.HashLength, len(packed))

		unpacked, err := UnpackProof(packed)
		require.NoError(t, err)
		require.Equal(t, proof.Siblings, unpacked)

		// The packed buffer still verifies after the round trip
		require.True(t, VerifyProof(proof.Leaf, unpacked, tree.Root))
	}
}

func TestPackProofLayout(t *testing.T) {
	// Each element sits at a sequential 32-byte-aligned offset, in proof
	// order, with no length prefix
	siblings := []common.Hash{
		common.HexToHash("0x01"),
		common.HexToHash("0x02"),
	}

	packed := PackProof(siblings)
	require.Len(t, packed, 64)
	require.Equal(t, siblings[0][:], packed[0:32])
	require.Equal(t, siblings[1][:], packed[32:64])
}

func TestPackProofEmpty(t *testing.T) {
	require.Empty(t, PackProof(nil))

	unpacked, err := UnpackProof(nil)
	require.NoError(t, err)
	require.Empty(t, unpacked)
}

func TestUnpackProofRejectsMisalignedBuffer(t *testing.T) {
	for _, size := range []int{1, 31, 33, 63} {
		_, err := UnpackProof(make([]byte, size))
		require.Error(t, err, "buffer of %d bytes should be rejected", size)
	}
}
