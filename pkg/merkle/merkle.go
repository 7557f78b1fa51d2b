package merkle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// ErrEmptyDistribution is returned when building a tree from an empty
// recipient list.
var ErrEmptyDistribution = errors.New("cannot build merkle tree from empty recipient list")

// HashLeaf computes the leaf hash for one allocation:
// keccak256(address(32) || amount_be(32)).
//
// The layout and hash function are pinned to the settlement contract's
// verifier; substituting either silently breaks all future on-chain
// verification. Amounts above the 32-byte range fail with
// types.ErrAmountOverflow.
func HashLeaf(addr types.Address, amount types.Amount) (common.Hash, error) {
	amountBytes, err := amount.Bytes32()
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode leaf amount: %w", err)
	}

	data := make([]byte, 0, 64)
	data = append(data, addr.Bytes()...)
	data = append(data, amountBytes[:]...)

	return crypto.Keccak256Hash(data), nil
}

// hashPair computes keccak256(min(a,b) || max(a,b)), comparing big-endian
// lexicographically over raw bytes. Sorting makes sibling order irrelevant
// to both proof construction and verification, matching the settlement
// contract's combination rule.
func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}

	data := make([]byte, 64)
	copy(data[0:32], a[:])
	copy(data[32:64], b[:])

	return crypto.Keccak256Hash(data)
}

// BuildTree creates a merkle tree from an ordered recipient list.
//
// Leaves are hashed in input order; recipient order fixes each recipient's
// proof index. Levels are built bottom-up by pairing adjacent nodes. When a
// level has an odd number of nodes the trailing node is promoted by pairing
// it with itself, keccak256(node || node); this must match the settlement
// contract's verifier exactly.
func BuildTree(recipients []types.Recipient) (*Tree, error) {
	if len(recipients) == 0 {
		return nil, ErrEmptyDistribution
	}

	leaves := make([]common.Hash, len(recipients))
	for i, r := range recipients {
		leaf, err := HashLeaf(r.Address, r.Amount)
		if err != nil {
			return nil, fmt.Errorf("failed to hash leaf %d: %w", i, err)
		}
		leaves[i] = leaf
	}

	return buildFromLeaves(leaves)
}

// BuildTreeFromLeaves reconstructs a tree from already-computed leaf hashes,
// e.g. when rehydrating a persisted distribution record.
func BuildTreeFromLeaves(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyDistribution
	}

	copied := make([]common.Hash, len(leaves))
	copy(copied, leaves)

	return buildFromLeaves(copied)
}

func buildFromLeaves(leaves []common.Hash) (*Tree, error) {
	levels := make([][]common.Hash, 0)
	levels = append(levels, leaves)

	// The leaf level always gets at least one pairing round: a
	// single-recipient tree has root = keccak256(leaf || leaf), never the
	// bare leaf, matching the settlement contract.
	currentLevel := leaves
	for len(currentLevel) > 1 || len(levels) == 1 {
		nextLevel := make([]common.Hash, 0, (len(currentLevel)+1)/2)

		for i := 0; i < len(currentLevel); i += 2 {
			left := currentLevel[i]

			// Trailing node on an odd level self-pairs
			right := left
			if i+1 < len(currentLevel) {
				right = currentLevel[i+1]
			}

			nextLevel = append(nextLevel, hashPair(left, right))
		}

		levels = append(levels, nextLevel)
		currentLevel = nextLevel
	}

	if len(currentLevel) != 1 {
		return nil, fmt.Errorf("merkle tree construction failed: final level has %d nodes instead of 1", len(currentLevel))
	}

	return &Tree{
		Leaves: leaves,
		Root:   currentLevel[0],
		levels: levels,
	}, nil
}

// GenerateProof creates the membership proof for the leaf at the given
// index, collecting sibling hashes from leaf to root. A trailing unpaired
// node is its own sibling, mirroring the self-pair rule in BuildTree.
func (t *Tree) GenerateProof(leafIndex int) (*Proof, error) {
	if leafIndex < 0 || leafIndex >= len(t.Leaves) {
		return nil, fmt.Errorf("leaf index %d out of bounds (tree has %d leaves)", leafIndex, len(t.Leaves))
	}

	siblings := make([]common.Hash, 0, t.Depth())
	index := leafIndex

	for level := 0; level < len(t.levels)-1; level++ {
		currentLevel := t.levels[level]

		siblingIndex := index ^ 1
		if siblingIndex >= len(currentLevel) {
			siblingIndex = index
		}

		siblings = append(siblings, currentLevel[siblingIndex])
		index = index / 2
	}

	return &Proof{
		LeafIndex: leafIndex,
		Leaf:      t.Leaves[leafIndex],
		Siblings:  siblings,
	}, nil
}

// VerifyProof recomputes a root by folding the sibling list into the leaf
// via sorted-pair hashing and compares it to the expected root by exact
// byte equality. Sorting makes the fold independent of each sibling's side,
// so no index bookkeeping is needed.
//
// This must match the settlement contract's verification algorithm exactly;
// any divergence is a correctness bug, not a policy choice.
func VerifyProof(leaf common.Hash, siblings []common.Hash, root common.Hash) bool {
	current := leaf
	for _, sibling := range siblings {
		current = hashPair(current, sibling)
	}
	return current == root
}

// Verify checks the proof against the given root.
func (p *Proof) Verify(root common.Hash) bool {
	if p == nil {
		return false
	}
	return VerifyProof(p.Leaf, p.Siblings, root)
}
