package merkle

import (
	"github.com/ethereum/go-ethereum/common"
)

// Tree is a binary merkle tree committing to an ordered recipient list.
// The tree uses keccak256 with sorted-pair hashing for settlement contract
// compatibility.
type Tree struct {
	// Leaves contains the leaf hashes in original recipient order.
	// Recipient order fixes each proof index; permuting recipients
	// generally changes the root.
	Leaves []common.Hash

	// Root is the merkle root, the only value ever published on-chain.
	Root common.Hash

	// levels stores every tree level so proofs can be regenerated without
	// re-deriving from an external source.
	// levels[0] = leaves, levels[len-1] = [root]
	levels [][]common.Hash
}

// Depth returns the number of levels below the root, which equals the
// length of every proof the tree produces.
func (t *Tree) Depth() int {
	return len(t.levels) - 1
}

// Proof is a membership proof for one leaf: the sibling hashes along the
// path from leaf to root.
type Proof struct {
	// LeafIndex is the leaf's position in original recipient order.
	LeafIndex int

	// Leaf is the hash being proven.
	Leaf common.Hash

	// Siblings holds the sibling hashes in leaf-to-root order.
	// Siblings[0] is the leaf's sibling, Siblings[len-1] sits just below
	// the root.
	Siblings []common.Hash
}
