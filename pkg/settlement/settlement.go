package settlement

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// ISettlementClient is the boundary to the on-chain settlement contract.
// The contract holds the escrowed tokens, stores each distribution's merkle
// root, and verifies claim proofs on-chain. Wallet connectivity, transaction
// signing and RPC plumbing all live behind this interface; the distribution
// core only produces roots and proof bytes for it.
type ISettlementClient interface {
	// CreateDistribution commits a merkle root on-chain and escrows
	// totalAmount until expiry. Returns the distribution id issued by the
	// contract, the sole source of id uniqueness.
	CreateDistribution(ctx context.Context, root common.Hash, totalAmount *big.Int, expiry time.Time) (string, error)

	// Claim submits a packed proof to withdraw the claimer's allocation.
	// proofBytes is the flat 32-byte-aligned sibling buffer produced by
	// merkle.PackProof.
	Claim(ctx context.Context, distributionID string, claimer types.Address, amount types.Amount, proofBytes []byte) (*ClaimReceipt, error)

	// HasClaimed reports whether the address already withdrew its
	// allocation from the distribution.
	HasClaimed(ctx context.Context, distributionID string, claimer types.Address) (bool, error)
}

// ClaimReceipt describes a settled claim.
type ClaimReceipt struct {
	DistributionID string        `json:"distributionId"`
	Claimer        types.Address `json:"claimer"`
	Amount         types.Amount  `json:"amount"`
	TxHash         common.Hash   `json:"txHash"`
	SettledAt      time.Time     `json:"settledAt"`
}
