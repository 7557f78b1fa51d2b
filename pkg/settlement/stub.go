package settlement

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"

	"github.com/merkledrop-labs/merkledrop/pkg/merkle"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// StubClient is an in-memory settlement client for tests and local dry
// runs. It mirrors the contract's observable behavior: it issues
// distribution ids, stores roots, and verifies claim proofs with the same
// leaf layout and sorted-pair fold the on-chain verifier uses, so a proof
// accepted here is byte-for-byte the proof the contract would accept.
type StubClient struct {
	mu            sync.Mutex
	distributions map[string]*stubDistribution
}

type stubDistribution struct {
	root      common.Hash
	remaining *big.Int
	expiry    time.Time
	claimed   map[types.Address]bool
}

var _ ISettlementClient = (*StubClient)(nil)

// NewStubClient creates an empty stub settlement client.
func NewStubClient() *StubClient {
	return &StubClient{
		distributions: make(map[string]*stubDistribution),
	}
}

// CreateDistribution issues a fresh distribution id and records the root.
func (s *StubClient) CreateDistribution(ctx context.Context, root common.Hash, totalAmount *big.Int, expiry time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if totalAmount == nil || totalAmount.Sign() <= 0 {
		return "", fmt.Errorf("total amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.distributions[id] = &stubDistribution{
		root:      root,
		remaining: new(big.Int).Set(totalAmount),
		expiry:    expiry,
		claimed:   make(map[types.Address]bool),
	}

	return id, nil
}

// Claim verifies the packed proof against the stored root and marks the
// claimer as settled.
func (s *StubClient) Claim(ctx context.Context, distributionID string, claimer types.Address, amount types.Amount, proofBytes []byte) (*ClaimReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dist, exists := s.distributions[distributionID]
	if !exists {
		return nil, fmt.Errorf("unknown distribution %s", distributionID)
	}
	if !dist.expiry.IsZero() && time.Now().After(dist.expiry) {
		return nil, fmt.Errorf("distribution %s has expired", distributionID)
	}
	if dist.claimed[claimer] {
		return nil, fmt.Errorf("address %s has already claimed from distribution %s", claimer.Hex(), distributionID)
	}

	// Same verification the on-chain contract performs
	leaf, err := merkle.HashLeaf(claimer, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to hash claim leaf: %w", err)
	}
	siblings, err := merkle.UnpackProof(proofBytes)
	if err != nil {
		return nil, fmt.Errorf("malformed proof: %w", err)
	}
	if !merkle.VerifyProof(leaf, siblings, dist.root) {
		return nil, fmt.Errorf("proof verification failed for %s", claimer.Hex())
	}

	amt := amount.BigInt()
	if dist.remaining.Cmp(amt) < 0 {
		return nil, fmt.Errorf("distribution %s underfunded: %s remaining, %s claimed", distributionID, dist.remaining, amt)
	}

	dist.remaining.Sub(dist.remaining, amt)
	dist.claimed[claimer] = true

	txMaterial := append([]byte(distributionID), claimer.Bytes()...)
	return &ClaimReceipt{
		DistributionID: distributionID,
		Claimer:        claimer,
		Amount:         amount,
		TxHash:         crypto.Keccak256Hash(txMaterial),
		SettledAt:      time.Now(),
	}, nil
}

// HasClaimed reports whether the address already claimed.
func (s *StubClient) HasClaimed(ctx context.Context, distributionID string, claimer types.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dist, exists := s.distributions[distributionID]
	if !exists {
		return false, fmt.Errorf("unknown distribution %s", distributionID)
	}

	return dist.claimed[claimer], nil
}
