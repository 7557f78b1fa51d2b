package distributor

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/merkledrop-labs/merkledrop/pkg/merkle"
	"github.com/merkledrop-labs/merkledrop/pkg/persistence"
	"github.com/merkledrop-labs/merkledrop/pkg/settlement"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

// Distributor orchestrates distribution creation and claim proof
// regeneration. It holds no state of its own: the settlement client owns
// all on-chain effects and the store owns the durable records.
type Distributor struct {
	store      persistence.IDistributionStore
	settlement settlement.ISettlementClient
	logger     *zap.Logger
}

// New creates a Distributor.
func New(store persistence.IDistributionStore, settlementClient settlement.ISettlementClient, logger *zap.Logger) *Distributor {
	return &Distributor{
		store:      store,
		settlement: settlementClient,
		logger:     logger,
	}
}

// Allocation is one claimer's proof material: everything the settlement
// client needs except the transaction itself.
type Allocation struct {
	DistributionID string
	LeafIndex      int
	Amount         types.Amount
	Proof          []byte // packed sibling path, 32-byte aligned
}

// CreateDistribution builds the merkle tree for the recipient list,
// publishes the root through the settlement client, and persists the full
// record under the id the contract issued.
//
// Build-time errors (empty list, amount overflow) abort before any root is
// published: a root that cannot later produce valid proofs must never be
// committed. There is no partial state: a distribution is either fully
// built and persisted, or it does not exist.
//
// The tree build runs on a background goroutine; cancelling ctx abandons
// the in-progress computation, which has no side effects.
func (d *Distributor) CreateDistribution(ctx context.Context, recipients []types.Recipient, expiry time.Time) (*types.DistributionRecord, error) {
	tree, err := buildTree(ctx, recipients)
	if err != nil {
		return nil, err
	}

	record := &types.DistributionRecord{
		Root:       tree.Root,
		Leaves:     tree.Leaves,
		Recipients: recipients,
	}

	id, err := d.settlement.CreateDistribution(ctx, tree.Root, record.TotalAmount(), expiry)
	if err != nil {
		return nil, errors.Wrap(err, "settlement client rejected distribution")
	}
	record.DistributionID = id

	if err := d.store.SaveDistribution(record); err != nil {
		// The root is already on-chain; without the record local proof
		// regeneration is impossible, so surface loudly.
		d.logger.Sugar().Errorw("Distribution committed on-chain but record not persisted",
			"distributionId", id, "error", err)
		return nil, errors.Wrapf(err, "failed to persist distribution %s", id)
	}

	d.logger.Sugar().Infow("Distribution created",
		"distributionId", id,
		"root", tree.Root.Hex(),
		"recipients", len(recipients),
		"totalAmount", record.TotalAmount().String(),
	)

	return record, nil
}

// buildTree runs the CPU-bound tree construction on its own goroutine so a
// cancelled caller isn't blocked behind a large build.
func buildTree(ctx context.Context, recipients []types.Recipient) (*merkle.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		tree *merkle.Tree
		err  error
	}

	// Buffered so an abandoned build doesn't leak the goroutine
	ch := make(chan result, 1)
	go func() {
		tree, err := merkle.BuildTree(recipients)
		ch <- result{tree: tree, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.tree, r.err
	}
}

// ProveAllocation regenerates the claim proof for one address: load the
// record, locate the allocation, rebuild the tree, generate and self-verify
// the proof, and pack it for submission. No on-chain effects.
func (d *Distributor) ProveAllocation(ctx context.Context, distributionID string, claimer types.Address) (*Allocation, error) {
	record, err := d.store.LoadDistribution(distributionID)
	if err != nil {
		d.logger.Sugar().Warnw("Failed to load distribution record",
			"distributionId", distributionID, "error", err)
		return nil, errors.Wrap(ErrProofUnavailable, err.Error())
	}
	if record == nil {
		return nil, errors.Wrapf(ErrProofUnavailable, "no record for distribution %s", distributionID)
	}

	// Linear scan on the canonical address. O(N) per lookup is acceptable
	// at airdrop scale; an address->index map would remove it if claim
	// volume ever warrants.
	leafIndex := -1
	for i, r := range record.Recipients {
		if r.Address == claimer {
			leafIndex = i
			break
		}
	}
	if leafIndex < 0 {
		return nil, errors.Wrapf(ErrNotEligible, "address %s in distribution %s", claimer.Hex(), distributionID)
	}

	tree, err := buildTree(ctx, record.Recipients)
	if err != nil {
		return nil, err
	}

	// A rebuilt root that differs from the stored one means the record no
	// longer describes the on-chain distribution.
	if tree.Root != record.Root {
		d.logger.Sugar().Errorw("Rebuilt root does not match stored root",
			"distributionId", distributionID,
			"storedRoot", record.Root.Hex(),
			"rebuiltRoot", tree.Root.Hex(),
		)
		return nil, errors.Wrapf(ErrProofUnavailable, "distribution %s record is corrupted", distributionID)
	}

	proof, err := tree.GenerateProof(leafIndex)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to generate proof for leaf %d", leafIndex)
	}

	if !proof.Verify(record.Root) {
		// Defect in build or persistence, not a user condition
		d.logger.Sugar().Errorw("Generated proof failed self-verification",
			"distributionId", distributionID, "leafIndex", leafIndex)
		return nil, errors.Wrapf(ErrVerificationMismatch, "leaf %d of distribution %s", leafIndex, distributionID)
	}

	return &Allocation{
		DistributionID: distributionID,
		LeafIndex:      leafIndex,
		Amount:         record.Recipients[leafIndex].Amount,
		Proof:          merkle.PackProof(proof.Siblings),
	}, nil
}

// Claim regenerates the proof and submits it through the settlement client.
func (d *Distributor) Claim(ctx context.Context, distributionID string, claimer types.Address) (*settlement.ClaimReceipt, error) {
	allocation, err := d.ProveAllocation(ctx, distributionID, claimer)
	if err != nil {
		return nil, err
	}

	receipt, err := d.settlement.Claim(ctx, distributionID, claimer, allocation.Amount, allocation.Proof)
	if err != nil {
		return nil, errors.Wrapf(err, "settlement claim failed for %s", claimer.Hex())
	}

	d.logger.Sugar().Infow("Claim settled",
		"distributionId", distributionID,
		"claimer", claimer.Hex(),
		"amount", allocation.Amount.String(),
		"txHash", receipt.TxHash.Hex(),
	)

	return receipt, nil
}

// HasClaimed reports whether the address already claimed, via the
// settlement client.
func (d *Distributor) HasClaimed(ctx context.Context, distributionID string, claimer types.Address) (bool, error) {
	return d.settlement.HasClaimed(ctx, distributionID, claimer)
}

// GetDistribution loads the persisted record for inspection.
func (d *Distributor) GetDistribution(distributionID string) (*types.DistributionRecord, error) {
	record, err := d.store.LoadDistribution(distributionID)
	if err != nil {
		return nil, errors.Wrap(ErrProofUnavailable, err.Error())
	}
	if record == nil {
		return nil, errors.Wrapf(ErrProofUnavailable, "no record for distribution %s", distributionID)
	}
	return record, nil
}
