package distributor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/merkledrop-labs/merkledrop/pkg/merkle"
	"github.com/merkledrop-labs/merkledrop/pkg/persistence/memory"
	"github.com/merkledrop-labs/merkledrop/pkg/settlement"
	"github.com/merkledrop-labs/merkledrop/pkg/types"
)

func testRecipients(t *testing.T, n int) []types.Recipient {
	t.Helper()

	recipients := make([]types.Recipient, n)
	for i := range recipients {
		addr, err := types.NewAddress([]byte{byte(i + 1)})
		require.NoError(t, err)
		amount, err := types.NewAmountFromUint64(uint64(100 * (i + 1)))
		require.NoError(t, err)
		recipients[i] = types.Recipient{Address: addr, Amount: amount}
	}
	return recipients
}

func newTestDistributor(t *testing.T) (*Distributor, *memory.MemoryStore, *settlement.StubClient) {
	t.Helper()

	store := memory.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	client := settlement.NewStubClient()
	return New(store, client, zap.NewNop()), store, client
}

func TestCreateDistribution(t *testing.T) {
	ctx := context.Background()
	d, store, _ := newTestDistributor(t)

	recipients := testRecipients(t, 5)
	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.NotEmpty(t, record.DistributionID)
	assert.Len(t, record.Leaves, 5)
	assert.Equal(t, "1500", record.TotalAmount().String())

	// The record is durably stored under the issued id
	stored, err := store.LoadDistribution(record.DistributionID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, record.Root, stored.Root)
}

func TestCreateDistributionEmpty(t *testing.T) {
	ctx := context.Background()
	d, store, _ := newTestDistributor(t)

	// No root is published and nothing is persisted
	_, err := d.CreateDistribution(ctx, nil, time.Now().Add(time.Hour))
	require.ErrorIs(t, err, merkle.ErrEmptyDistribution)

	ids, err := store.ListDistributionIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCreateDistributionCancelled(t *testing.T) {
	d, store, _ := newTestDistributor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.CreateDistribution(ctx, testRecipients(t, 100), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, context.Canceled)

	// Cancellation discards the build; no partial state
	ids, err := store.ListDistributionIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestProveAllocation(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	recipients := testRecipients(t, 5)
	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)

	allocation, err := d.ProveAllocation(ctx, record.DistributionID, recipients[3].Address)
	require.NoError(t, err)

	assert.Equal(t, 3, allocation.LeafIndex)
	assert.Zero(t, recipients[3].Amount.Cmp(allocation.Amount))

	// The packed proof verifies against the persisted root
	leaf, err := merkle.HashLeaf(recipients[3].Address, recipients[3].Amount)
	require.NoError(t, err)
	siblings, err := merkle.UnpackProof(allocation.Proof)
	require.NoError(t, err)
	assert.True(t, merkle.VerifyProof(leaf, siblings, record.Root))
}

func TestProveAllocationNotEligible(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	record, err := d.CreateDistribution(ctx, testRecipients(t, 3), time.Now().Add(time.Hour))
	require.NoError(t, err)

	outsider, err := types.NewAddress([]byte{0xFF})
	require.NoError(t, err)

	_, err = d.ProveAllocation(ctx, record.DistributionID, outsider)
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestProveAllocationMissingRecord(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	addr, err := types.NewAddress([]byte{0x01})
	require.NoError(t, err)

	_, err = d.ProveAllocation(ctx, "no-such-distribution", addr)
	require.ErrorIs(t, err, ErrProofUnavailable)
}

func TestProveAllocationCorruptRecord(t *testing.T) {
	ctx := context.Background()
	d, store, _ := newTestDistributor(t)

	recipients := testRecipients(t, 3)
	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)

	store.Corrupt(record.DistributionID)

	_, err = d.ProveAllocation(ctx, record.DistributionID, recipients[0].Address)
	require.ErrorIs(t, err, ErrProofUnavailable)
}

func TestProveAllocationStaleRoot(t *testing.T) {
	ctx := context.Background()
	d, store, _ := newTestDistributor(t)

	recipients := testRecipients(t, 3)
	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// A record whose recipients no longer reproduce its root is corrupt
	tampered, err := store.LoadDistribution(record.DistributionID)
	require.NoError(t, err)
	changed, err := types.NewAmountFromUint64(5)
	require.NoError(t, err)
	tampered.Recipients[1].Amount = changed
	require.NoError(t, store.SaveDistribution(tampered))

	_, err = d.ProveAllocation(ctx, record.DistributionID, recipients[0].Address)
	require.ErrorIs(t, err, ErrProofUnavailable)
}

func TestClaimEndToEnd(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	recipients := testRecipients(t, 5)
	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)

	claimer := recipients[2].Address

	claimed, err := d.HasClaimed(ctx, record.DistributionID, claimer)
	require.NoError(t, err)
	assert.False(t, claimed)

	receipt, err := d.Claim(ctx, record.DistributionID, claimer)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, claimer, receipt.Claimer)

	claimed, err = d.HasClaimed(ctx, record.DistributionID, claimer)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim fails at the settlement layer, not locally
	_, err = d.Claim(ctx, record.DistributionID, claimer)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotEligible)
}

func TestClaimDuplicateRecipientUsesFirstMatch(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	addr, err := types.NewAddress([]byte{0x42})
	require.NoError(t, err)
	amount, err := types.NewAmountFromUint64(50)
	require.NoError(t, err)

	recipients := []types.Recipient{
		{Address: addr, Amount: amount},
		{Address: addr, Amount: amount},
	}

	record, err := d.CreateDistribution(ctx, recipients, time.Now().Add(time.Hour))
	require.NoError(t, err)

	allocation, err := d.ProveAllocation(ctx, record.DistributionID, addr)
	require.NoError(t, err)
	assert.Equal(t, 0, allocation.LeafIndex)
}

func TestGetDistribution(t *testing.T) {
	ctx := context.Background()
	d, _, _ := newTestDistributor(t)

	record, err := d.CreateDistribution(ctx, testRecipients(t, 2), time.Now().Add(time.Hour))
	require.NoError(t, err)

	loaded, err := d.GetDistribution(record.DistributionID)
	require.NoError(t, err)
	assert.Equal(t, record.Root, loaded.Root)

	_, err = d.GetDistribution("missing")
	require.ErrorIs(t, err, ErrProofUnavailable)
}
