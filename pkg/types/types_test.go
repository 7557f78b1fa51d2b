package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddressPadding(t *testing.T) {
	// Short inputs are left-zero-padded
	addr, err := NewAddress([]byte{0xAB, 0xCD})
	require.NoError(t, err)

	var expected Address
	expected[30] = 0xAB
	expected[31] = 0xCD
	assert.Equal(t, expected, addr)
}

func TestNewAddressTooLong(t *testing.T) {
	_, err := NewAddress(make([]byte, 33))
	require.Error(t, err)
}

func TestAddressHexRoundTrip(t *testing.T) {
	addr, err := NewAddress([]byte{0x01, 0x02, 0x03})
	require.NoError(t, err)

	parsed, err := AddressFromHex(addr.Hex())
	require.NoError(t, err)
	assert.Equal(t, addr, parsed)
}

func TestAddressFromHexInvalid(t *testing.T) {
	for _, s := range []string{"", "abcd", "0xzz", "0x" + string(make([]byte, 70))} {
		_, err := AddressFromHex(s)
		assert.Error(t, err, "input %q should be rejected", s)
	}
}

func TestNewAmountValidation(t *testing.T) {
	_, err := NewAmount(nil)
	assert.Error(t, err)

	_, err = NewAmount(big.NewInt(0))
	assert.Error(t, err, "zero amounts are invalid")

	_, err = NewAmount(big.NewInt(-5))
	assert.Error(t, err)

	amt, err := NewAmount(big.NewInt(1))
	require.NoError(t, err)
	assert.Equal(t, "1", amt.String())
}

func TestAmountBytes32(t *testing.T) {
	amt, err := NewAmountFromUint64(0x0102)
	require.NoError(t, err)

	b, err := amt.Bytes32()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b[30])
	assert.Equal(t, byte(0x02), b[31])
}

func TestAmountBytes32OverflowBoundary(t *testing.T) {
	// 2^256 - 1 fits exactly
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	amt, err := NewAmount(max)
	require.NoError(t, err)

	b, err := amt.Bytes32()
	require.NoError(t, err)
	for i := range b {
		assert.Equal(t, byte(0xFF), b[i])
	}

	// 2^256 overflows and is rejected, never truncated
	over := new(big.Int).Lsh(big.NewInt(1), 256)
	amt, err = NewAmount(over)
	require.NoError(t, err)

	_, err = amt.Bytes32()
	require.ErrorIs(t, err, ErrAmountOverflow)
}

func TestAmountCopySemantics(t *testing.T) {
	v := big.NewInt(100)
	amt, err := NewAmount(v)
	require.NoError(t, err)

	// Mutating the source or the returned big.Int must not affect the amount
	v.SetInt64(999)
	amt.BigInt().SetInt64(5)
	assert.Equal(t, "100", amt.String())
}

func TestAmountJSONRoundTrip(t *testing.T) {
	// Decimal string encoding preserves arbitrary precision
	huge := "123456789012345678901234567890123456789"
	amt, err := NewAmountFromString(huge)
	require.NoError(t, err)

	data, err := json.Marshal(amt)
	require.NoError(t, err)
	assert.Equal(t, `"`+huge+`"`, string(data))

	var decoded Amount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Zero(t, amt.Cmp(decoded))
}

func TestAmountJSONRejectsNonString(t *testing.T) {
	var amt Amount
	assert.Error(t, json.Unmarshal([]byte(`100`), &amt), "numeric JSON would lose precision")
	assert.Error(t, json.Unmarshal([]byte(`"0"`), &amt))
	assert.Error(t, json.Unmarshal([]byte(`"1.5"`), &amt))
}

func TestRecipientJSONRoundTrip(t *testing.T) {
	addr, err := NewAddress([]byte{0x42})
	require.NoError(t, err)
	amt, err := NewAmountFromUint64(700)
	require.NoError(t, err)

	r := Recipient{Address: addr, Amount: amt}

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded Recipient
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.Address, decoded.Address)
	assert.Zero(t, r.Amount.Cmp(decoded.Amount))
}

func TestDistributionRecordTotalAmount(t *testing.T) {
	mk := func(amount uint64) Recipient {
		addr, err := NewAddress([]byte{byte(amount)})
		require.NoError(t, err)
		amt, err := NewAmountFromUint64(amount)
		require.NoError(t, err)
		return Recipient{Address: addr, Amount: amt}
	}

	record := &DistributionRecord{
		Recipients: []Recipient{mk(100), mk(200), mk(30)},
	}
	assert.Equal(t, "330", record.TotalAmount().String())
}
