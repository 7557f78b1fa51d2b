package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrAmountOverflow is returned when an amount cannot be represented in the
// 32-byte big-endian slot the settlement contract expects.
var ErrAmountOverflow = errors.New("amount exceeds 32-byte range")

// AddressLength is the canonical address size in bytes.
// Address normalization (bech32/hex resolution, registry fallback) happens
// upstream; this package only ever sees canonical 32-byte values.
const AddressLength = 32

// Address is a canonical 32-byte on-chain address.
type Address [AddressLength]byte

// NewAddress builds an Address from raw bytes. Inputs shorter than 32 bytes
// are left-zero-padded to match the settlement contract's convention;
// inputs longer than 32 bytes are rejected.
func NewAddress(b []byte) (Address, error) {
	var a Address
	if len(b) > AddressLength {
		return a, fmt.Errorf("address is %d bytes, max %d", len(b), AddressLength)
	}
	copy(a[AddressLength-len(b):], b)
	return a, nil
}

// AddressFromHex parses a 0x-prefixed hex string into an Address.
func AddressFromHex(s string) (Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address hex: %w", err)
	}
	return NewAddress(b)
}

// Bytes returns the address as a 32-byte slice.
func (a Address) Bytes() []byte {
	return a[:]
}

// Hex returns the 0x-prefixed hex encoding of the address.
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// MarshalText implements encoding.TextMarshaler, encoding as 0x-prefixed hex.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := AddressFromHex(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Amount is an unsigned arbitrary-precision token amount.
// The zero value is invalid; construct via NewAmount or NewAmountFromString.
// Amounts serialize as decimal strings, never floats, so precision survives
// a persistence round trip exactly.
type Amount struct {
	i *big.Int
}

// NewAmount creates an Amount from a big.Int. The value is copied.
// Amounts must be strictly positive.
func NewAmount(v *big.Int) (Amount, error) {
	if v == nil {
		return Amount{}, fmt.Errorf("amount cannot be nil")
	}
	if v.Sign() <= 0 {
		return Amount{}, fmt.Errorf("amount must be positive, got %s", v.String())
	}
	return Amount{i: new(big.Int).Set(v)}, nil
}

// NewAmountFromUint64 creates an Amount from a uint64.
func NewAmountFromUint64(v uint64) (Amount, error) {
	return NewAmount(new(big.Int).SetUint64(v))
}

// NewAmountFromString parses a decimal string into an Amount.
func NewAmountFromString(s string) (Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid decimal amount %q", s)
	}
	return NewAmount(v)
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	if a.i == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.i)
}

// Bytes32 returns the amount as a 32-byte big-endian value, the layout the
// settlement contract hashes. Amounts above 2^256-1 are rejected rather
// than truncated.
func (a Amount) Bytes32() ([32]byte, error) {
	var out [32]byte
	if a.i == nil {
		return out, fmt.Errorf("amount is uninitialized")
	}
	if a.i.BitLen() > 256 {
		return out, fmt.Errorf("%w: %d bits", ErrAmountOverflow, a.i.BitLen())
	}
	a.i.FillBytes(out[:])
	return out, nil
}

// Cmp compares two amounts like big.Int.Cmp.
func (a Amount) Cmp(other Amount) int {
	return a.BigInt().Cmp(other.BigInt())
}

// String returns the decimal representation.
func (a Amount) String() string {
	if a.i == nil {
		return "0"
	}
	return a.i.String()
}

// MarshalJSON encodes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	if a.i == nil {
		return nil, fmt.Errorf("cannot marshal uninitialized amount")
	}
	return json.Marshal(a.i.String())
}

// UnmarshalJSON decodes a decimal string amount.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	parsed, err := NewAmountFromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Recipient is one (address, amount) allocation in a distribution.
// Duplicate (address, amount) pairs are permitted and produce identical
// leaves.
type Recipient struct {
	Address Address `json:"address"`
	Amount  Amount  `json:"amount"`
}

// DistributionRecord is the durable record of one distribution: everything
// needed to regenerate any recipient's proof without re-acquiring the
// original recipient list. Created once at distribution-creation time and
// never mutated afterwards. Losing it only disables local proof
// regeneration; on-chain state is unaffected.
//
// The document is versionless; root and leaves serialize as hex, amounts
// as decimal strings.
type DistributionRecord struct {
	DistributionID string        `json:"distributionId"`
	Root           common.Hash   `json:"root"`
	Leaves         []common.Hash `json:"leaves"`
	Recipients     []Recipient   `json:"recipients"`
}

// TotalAmount sums all recipient amounts.
func (r *DistributionRecord) TotalAmount() *big.Int {
	total := new(big.Int)
	for _, rec := range r.Recipients {
		total.Add(total, rec.Amount.BigInt())
	}
	return total
}
