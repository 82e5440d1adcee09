package chain

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// AddressPrefix is the human-readable bech32 prefix used when rendering an
// Address as text.
type AddressPrefix string

// HRP is the single human-readable prefix used throughout the core. Unlike
// the teacher chain, Gravity does not distinguish a second asset namespace at
// the address layer.
const HRP AddressPrefix = "gv"

// Address is a 20-byte account identifier. It is comparable and usable as a
// map key, which the validator pubkey-uniqueness set and the pool registry
// both rely on.
type Address [20]byte

// ZeroAddress is the all-zero sentinel used for "no pending owner" and
// similar optional-reference fields.
var ZeroAddress Address

// String renders the address using bech32, matching the encoding the teacher
// chain uses for NHB/ZNHB accounts.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(fmt.Sprintf("chain: address bit conversion: %v", err))
	}
	encoded, err := bech32.Encode(string(HRP), conv)
	if err != nil {
		panic(fmt.Sprintf("chain: bech32 encode: %v", err))
	}
	return encoded
}

// IsZero reports whether the address is the zero value.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// Bytes returns a defensive copy of the address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, len(a))
	copy(out, a[:])
	return out
}

// ParseAddress decodes a bech32-encoded Gravity address.
func ParseAddress(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("chain: invalid bech32 address: %w", err)
	}
	if AddressPrefix(hrp) != HRP {
		return Address{}, fmt.Errorf("chain: unsupported address prefix %q", hrp)
	}
	decoded, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("chain: invalid bech32 payload: %w", err)
	}
	if len(decoded) != len(Address{}) {
		return Address{}, fmt.Errorf("chain: invalid address length %d", len(decoded))
	}
	var addr Address
	copy(addr[:], decoded)
	return addr, nil
}

// BytesToAddress truncates/right-aligns b into an Address, matching the
// go-ethereum common.BytesToAddress convention the teacher leans on.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > len(addr) {
		b = b[len(b)-len(addr):]
	}
	copy(addr[len(addr)-len(b):], b)
	return addr
}
