// Package sui provides the chain primitives the backend needs to talk about
// Sui objects: 32-byte addresses, object references, a BCS encoder, and a
// programmable transaction builder whose output a wallet can sign.
package sui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength is the byte length of a Sui address or object id.
const AddressLength = 32

// ErrInvalidAddress is returned when a string cannot be parsed as an address.
var ErrInvalidAddress = errors.New("sui: invalid address")

// Address is a Sui account address or object id.
type Address [AddressLength]byte

// ClockID is the shared system clock object.
var ClockID = MustParseAddress("0x6")

// ParseAddress parses a 0x-prefixed hex address. Short forms such as "0x2"
// are left-padded to 32 bytes.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Address{}, fmt.Errorf("%w: %q: missing 0x prefix", ErrInvalidAddress, s)
	}
	digits := s[2:]
	if digits == "" || len(digits) > 2*AddressLength {
		return Address{}, fmt.Errorf("%w: %q: bad length", ErrInvalidAddress, s)
	}
	if len(digits)%2 == 1 {
		digits = "0" + digits
	}
	raw, err := hexutil.Decode("0x" + digits)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	return Address(common.BytesToHash(raw)), nil
}

// MustParseAddress is ParseAddress for constants; it panics on bad input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String returns the canonical 64-digit lowercase hex form.
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ObjectRef identifies a specific version of an owned object.
type ObjectRef struct {
	ObjectID Address `json:"objectId"`
	Version  uint64  `json:"version"`
	Digest   string  `json:"digest"` // base58
}

// digestBytes decodes the base58 digest and checks its length.
func (r ObjectRef) digestBytes() ([]byte, error) {
	b := base58.Decode(r.Digest)
	if len(b) != 32 {
		return nil, fmt.Errorf("sui: object %s: digest %q is not 32 bytes", r.ObjectID, r.Digest)
	}
	return b, nil
}
