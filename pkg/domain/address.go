package domain

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	dErrors "rwaledger/pkg/domain-errors"
)

// Address is an account identity: a 20-byte public address.
// Accounts exist implicitly from their first reference and are never deleted.
//
// Usage: construct via ParseAddress at trust boundaries; the zero value is the
// null address and never owns anything.
type Address common.Address

// ZeroAddress is the null account.
var ZeroAddress Address

// ParseAddress validates a 0x-prefixed hex address.
//
// Errors: returns CodeInvalidInput when the value is empty, malformed or the
// zero address.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address cannot be empty")
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address must be 0x-prefixed")
	}
	if !common.IsHexAddress(s) {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	a := Address(common.HexToAddress(s))
	if a.IsZero() {
		return ZeroAddress, dErrors.New(dErrors.CodeInvalidInput, "address cannot be the zero address")
	}
	return a, nil
}

// MustParseAddress panics on invalid input. Intended for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// IsZero reports whether a is the null account.
func (a Address) IsZero() bool {
	return a == ZeroAddress
}

// String returns the EIP-55 checksummed hex form.
func (a Address) String() string {
	return common.Address(a).Hex()
}

// Compare orders addresses by their bytes.
func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. The zero address is
// accepted here so that absent fields round-trip.
func (a *Address) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if !common.IsHexAddress(s) {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid address format")
	}
	*a = Address(common.HexToAddress(s))
	return nil
}
