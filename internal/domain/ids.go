package domain

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// ConditionID identifies a CTF condition (one binary market).
type ConditionID = common.Hash

// QuestionID identifies the oracle question backing a condition.
type QuestionID = common.Hash

// TokenID is the ERC-1155 position id of one outcome token. The venue sends
// it as a decimal string of up to 78 digits.
type TokenID = uint256.Int

// EventID is the numeric Gamma event id.
type EventID = uint64

// ParseHash32 parses a 0x-prefixed 32-byte hex identifier.
func ParseHash32(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%w: %q: %v", ErrInvalidIdentifier, s, err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidIdentifier, s, len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

// ParseAddress parses a 0x-prefixed 20-byte hex address.
func ParseAddress(s string) (common.Address, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %q: %v", ErrInvalidIdentifier, s, err)
	}
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %q has %d bytes, want %d", ErrInvalidIdentifier, s, len(b), common.AddressLength)
	}
	return common.BytesToAddress(b), nil
}

// ParseTokenID parses a decimal token id. The empty string is the venue's
// placeholder for markets that were never launched and maps to zero.
func ParseTokenID(s string) (TokenID, error) {
	if s == "" {
		return TokenID{}, nil
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return TokenID{}, fmt.Errorf("%w: token id %q: %v", ErrInvalidIdentifier, s, err)
	}
	return *v, nil
}

// FormatTokenID is the inverse of ParseTokenID.
func FormatTokenID(id TokenID) string {
	if id.IsZero() {
		return ""
	}
	return id.Dec()
}

// TokenKey is the store key of a token: its 32-byte big-endian encoding.
func TokenKey(id TokenID) []byte {
	b := id.Bytes32()
	return b[:]
}

// TokenIDFromKey decodes a key produced by TokenKey.
func TokenIDFromKey(key []byte) (TokenID, error) {
	if len(key) != 32 {
		return TokenID{}, fmt.Errorf("%w: token key has %d bytes", ErrInvalidIdentifier, len(key))
	}
	var id TokenID
	id.SetBytes32(key)
	return id, nil
}

// ParseEventID parses a Gamma event id. Blank and non-numeric ids are invalid.
func ParseEventID(s string) (EventID, error) {
	if strings.TrimSpace(s) == "" {
		return 0, fmt.Errorf("%w: event id is empty", ErrInvalidIdentifier)
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: event id %q: %v", ErrInvalidIdentifier, s, err)
	}
	return id, nil
}

// EventKey is the store key of an event: its 8-byte big-endian id, so keys
// sort in the same order the provider paginates them.
func EventKey(id EventID) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

// EventIDFromKey decodes a key produced by EventKey.
func EventIDFromKey(key []byte) (EventID, error) {
	if len(key) != 8 {
		return 0, fmt.Errorf("%w: event key has %d bytes", ErrInvalidIdentifier, len(key))
	}
	return binary.BigEndian.Uint64(key), nil
}
