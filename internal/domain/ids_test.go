package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTokenID(t *testing.T, s string) *TokenID {
	t.Helper()
	id, err := ParseTokenID(s)
	require.NoError(t, err)
	return &id
}

func TestParseHash32(t *testing.T) {
	const hex = "0x9deb0baac40648821f96f01339229a422e2f5c877de55dc4dbf981f95a1e709c"
	h, err := ParseHash32(hex)
	require.NoError(t, err)
	assert.Equal(t, hex, h.Hex())

	for _, bad := range []string{"", "0x", "0x12309", "9deb0baac40648821f96f01339229a422e2f5c877de55dc4dbf981f95a1e709c", "0xzz"} {
		_, err := ParseHash32(bad)
		assert.ErrorIs(t, err, ErrInvalidIdentifier, bad)
	}
}

func TestParseAddress(t *testing.T) {
	const lower = "0xc5d563a36ae78145c45a50134d48a1215220f80a"
	a, err := ParseAddress(lower)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(lower), a)

	_, err = ParseAddress("0x1234")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestTokenIDRoundTrip(t *testing.T) {
	const dec = "21742633143463906290569050155826241533067272736897614950488156847949938836455"
	id := mustTokenID(t, dec)
	assert.Equal(t, dec, FormatTokenID(*id))

	key := TokenKey(*id)
	require.Len(t, key, 32)
	back, err := TokenIDFromKey(key)
	require.NoError(t, err)
	assert.Equal(t, *id, back)

	zero := mustTokenID(t, "")
	assert.True(t, zero.IsZero())
	assert.Equal(t, "", FormatTokenID(*zero))

	_, err = ParseTokenID("-1")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	_, err = ParseTokenID("abc")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestEventKeyOrdering(t *testing.T) {
	small, big := EventKey(9), EventKey(10)
	assert.Less(t, string(small), string(big))

	id, err := EventIDFromKey(big)
	require.NoError(t, err)
	assert.Equal(t, EventID(10), id)

	_, err = ParseEventID("  ")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	_, err = ParseEventID("12a")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	id, err = ParseEventID("16085")
	require.NoError(t, err)
	assert.Equal(t, EventID(16085), id)
}
