package codec

import (
	"fmt"
	"strconv"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// FormatKey renders a store key the way operators refer to the record:
// the slug, the decimal token id or the decimal event id. Malformed keys are
// rendered in hex.
func FormatKey(ks domain.Keyspace, key []byte) string {
	switch ks {
	case domain.KeyspaceOrderBooks:
		id, err := domain.TokenIDFromKey(key)
		if err != nil {
			break
		}
		if id.IsZero() {
			return "0"
		}
		return domain.FormatTokenID(id)
	case domain.KeyspaceGammaEvents:
		id, err := domain.EventIDFromKey(key)
		if err != nil {
			break
		}
		return strconv.FormatUint(id, 10)
	default:
		return string(key)
	}
	return fmt.Sprintf("%x", key)
}

// DecodeValue decodes a stored value of ks into a pointer to its domain
// type, ready for JSON or YAML rendering.
func DecodeValue(ks domain.Keyspace, value []byte) (any, error) {
	switch ks {
	case domain.KeyspaceMarketResponses:
		return boxed(UnmarshalMarketResponse(value))
	case domain.KeyspaceMarkets:
		return boxed(UnmarshalMarket(value))
	case domain.KeyspaceOrderBooks:
		return boxed(UnmarshalOrderBook(value))
	case domain.KeyspaceGammaEvents:
		return boxed(UnmarshalGammaEvent(value))
	default:
		return nil, fmt.Errorf("codec: %w: %q", domain.ErrUnknownKeyspace, ks)
	}
}

// boxed returns a pointer so that marshalers declared on pointer receivers,
// such as the one of uint256.Int, apply to nested fields.
func boxed[T any](v T, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return &v, nil
}
