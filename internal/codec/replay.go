package codec

import (
	"bytes"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// Replayable lists the keyspaces whose records keep their API form and can
// be pushed through the admission gate again.
var Replayable = []domain.Keyspace{
	domain.KeyspaceMarketResponses,
	domain.KeyspaceOrderBooks,
}

// Replay decodes a stored record, renders it back to its API form and runs
// that through the admission gate. The record passes when the gate admits
// it under the same key with the same value.
func Replay(ks domain.Keyspace, key, value []byte) error {
	switch ks {
	case domain.KeyspaceMarketResponses:
		stored, err := UnmarshalMarketResponse(value)
		if err != nil {
			return fmt.Errorf("codec: decode %s %q: %w", KindMarketResponse, FormatKey(ks, key), err)
		}
		raw := MarketResponseToRaw(&stored)
		adm, err := AdmitMarketResponse(&raw)
		if err != nil {
			return err
		}
		return sameAdmission(KindMarketResponse, ks, key, adm.Key, stored, adm.Value)
	case domain.KeyspaceOrderBooks:
		stored, err := UnmarshalOrderBook(value)
		if err != nil {
			return fmt.Errorf("codec: decode %s %q: %w", KindOrderBook, FormatKey(ks, key), err)
		}
		raw := OrderBookToRaw(&stored)
		adm, err := AdmitOrderBook(&raw)
		if err != nil {
			return err
		}
		return sameAdmission(KindOrderBook, ks, key, adm.Key, stored, adm.Value)
	default:
		return fmt.Errorf("codec: replay: %w: %q", domain.ErrUnknownKeyspace, ks)
	}
}

func sameAdmission[T any](kind string, ks domain.Keyspace, storedKey, admittedKey []byte, stored, admitted T) error {
	name := FormatKey(ks, storedKey)
	if !bytes.Equal(storedKey, admittedKey) {
		return &RoundTripError{Kind: kind, Key: name, Diff: "key readmitted as " + FormatKey(ks, admittedKey)}
	}
	if diff := cmp.Diff(stored, admitted, compareOpts...); diff != "" {
		return &RoundTripError{Kind: kind, Key: name, Diff: diff}
	}
	return nil
}
