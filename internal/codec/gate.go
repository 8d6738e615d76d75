package codec

import (
	"strings"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/alanyoungcy/polycache/internal/platform/polymarket"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Admitted is a record that passed the gate, ready to be written.
type Admitted[T any] struct {
	Key    []byte
	Value  T
	Binary []byte
}

// compareOpts treats nil and empty collections alike (JSON null vs []) and
// compares hex identifiers without regard to letter case.
var compareOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
	cmp.Comparer(func(a, b polymarket.Hex) bool {
		return strings.EqualFold(string(a), string(b))
	}),
}

// AdmitMarketResponse converts raw, encodes it for the store, then decodes
// the encoding and converts it back. The record is admitted only if that
// reproduces raw exactly.
func AdmitMarketResponse(raw *polymarket.MarketResponse) (Admitted[domain.MarketResponse], error) {
	precise, err := MarketResponseFromRaw(raw)
	if err != nil {
		return Admitted[domain.MarketResponse]{}, &ConversionError{Kind: KindMarketResponse, Key: raw.MarketSlug, Input: raw, Err: err}
	}
	bin := MarshalMarketResponse(&precise)
	decoded, err := UnmarshalMarketResponse(bin)
	if err != nil {
		return Admitted[domain.MarketResponse]{}, &ConversionError{Kind: KindMarketResponse, Key: raw.MarketSlug, Input: raw, Err: err}
	}
	back := MarketResponseToRaw(&decoded)
	if diff := cmp.Diff(*raw, back, compareOpts...); diff != "" {
		return Admitted[domain.MarketResponse]{}, &RoundTripError{Kind: KindMarketResponse, Key: raw.MarketSlug, Diff: diff}
	}
	return Admitted[domain.MarketResponse]{Key: []byte(precise.Slug), Value: precise, Binary: bin}, nil
}

// AdmitMarket derives the flat market of an admitted response. It returns
// ok == false for unlaunched markets, which have no derived form.
func AdmitMarket(resp *domain.MarketResponse) (adm Admitted[domain.Market], ok bool, err error) {
	m, err := DeriveMarket(resp)
	if err != nil {
		return adm, false, &ConversionError{Kind: KindMarket, Key: resp.Slug, Input: resp, Err: err}
	}
	if m == nil {
		return adm, false, nil
	}
	bin := MarshalMarket(m)
	decoded, err := UnmarshalMarket(bin)
	if err != nil {
		return adm, false, &ConversionError{Kind: KindMarket, Key: resp.Slug, Input: resp, Err: err}
	}
	if diff := cmp.Diff(*m, decoded, compareOpts...); diff != "" {
		return adm, false, &RoundTripError{Kind: KindMarket, Key: resp.Slug, Diff: diff}
	}
	return Admitted[domain.Market]{Key: []byte(m.Slug), Value: *m, Binary: bin}, true, nil
}

// AdmitOrderBook is AdmitMarketResponse for order books.
func AdmitOrderBook(raw *polymarket.OrderBookSummary) (Admitted[domain.OrderBookSummary], error) {
	precise, err := OrderBookFromRaw(raw)
	if err != nil {
		return Admitted[domain.OrderBookSummary]{}, &ConversionError{Kind: KindOrderBook, Key: raw.AssetID, Input: raw, Err: err}
	}
	bin := MarshalOrderBook(&precise)
	decoded, err := UnmarshalOrderBook(bin)
	if err != nil {
		return Admitted[domain.OrderBookSummary]{}, &ConversionError{Kind: KindOrderBook, Key: raw.AssetID, Input: raw, Err: err}
	}
	back := OrderBookToRaw(&decoded)
	if diff := cmp.Diff(*raw, back, compareOpts...); diff != "" {
		return Admitted[domain.OrderBookSummary]{}, &RoundTripError{Kind: KindOrderBook, Key: raw.AssetID, Diff: diff}
	}
	return Admitted[domain.OrderBookSummary]{Key: domain.TokenKey(precise.TokenID), Value: precise, Binary: bin}, nil
}

// AdmitGammaEvent converts raw and checks that the stored encoding decodes
// to the same value. Events are truncated on purpose, so the comparison is
// against the strict form rather than raw.
func AdmitGammaEvent(raw *polymarket.Event) (Admitted[domain.GammaEvent], error) {
	precise, err := GammaEventFromRaw(raw)
	if err != nil {
		return Admitted[domain.GammaEvent]{}, &ConversionError{Kind: KindGammaEvent, Key: raw.ID, Input: raw, Err: err}
	}
	bin := MarshalGammaEvent(&precise)
	decoded, err := UnmarshalGammaEvent(bin)
	if err != nil {
		return Admitted[domain.GammaEvent]{}, &ConversionError{Kind: KindGammaEvent, Key: raw.ID, Input: raw, Err: err}
	}
	if diff := cmp.Diff(precise, decoded, compareOpts...); diff != "" {
		return Admitted[domain.GammaEvent]{}, &RoundTripError{Kind: KindGammaEvent, Key: raw.ID, Diff: diff}
	}
	return Admitted[domain.GammaEvent]{Key: domain.EventKey(precise.ID), Value: precise, Binary: bin}, nil
}
