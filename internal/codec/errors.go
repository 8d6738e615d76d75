package codec

import (
	"fmt"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// Record kinds used in error messages.
const (
	KindMarketResponse = "market_response"
	KindMarket         = "market"
	KindOrderBook      = "order_book"
	KindGammaEvent     = "gamma_event"
)

// ConversionError reports a raw record the strict model cannot represent.
type ConversionError struct {
	Kind  string
	Key   string
	Input any
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("codec: convert %s %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// RoundTripError reports a record whose strict form does not reproduce the
// raw input. Diff is the go-cmp report (-raw +round-tripped).
type RoundTripError struct {
	Kind string
	Key  string
	Diff string
}

func (e *RoundTripError) Error() string {
	return fmt.Sprintf("codec: %s %q does not round trip (-raw +round-tripped):\n%s", e.Kind, e.Key, e.Diff)
}

func (e *RoundTripError) Unwrap() error { return domain.ErrRoundTripMismatch }
