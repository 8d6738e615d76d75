package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FreshnessCutoff is the earliest market end date the Gamma conversion
// supports. Older markets use shapes that are not modelled.
var FreshnessCutoff = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// GammaMarket is the slice of a Gamma market needed for cascade analysis.
type GammaMarket struct {
	Question string              `json:"question"`
	Outcomes []string            `json:"outcomes,omitempty"`
	YesPrice decimal.NullDecimal `json:"yes_price"`
	NoPrice  decimal.NullDecimal `json:"no_price"`
	// EndDate is the calendar resolution date at 00:00 UTC.
	EndDate *time.Time `json:"end_date,omitempty"`
}

// HasOutcomes reports whether the venue listed the outcome labels.
func (m *GammaMarket) HasOutcomes() bool {
	return m.Outcomes != nil
}

// GammaEvent is the slice of a Gamma event kept in the cache. Markets are
// in the venue's order, which is not sorted.
type GammaEvent struct {
	ID   EventID `json:"id"`
	Slug string  `json:"slug"`
	// HasMarkets distinguishes an absent market list from an empty one.
	HasMarkets bool          `json:"has_markets"`
	Markets    []GammaMarket `json:"markets,omitempty"`
	// IsDateCascade is nil when the event has no market list.
	IsDateCascade *bool `json:"is_date_cascade,omitempty"`
}

// Questions returns the market questions in venue order.
func (e *GammaEvent) Questions() []string {
	out := make([]string, len(e.Markets))
	for i := range e.Markets {
		out[i] = e.Markets[i].Question
	}
	return out
}

// IsCascade reports whether the stored classification is a positive one.
func (e *GammaEvent) IsCascade() bool {
	return e.IsDateCascade != nil && *e.IsDateCascade
}

// TimeSpreadOpportunity is an adjacent pair of cascade markets where the
// earlier-resolving one prices "yes" above the later one.
type TimeSpreadOpportunity struct {
	EventAPIURL string          `json:"event_api_url"`
	Prev        GammaMarket     `json:"prev"`
	Next        GammaMarket     `json:"next"`
	Spread      decimal.Decimal `json:"spread"`
}
