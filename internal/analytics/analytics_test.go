package analytics

import (
	"testing"
	"time"

	"github.com/alanyoungcy/polycache/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleDiffs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "strike dates",
			in: []string{
				"Another US strike on Venezuela by January 31?",
				"Another US strike on Venezuela by January 17?",
				"Another US strike on Venezuela by March 31?",
			},
			want: []string{"January 31", "January 17", "March 31"},
		},
		{name: "empty", in: []string{}, want: []string{}},
		{name: "single input", in: []string{"  lone value  "}, want: []string{"  lone value  "}},
		{
			name: "multi-byte",
			in:   []string{"Привет, январь 2024!", "Привет, февраль 2025!"},
			want: []string{"январь 2024", "февраль 2025"},
		},
		{name: "only suffix shared", in: []string{"Foo 2024?", "Bar 2025?"}, want: []string{"Foo 2024", "Bar 2025"}},
		{name: "identical", in: []string{"Same", "Same"}, want: []string{"", ""}},
		{name: "varied length", in: []string{"ID: a?", "ID: bb?", "ID: ccc?"}, want: []string{"a", "bb", "ccc"}},
		{
			name: "two strikes",
			in:   []string{"Strike by January 31?", "Strike by March 31?"},
			want: []string{"January 31", "March 31"},
		},
		{
			name: "shared day before the month",
			in:   []string{"Strike by 31 January?", "Strike by 31 March?"},
			want: []string{"31 January", "31 March"},
		},
		{
			name: "shared year",
			in:   []string{"Launch in May 2026?", "Launch in June 2026?"},
			want: []string{"May 2026", "June 2026"},
		},
		{
			name: "cut inside a word",
			in:   []string{"Rate cut by June 30?", "Rate cut by July 30?"},
			want: []string{"June 30", "July 30"},
		},
		{
			name: "shared number kept out of non-dates",
			in:   []string{"Alpha 31?", "Beta 31?"},
			want: []string{"Alpha", "Beta"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MiddleDiffs(tt.in))
		})
	}
}

func TestIsDateLike(t *testing.T) {
	accept := []string{
		"January",
		"Jan 17",
		"January 2024",
		"January 31",
		"2024-01-17",
		"17/01/2024",
		"01-17-24",
		"2024/01",
		"01/2024",
		"01-02",
		"2024",
		" Sept 3, 2025? ",
	}
	for _, s := range accept {
		assert.True(t, IsDateLike(s), s)
	}

	reject := []string{
		"",
		"  ?  ",
		"Banana",
		"Banana 2024",
		"2024-13-01",
		"2024-01-32",
		"20240117",
		"Jan 2024th",
		"Early January",
		"0999",
	}
	for _, s := range reject {
		assert.False(t, IsDateLike(s), s)
	}
}

func TestIsDateCascade(t *testing.T) {
	assert.True(t, IsDateCascade([]string{
		"Another US strike on Venezuela by January 31?",
		"Another US strike on Venezuela by January 17?",
		"Another US strike on Venezuela by March 31?",
	}))
	assert.False(t, IsDateCascade([]string{
		"Will Arsenal win the league?",
		"Will Chelsea win the league?",
	}))
	assert.True(t, IsDateCascade([]string{"Strike by January 31?", "Strike by March 31?"}))
	assert.False(t, IsDateCascade([]string{"Will it rain by May 1?"}))
	assert.False(t, IsDateCascade(nil))
}

func gammaMarket(question, yes string, end time.Time) domain.GammaMarket {
	return domain.GammaMarket{
		Question: question,
		Outcomes: []string{"Yes", "No"},
		YesPrice: decimal.NewNullDecimal(decimal.RequireFromString(yes)),
		EndDate:  &end,
	}
}

func TestTimeSpreadOpportunities(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC) }
	ev := domain.GammaEvent{
		ID:         16085,
		HasMarkets: true,
		Markets: []domain.GammaMarket{
			gammaMarket("by January 31?", "0.62", day(time.January, 31)),
			gammaMarket("by January 17?", "0.71", day(time.January, 17)),
			gammaMarket("by March 31?", "0.80", day(time.March, 31)),
			{Question: "undated", YesPrice: decimal.NewNullDecimal(decimal.NewFromInt(1))},
		},
	}

	got := TimeSpreadOpportunities(&ev, "https://gamma-api.polymarket.com/events/16085")
	require.Len(t, got, 1)
	assert.Equal(t, "by January 17?", got[0].Prev.Question)
	assert.Equal(t, "by January 31?", got[0].Next.Question)
	assert.True(t, got[0].Spread.Equal(decimal.RequireFromString("0.09")))
	assert.Equal(t, "https://gamma-api.polymarket.com/events/16085", got[0].EventAPIURL)
}

func TestTimeSpreadSkipsIncompletePairs(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.June, d, 0, 0, 0, 0, time.UTC) }
	noOutcomes := gammaMarket("a", "0.9", day(1))
	noOutcomes.Outcomes = nil
	noPrice := gammaMarket("c", "0.1", day(3))
	noPrice.YesPrice = decimal.NullDecimal{}

	ev := domain.GammaEvent{Markets: []domain.GammaMarket{
		noOutcomes,
		gammaMarket("b", "0.5", day(2)),
		noPrice,
		gammaMarket("d", "0.5", day(4)),
	}}
	assert.Empty(t, TimeSpreadOpportunities(&ev, ""))
}
