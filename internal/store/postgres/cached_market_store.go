package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/polycache/internal/domain"
)

// CachedMarketStore implements domain.CachedMarketStore on the
// cached_markets table.
type CachedMarketStore struct {
	pool *pgxpool.Pool
}

// NewCachedMarketStore creates a CachedMarketStore backed by pool.
func NewCachedMarketStore(pool *pgxpool.Pool) *CachedMarketStore {
	return &CachedMarketStore{pool: pool}
}

const upsertCachedMarket = `
	INSERT INTO cached_markets (
		slug, condition_id, question_id, question,
		active, closed, archived, enable_order_book, accepting_orders,
		minimum_order_size, minimum_tick_size, maker_base_fee, taker_base_fee,
		end_date, left_token_id, right_token_id,
		winner, winner_token_id, neg_risk_event_id, is_50_50_outcome, updated_at
	) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7, $8, $9,
		$10, $11, $12, $13,
		$14, $15, $16,
		$17, $18, $19, $20, NOW()
	)
	ON CONFLICT (slug) DO UPDATE SET
		condition_id       = EXCLUDED.condition_id,
		question_id        = EXCLUDED.question_id,
		question           = EXCLUDED.question,
		active             = EXCLUDED.active,
		closed             = EXCLUDED.closed,
		archived           = EXCLUDED.archived,
		enable_order_book  = EXCLUDED.enable_order_book,
		accepting_orders   = EXCLUDED.accepting_orders,
		minimum_order_size = EXCLUDED.minimum_order_size,
		minimum_tick_size  = EXCLUDED.minimum_tick_size,
		maker_base_fee     = EXCLUDED.maker_base_fee,
		taker_base_fee     = EXCLUDED.taker_base_fee,
		end_date           = EXCLUDED.end_date,
		left_token_id      = EXCLUDED.left_token_id,
		right_token_id     = EXCLUDED.right_token_id,
		winner             = EXCLUDED.winner,
		winner_token_id    = EXCLUDED.winner_token_id,
		neg_risk_event_id  = EXCLUDED.neg_risk_event_id,
		is_50_50_outcome   = EXCLUDED.is_50_50_outcome,
		updated_at         = NOW()`

// UpsertBatch inserts or updates markets in a single batch keyed by slug.
func (s *CachedMarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range markets {
		batch.Queue(upsertCachedMarket, marketRow(&markets[i])...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market %s: %w", markets[i].Slug, err)
		}
	}
	return nil
}

// Count returns the number of mirrored markets.
func (s *CachedMarketStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cached_markets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count cached markets: %w", err)
	}
	return n, nil
}

// marketRow flattens m into the upsert parameters. Ids are stored in their
// canonical text forms so the mirror stays readable from psql.
func marketRow(m *domain.Market) []any {
	var winnerToken, negRiskEvent *string
	if m.Winner.Kind == domain.OneWinner {
		s := domain.FormatTokenID(m.Winner.TokenID)
		winnerToken = &s
	}
	if m.NegRisk != nil {
		s := m.NegRisk.EventID.Hex()
		negRiskEvent = &s
	}
	return []any{
		m.Slug, m.ConditionID.Hex(), m.QuestionID.Hex(), m.Question,
		m.Active, m.Closed, m.Archived, m.EnableOrderBook, m.AcceptingOrders,
		m.MinimumOrderSize.String(), m.MinimumTickSize.String(), m.MakerBaseFee.String(), m.TakerBaseFee.String(),
		m.EndDate, domain.FormatTokenID(m.LeftTokenID), domain.FormatTokenID(m.RightTokenID),
		m.Winner.Kind.String(), winnerToken, negRiskEvent, m.Is5050Outcome,
	}
}

var _ domain.CachedMarketStore = (*CachedMarketStore)(nil)
