package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// PostgresSource читает таблицу trade_events только на чтение.
type PostgresSource struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresSource подключается к базе и проверяет соединение.
func NewPostgresSource(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresSource, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	// только чтение
	poolCfg.ConnConfig.RuntimeParams["default_transaction_read_only"] = "on"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresSource{pool: pool, logger: logger.Named("history-pg")}, nil
}

// Close shuts down the connection pool.
func (s *PostgresSource) Close() {
	s.pool.Close()
}

// numeric читаем как текст, чтобы не терять точность
const tradeSelect = `
	SELECT wallet_address, trade_type, input_asset, output_asset,
	       input_amount::text, output_amount::text,
	       input_value_usd::text, output_value_usd::text, ts
	FROM trade_events
	WHERE wallet_address = $1
	  AND ($2::timestamptz IS NULL OR ts >= $2)
	  AND ($3::timestamptz IS NULL OR ts <= $3)
	ORDER BY ts`

type tradeRow struct {
	wallet, tradeType, input, output string
	inAmount, outAmount              string
	inUSD, outUSD                    *string
	ts                               time.Time
}

func (s *PostgresSource) Fetch(ctx context.Context, wallet string, from, to time.Time) ([]types.TradeEvent, error) {
	rows, err := s.pool.Query(ctx, tradeSelect, wallet, nullableTime(from), nullableTime(to))
	if err != nil {
		return nil, fmt.Errorf("postgres: query trades for %s: %w", wallet, err)
	}

	scanned, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (tradeRow, error) {
		var r tradeRow
		err := row.Scan(&r.wallet, &r.tradeType, &r.input, &r.output,
			&r.inAmount, &r.outAmount, &r.inUSD, &r.outUSD, &r.ts)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades for %s: %w", wallet, err)
	}

	events := make([]types.TradeEvent, 0, len(scanned))
	for _, r := range scanned {
		ev, ok := r.toEvent()
		if !ok {
			s.logger.Warn("skipping malformed trade row", zap.String("wallet", wallet), zap.Time("ts", r.ts))
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (r tradeRow) toEvent() (types.TradeEvent, bool) {
	inAmount, err := decimal.NewFromString(r.inAmount)
	if err != nil {
		return types.TradeEvent{}, false
	}
	outAmount, err := decimal.NewFromString(r.outAmount)
	if err != nil {
		return types.TradeEvent{}, false
	}
	return types.TradeEvent{
		WalletAddress:  r.wallet,
		TradeType:      types.TradeType(r.tradeType),
		InputAsset:     r.input,
		OutputAsset:    r.output,
		InputAmount:    inAmount,
		OutputAmount:   outAmount,
		InputValueUSD:  optionalDecimal(r.inUSD),
		OutputValueUSD: optionalDecimal(r.outUSD),
		Timestamp:      r.ts.UTC(),
	}, true
}

// optionalDecimal: NULL или нечисловое значение дают nil (считается нулём).
func optionalDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ Source = (*PostgresSource)(nil)
