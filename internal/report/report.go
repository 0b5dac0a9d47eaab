// Package report builds per-wallet P&L summaries from raw trade history.
//
// Two profit figures coexist on purpose. RealizedPnLUSD comes from the
// ledger and is cost-basis adjusted. BestTrade and WinRate use the raw
// per-sell delta outputValueUSD - inputValueUSD and do not look at cost basis.
package report

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-txcore/internal/ledger"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// NoTradeAsset - актив bestTrade, когда продаж не было.
const NoTradeAsset = "---"

// BestTrade - продажа с максимальной разницей output-input в USD.
type BestTrade struct {
	Profit decimal.Decimal `json:"profit"`
	Asset  string          `json:"asset"`
}

// Summary - P&L сводка кошелька. Вычисляется заново на каждый запрос.
type Summary struct {
	WalletAddress  string                  `json:"walletAddress"`
	RealizedPnLUSD decimal.Decimal         `json:"realizedPnLUSD"`
	TradeCount     int                     `json:"tradeCount"`
	WinRate        float64                 `json:"winRate"`
	BestTrade      BestTrade               `json:"bestTrade"`
	Positions      []ledger.MarkedPosition `json:"positions"`
	From           *time.Time              `json:"from,omitempty"`
	To             *time.Time              `json:"to,omitempty"`
	GeneratedAt    time.Time               `json:"generatedAt"`
}

// Generator строит сводки. Сам по себе без состояния; на каждый отчёт
// создаётся свой ledger.
type Generator struct {
	settlement []string
	logger     *zap.Logger
	now        func() time.Time
}

func NewGenerator(settlementAssets []string, logger *zap.Logger) *Generator {
	return &Generator{
		settlement: settlementAssets,
		logger:     logger.Named("pnl-report"),
		now:        time.Now,
	}
}

// Generate строит сводку по событиям кошелька. prices опциональны и
// используются только для оценки открытых позиций.
func (g *Generator) Generate(wallet string, events []types.TradeEvent, prices map[string]decimal.Decimal) Summary {
	events = ownTrades(wallet, events)

	l := ledger.New(g.settlement, g.logger)
	_, realized := l.Ingest(wallet, events)

	summary := Summary{
		WalletAddress:  wallet,
		RealizedPnLUSD: realized,
		TradeCount:     len(events),
		BestTrade:      BestTrade{Profit: decimal.Zero, Asset: NoTradeAsset},
		Positions:      l.Mark(prices),
		GeneratedAt:    g.now().UTC(),
	}

	summary.WinRate, summary.BestTrade = sellStats(events)

	g.logger.Debug("report generated",
		zap.String("wallet", wallet),
		zap.Int("trades", summary.TradeCount),
		zap.String("realized_usd", realized.StringFixed(2)),
		zap.Float64("win_rate", summary.WinRate))

	return summary
}

// GenerateWindow как Generate, но только по событиям из [from, to].
// Нулевая граница означает отсутствие ограничения.
func (g *Generator) GenerateWindow(wallet string, events []types.TradeEvent, from, to time.Time, prices map[string]decimal.Decimal) Summary {
	s := g.Generate(wallet, Window(events, from, to), prices)
	if !from.IsZero() {
		f := from.UTC()
		s.From = &f
	}
	if !to.IsZero() {
		t := to.UTC()
		s.To = &t
	}
	return s
}

// GenerateMany считает сводки нескольких кошельков за [from, to]
// параллельно, каждый со своим ledger.
func (g *Generator) GenerateMany(ctx context.Context, history map[string][]types.TradeEvent, from, to time.Time, prices map[string]decimal.Decimal) (map[string]Summary, error) {
	var (
		mu  sync.Mutex
		out = make(map[string]Summary, len(history))
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(8)
	for wallet, events := range history {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s := g.GenerateWindow(wallet, events, from, to, prices)
			mu.Lock()
			out[wallet] = s
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Window отбирает события с timestamp в [from, to].
func Window(events []types.TradeEvent, from, to time.Time) []types.TradeEvent {
	if from.IsZero() && to.IsZero() {
		return events
	}
	out := make([]types.TradeEvent, 0, len(events))
	for _, ev := range events {
		if !from.IsZero() && ev.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && ev.Timestamp.After(to) {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// ownTrades отбрасывает сделки других кошельков, чтобы все метрики
// сводки считались по одному набору событий.
func ownTrades(wallet string, events []types.TradeEvent) []types.TradeEvent {
	out := events[:0:0]
	for _, ev := range events {
		if ledger.BelongsTo(ev, wallet) {
			out = append(out, ev)
		}
	}
	return out
}

// sellStats считает winRate и bestTrade только по продажам.
func sellStats(events []types.TradeEvent) (float64, BestTrade) {
	best := BestTrade{Profit: decimal.Zero, Asset: NoTradeAsset}
	var (
		bestAt     time.Time
		sells      int
		profitable int
	)

	for _, ev := range events {
		if ev.TradeType != types.TradeSell {
			continue
		}
		profit := ev.OutputUSD().Sub(ev.InputUSD())
		sells++
		if profit.IsPositive() {
			profitable++
		}

		switch {
		case sells == 1,
			profit.GreaterThan(best.Profit),
			profit.Equal(best.Profit) && ev.Timestamp.Before(bestAt):
			best = BestTrade{Profit: profit, Asset: ev.InputAsset}
			bestAt = ev.Timestamp
		}
	}

	if sells == 0 {
		return 0, best
	}
	return 100 * float64(profitable) / float64(sells), best
}
