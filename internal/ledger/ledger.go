// Package ledger turns a wallet's trade history into weighted-average-cost
// positions and realized P&L.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// Epsilon - остаток количества, при котором позиция считается закрытой.
var Epsilon = decimal.New(1, -6)

// DefaultSettlementAssets - нативный SOL, wSOL и основные стейблкоины.
var DefaultSettlementAssets = []string{
	"SOL",
	"So11111111111111111111111111111111111111112",  // wSOL
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCdE4jT6EHx", // USDT
}

// Position - открытая позиция по активу.
type Position struct {
	Asset        string          `json:"asset"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostBasisUSD decimal.Decimal `json:"costBasisUSD"`
}

// AverageCost возвращает costBasis/quantity; ok == false для пустой позиции.
func (p Position) AverageCost() (decimal.Decimal, bool) {
	if !p.Quantity.IsPositive() {
		return decimal.Zero, false
	}
	return p.CostBasisUSD.Div(p.Quantity), true
}

// Ledger накапливает позиции одного кошелька. Не безопасен для
// конкурентного использования: один экземпляр на один отчёт.
type Ledger struct {
	settlement map[string]struct{}
	positions  map[string]*Position
	realized   decimal.Decimal
	logger     *zap.Logger
}

// New создаёт пустой ledger. Пустой список расчётных активов заменяется DefaultSettlementAssets.
func New(settlementAssets []string, logger *zap.Logger) *Ledger {
	if len(settlementAssets) == 0 {
		settlementAssets = DefaultSettlementAssets
	}
	set := make(map[string]struct{}, len(settlementAssets))
	for _, a := range settlementAssets {
		set[a] = struct{}{}
	}
	return &Ledger{
		settlement: set,
		positions:  make(map[string]*Position),
		realized:   decimal.Zero,
		logger:     logger.Named("ledger"),
	}
}

// IsSettlement сообщает, является ли актив расчётным.
func (l *Ledger) IsSettlement(asset string) bool {
	_, ok := l.settlement[asset]
	return ok
}

// Ingest применяет события в порядке timestamp (порядок входа не важен)
// и возвращает открытые позиции и накопленный realized P&L.
// Некорректные записи пропускаются, ошибок не бывает.
func (l *Ledger) Ingest(wallet string, events []types.TradeEvent) ([]Position, decimal.Decimal) {
	ordered := SortedByTime(events)

	for _, ev := range ordered {
		if !BelongsTo(ev, wallet) {
			l.logger.Debug("skipping trade of another wallet",
				zap.String("wallet", wallet),
				zap.String("event_wallet", ev.WalletAddress))
			continue
		}

		switch ev.TradeType {
		case types.TradeBuy:
			l.applyBuy(ev)
		case types.TradeSell:
			l.applySell(ev)
		case types.TradeSwap:
			// обмен между нерасчётными активами не реализует P&L
		default:
			l.logger.Debug("unknown trade type", zap.String("trade_type", string(ev.TradeType)))
		}
	}

	return l.Positions(), l.realized
}

func (l *Ledger) applyBuy(ev types.TradeEvent) {
	if !l.IsSettlement(ev.InputAsset) || l.IsSettlement(ev.OutputAsset) {
		l.logger.Debug("buy without settlement input, ignored",
			zap.String("input", ev.InputAsset),
			zap.String("output", ev.OutputAsset))
		return
	}
	if !ev.OutputAmount.IsPositive() {
		return
	}

	pos, ok := l.positions[ev.OutputAsset]
	if !ok {
		pos = &Position{Asset: ev.OutputAsset, Quantity: decimal.Zero, CostBasisUSD: decimal.Zero}
		l.positions[ev.OutputAsset] = pos
	}
	pos.Quantity = pos.Quantity.Add(ev.OutputAmount)
	pos.CostBasisUSD = pos.CostBasisUSD.Add(nonNegative(ev.InputUSD()))
}

func (l *Ledger) applySell(ev types.TradeEvent) {
	if !l.IsSettlement(ev.OutputAsset) || l.IsSettlement(ev.InputAsset) {
		l.logger.Debug("sell without settlement output, ignored",
			zap.String("input", ev.InputAsset),
			zap.String("output", ev.OutputAsset))
		return
	}

	pos, ok := l.positions[ev.InputAsset]
	if !ok || !pos.Quantity.IsPositive() {
		// продажа без позиции: отрицательных позиций не бывает
		return
	}
	if !ev.InputAmount.IsPositive() {
		return
	}

	sellQty := decimal.Min(pos.Quantity, ev.InputAmount)
	costRemoved := pos.CostBasisUSD
	if sellQty.LessThan(pos.Quantity) {
		costRemoved = pos.CostBasisUSD.Mul(sellQty).Div(pos.Quantity)
	}

	l.realized = l.realized.Add(ev.OutputUSD().Sub(costRemoved))

	pos.Quantity = pos.Quantity.Sub(sellQty)
	pos.CostBasisUSD = nonNegative(pos.CostBasisUSD.Sub(costRemoved))

	if pos.Quantity.LessThanOrEqual(Epsilon) {
		delete(l.positions, ev.InputAsset)
	}
}

// Positions возвращает копии открытых позиций, отсортированные по активу.
func (l *Ledger) Positions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// RealizedPnL возвращает накопленный realized P&L в USD.
func (l *Ledger) RealizedPnL() decimal.Decimal {
	return l.realized
}

// BelongsTo: событие без walletAddress (или пустой wallet) считается своим.
func BelongsTo(ev types.TradeEvent, wallet string) bool {
	return ev.WalletAddress == "" || wallet == "" || ev.WalletAddress == wallet
}

// SortedByTime возвращает копию событий, стабильно отсортированную по timestamp.
func SortedByTime(events []types.TradeEvent) []types.TradeEvent {
	ordered := make([]types.TradeEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})
	return ordered
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
