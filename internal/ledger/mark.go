package ledger

import "github.com/shopspring/decimal"

// MarkedPosition - позиция, оценённая по внешней цене.
// Поля оценки nil, если цены для актива нет.
type MarkedPosition struct {
	Position
	PriceUSD      *decimal.Decimal `json:"priceUSD,omitempty"`
	ValueUSD      *decimal.Decimal `json:"valueUSD,omitempty"`
	UnrealizedUSD *decimal.Decimal `json:"unrealizedUSD,omitempty"`
}

// Mark оценивает открытые позиции по переданным ценам. Собственной логики
// ценообразования нет: без цены позиция остаётся неоценённой.
func (l *Ledger) Mark(prices map[string]decimal.Decimal) []MarkedPosition {
	positions := l.Positions()
	out := make([]MarkedPosition, 0, len(positions))
	for _, p := range positions {
		m := MarkedPosition{Position: p}
		if price, ok := prices[p.Asset]; ok {
			value := p.Quantity.Mul(price)
			unrealized := value.Sub(p.CostBasisUSD)
			m.PriceUSD = &price
			m.ValueUSD = &value
			m.UnrealizedUSD = &unrealized
		}
		out = append(out, m)
	}
	return out
}
