// Package render prints P&L summaries for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-txcore/internal/logger"
	"github.com/rovshanmuradov/solana-txcore/internal/report"
)

// SymbolFunc возвращает отображаемое имя актива.
type SymbolFunc func(asset string) string

type SummaryView struct {
	styles Styles
	symbol SymbolFunc
}

func NewSummaryView(symbol SymbolFunc) *SummaryView {
	if symbol == nil {
		symbol = func(asset string) string { return asset }
	}
	return &SummaryView{styles: DefaultStyles(), symbol: symbol}
}

// Render рисует шапку с метриками и таблицу открытых позиций.
func (v *SummaryView) Render(s report.Summary) string {
	st := v.styles

	lines := []string{
		st.title.Render("P&L " + logger.ShortenAddress(s.WalletAddress)),
		v.row("Period", period(s)),
		v.row("Realized", v.money(s.RealizedPnLUSD)),
		v.row("Trades", fmt.Sprint(s.TradeCount)),
		v.row("Win rate", fmt.Sprintf("%.1f%%", s.WinRate)),
		v.row("Best trade", v.bestTrade(s.BestTrade)),
	}

	if len(s.Positions) > 0 {
		lines = append(lines, "", st.header.Render(fmt.Sprintf("%-12s %16s %14s %14s", "ASSET", "QTY", "COST USD", "UNREAL USD")))
		for _, p := range s.Positions {
			unreal := st.muted.Render(fmt.Sprintf("%14s", "n/a"))
			if p.UnrealizedUSD != nil {
				unreal = v.styleFor(*p.UnrealizedUSD).Render(fmt.Sprintf("%14s", p.UnrealizedUSD.StringFixed(2)))
			}
			lines = append(lines, fmt.Sprintf("%-12s %16s %14s %s",
				truncate(v.symbol(p.Asset), 12),
				p.Quantity.String(),
				p.CostBasisUSD.StringFixed(2),
				unreal))
		}
	} else {
		lines = append(lines, "", st.muted.Render("no open positions"))
	}

	return st.container.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (v *SummaryView) row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Left, v.styles.label.Render(label), value)
}

func (v *SummaryView) money(d decimal.Decimal) string {
	return v.styleFor(d).Render("$" + d.StringFixed(2))
}

func (v *SummaryView) bestTrade(b report.BestTrade) string {
	if b.Asset == report.NoTradeAsset {
		return v.styles.muted.Render(report.NoTradeAsset)
	}
	return fmt.Sprintf("%s %s", v.symbol(b.Asset), v.money(b.Profit))
}

func (v *SummaryView) styleFor(d decimal.Decimal) lipgloss.Style {
	switch {
	case d.IsPositive():
		return v.styles.pnlPositive
	case d.IsNegative():
		return v.styles.pnlNegative
	default:
		return v.styles.pnlNeutral
	}
}

func period(s report.Summary) string {
	from, to := "beginning", "now"
	if s.From != nil {
		from = s.From.Format("2006-01-02 15:04")
	}
	if s.To != nil {
		to = s.To.Format("2006-01-02 15:04")
	}
	return from + " .. " + to
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n-1]) + "~"
}
