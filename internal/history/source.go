// Package history reads a wallet's trade log from external, read-only sources.
package history

import (
	"context"
	"time"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// Source возвращает сделки кошелька за период. Нулевые границы не ограничивают.
// Порядок результата не гарантируется.
type Source interface {
	Fetch(ctx context.Context, wallet string, from, to time.Time) ([]types.TradeEvent, error)
}
