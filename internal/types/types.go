// internal/types/types.go
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxStatus - стадия жизненного цикла транзакции, передаваемая подписчику.
type TxStatus string

const (
	StatusSending    TxStatus = "sending"
	StatusSent       TxStatus = "sent"
	StatusConfirming TxStatus = "confirming"
	StatusConfirmed  TxStatus = "confirmed"
	StatusFailed     TxStatus = "failed"
	StatusTimeout    TxStatus = "timeout"
)

// IsTerminal сообщает, что после этого статуса событий больше не будет.
func (s TxStatus) IsTerminal() bool {
	switch s {
	case StatusConfirmed, StatusFailed, StatusTimeout:
		return true
	}
	return false
}

// ConfirmationLevel - уровень подтверждения сети.
type ConfirmationLevel string

const (
	LevelProcessed ConfirmationLevel = "processed"
	LevelConfirmed ConfirmationLevel = "confirmed"
	LevelFinalized ConfirmationLevel = "finalized"
)

// Rank возвращает порядковый номер уровня; 0 для неизвестного значения.
func (l ConfirmationLevel) Rank() int {
	switch l {
	case LevelProcessed:
		return 1
	case LevelConfirmed:
		return 2
	case LevelFinalized:
		return 3
	}
	return 0
}

// AtLeast сообщает, что уровень l не ниже want.
func (l ConfirmationLevel) AtLeast(want ConfirmationLevel) bool {
	return l.Rank() > 0 && l.Rank() >= want.Rank()
}

// ParseConfirmationLevel разбирает строку уровня; пустая строка дает LevelConfirmed.
func ParseConfirmationLevel(s string) (ConfirmationLevel, bool) {
	if s == "" {
		return LevelConfirmed, true
	}
	l := ConfirmationLevel(s)
	return l, l.Rank() > 0
}

// StatusEvent - одна NDJSON-запись потока статусов.
type StatusEvent struct {
	Status            TxStatus          `json:"status"`
	Signature         string            `json:"signature,omitempty"`
	Error             string            `json:"error,omitempty"`
	ConfirmationLevel ConfirmationLevel `json:"confirmationLevel,omitempty"`
	Slot              *uint64           `json:"slot,omitempty"`
}

// TradeType - вид сделки в истории кошелька.
type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
	TradeSwap TradeType = "swap"
)

// TradeEvent - запись внешней истории сделок.
// USD-оценки опциональны: nil трактуется как ноль.
type TradeEvent struct {
	WalletAddress  string           `json:"walletAddress"`
	TradeType      TradeType        `json:"tradeType"`
	InputAsset     string           `json:"inputAsset"`
	OutputAsset    string           `json:"outputAsset"`
	InputAmount    decimal.Decimal  `json:"inputAmount"`
	OutputAmount   decimal.Decimal  `json:"outputAmount"`
	InputValueUSD  *decimal.Decimal `json:"inputValueUSD,omitempty"`
	OutputValueUSD *decimal.Decimal `json:"outputValueUSD,omitempty"`
	Timestamp      time.Time        `json:"timestamp"`
}

// InputUSD возвращает оценку входа или ноль.
func (e TradeEvent) InputUSD() decimal.Decimal {
	if e.InputValueUSD == nil {
		return decimal.Zero
	}
	return *e.InputValueUSD
}

// OutputUSD возвращает оценку выхода или ноль.
func (e TradeEvent) OutputUSD() decimal.Decimal {
	if e.OutputValueUSD == nil {
		return decimal.Zero
	}
	return *e.OutputValueUSD
}
