// internal/blockchain/types.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// TransactionOptions определяет опции для отправки транзакций.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// SignatureStatus - наблюдаемое сетью состояние подписи.
// Err != nil означает ошибку исполнения транзакции.
type SignatureStatus struct {
	Level types.ConfirmationLevel
	Slot  uint64
	Err   interface{}
}

// Sender отправляет уже подписанную транзакцию ровно один раз.
type Sender interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts TransactionOptions) (solana.Signature, error)
}

// StatusReader возвращает статус подписи; nil без ошибки - подпись еще не видна сети.
type StatusReader interface {
	GetSignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
}

// FeeReader возвращает недавние приоритетные комиссии для набора аккаунтов.
type FeeReader interface {
	GetRecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error)
}

// Client определяет общий интерфейс для взаимодействия с блокчейном.
type Client interface {
	Sender
	StatusReader
	FeeReader
	// Получить число десятичных знаков токена.
	GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error)
}
