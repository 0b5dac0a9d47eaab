// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// LatencyObserver получает длительность каждого RPC вызова.
type LatencyObserver interface {
	ObserveRPC(method string, d time.Duration, err error)
}

// Client – тонкий адаптер для взаимодействия с блокчейном Solana через solana-go.
type Client struct {
	rpc      *rpc.Client
	logger   *zap.Logger
	observer LatencyObserver
}

// ErrMintNotFound возвращается, если RPC не знает такого mint.
var ErrMintNotFound = errors.New("mint not found")

// NewClient создаёт новый клиент, принимая RPC URL и логгер через dependency injection.
func NewClient(rpcURL string, logger *zap.Logger) *Client {
	return &Client{
		rpc:    rpc.New(rpcURL),
		logger: logger.Named("solbc-client"),
	}
}

// WithObserver подключает сборщик латентности RPC.
func (c *Client) WithObserver(o LatencyObserver) *Client {
	c.observer = o
	return c
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.observer != nil {
		c.observer.ObserveRPC(method, time.Since(start), err)
	}
}

// SendTransactionWithOpts отправляет транзакцию с заданными опциями. Повторов нет.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	c.observe("sendTransaction", start, err)
	if err != nil {
		c.logger.Error("SendTransactionWithOpts error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetSignatureStatus получает статус одной подписи.
// Возвращает nil, nil если сеть ещё не видела транзакцию.
func (c *Client) GetSignatureStatus(ctx context.Context, sig solana.Signature) (*blockchain.SignatureStatus, error) {
	start := time.Now()
	result, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
	c.observe("getSignatureStatuses", start, err)
	if err != nil {
		c.logger.Debug("GetSignatureStatuses error",
			zap.String("signature", sig.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || len(result.Value) == 0 || result.Value[0] == nil {
		return nil, nil
	}

	status := result.Value[0]
	return &blockchain.SignatureStatus{
		Level: confirmationLevel(status.ConfirmationStatus),
		Slot:  status.Slot,
		Err:   status.Err,
	}, nil
}

func confirmationLevel(s rpc.ConfirmationStatusType) types.ConfirmationLevel {
	switch s {
	case rpc.ConfirmationStatusFinalized:
		return types.LevelFinalized
	case rpc.ConfirmationStatusConfirmed:
		return types.LevelConfirmed
	case rpc.ConfirmationStatusProcessed:
		return types.LevelProcessed
	}
	return ""
}

// GetRecentPrioritizationFees возвращает комиссии последних слотов (micro-lamports).
func (c *Client) GetRecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error) {
	start := time.Now()
	result, err := c.rpc.GetRecentPrioritizationFees(ctx, solana.PublicKeySlice(accounts))
	c.observe("getRecentPrioritizationFees", start, err)
	if err != nil {
		c.logger.Warn("GetRecentPrioritizationFees error", zap.Error(err))
		return nil, err
	}

	fees := make([]uint64, 0, len(result))
	for _, r := range result {
		fees = append(fees, r.PrioritizationFee)
	}
	return fees, nil
}

// GetTokenDecimals получает число десятичных знаков токена через getTokenSupply.
func (c *Client) GetTokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	start := time.Now()
	result, err := c.rpc.GetTokenSupply(ctx, mint, rpc.CommitmentConfirmed)
	c.observe("getTokenSupply", start, err)
	if err != nil {
		c.logger.Debug("GetTokenSupply error",
			zap.String("mint", mint.String()),
			zap.Error(err))
		return 0, fmt.Errorf("token supply %s: %w", mint, err)
	}
	if result == nil || result.Value == nil {
		return 0, ErrMintNotFound
	}
	return result.Value.Decimals, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
