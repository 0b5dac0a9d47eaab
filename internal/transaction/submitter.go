// internal/transaction/submitter.go
package transaction

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/blockchain/solbc"
	solrpc "github.com/rovshanmuradov/solana-txcore/internal/blockchain/solbc/rpc"
)

// Submitter отправляет уже подписанную транзакцию ровно один раз.
// Политика повторов остаётся на вызывающей стороне.
type Submitter struct {
	sender    blockchain.Sender
	validator *Validator
	analyzer  *solbc.ErrorAnalyzer
	opts      blockchain.TransactionOptions
	logger    *zap.Logger
}

func NewSubmitter(sender blockchain.Sender, cfg Config, logger *zap.Logger) *Submitter {
	cfg = cfg.WithDefaults()
	return &Submitter{
		sender:    sender,
		validator: NewValidator(logger),
		analyzer:  solbc.NewErrorAnalyzer(logger),
		opts: blockchain.TransactionOptions{
			SkipPreflight:       cfg.SkipPreflight,
			PreflightCommitment: cfg.PreflightCommitment,
		},
		logger: logger.Named("tx-submitter"),
	}
}

// Submit декодирует base64 транзакцию и отправляет её.
// Любая ошибка имеет тип *SubmissionError.
func (s *Submitter) Submit(ctx context.Context, signedTx string) (solana.Signature, error) {
	tx, err := s.validator.Decode(signedTx)
	if err != nil {
		return solana.Signature{}, &SubmissionError{Reason: ReasonMalformed, Detail: err.Error(), Err: err}
	}

	sig, err := s.sender.SendTransactionWithOpts(ctx, tx, s.opts)
	if err != nil {
		subErr := s.classify(ctx, err)
		s.logger.Warn("transaction submission failed",
			zap.String("reason", string(subErr.Reason)),
			zap.String("detail", subErr.Detail),
			zap.Error(err))
		return solana.Signature{}, subErr
	}

	s.logger.Info("transaction submitted", zap.String("signature", sig.String()))
	return sig, nil
}

func (s *Submitter) classify(ctx context.Context, err error) *SubmissionError {
	switch {
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return &SubmissionError{Reason: ReasonUnreachable, Detail: "request cancelled", Err: err}
	case solrpc.IsNodeRejection(err):
		return &SubmissionError{Reason: ReasonRejected, Detail: s.analyzer.Describe(err), Err: err}
	default:
		// без ответа узла считаем сеть недоступной
		return &SubmissionError{Reason: ReasonUnreachable, Detail: err.Error(), Err: err}
	}
}
