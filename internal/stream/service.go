// Package stream runs one submission session per subscriber: it sends the
// signed transaction, tracks confirmation and streams status events until
// a terminal event or disconnect.
package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/transaction"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// ErrBadRequest - запрос не прошёл проверку; подписчик получил один failed.
var ErrBadRequest = errors.New("malformed submission request")

// Request - тело запроса на отправку.
type Request struct {
	Transaction string `json:"transaction"`
	Wallet      string `json:"wallet"`
	Commitment  string `json:"commitment,omitempty"`
}

// Submitter - одноразовая отправка подписанной транзакции.
type Submitter interface {
	Submit(ctx context.Context, signedTx string) (solana.Signature, error)
}

// Metrics - наблюдатель за сессиями.
type Metrics interface {
	transaction.Observer
	SessionOpened(transport string)
	SessionClosed(transport string)
	SubmissionFailed(reason string)
}

type nopMetrics struct{}

func (nopMetrics) TransientPollError()                         {}
func (nopMetrics) SessionFinished(types.TxStatus, time.Duration) {}
func (nopMetrics) SessionOpened(string)                        {}
func (nopMetrics) SessionClosed(string)                        {}
func (nopMetrics) SubmissionFailed(string)                     {}

// Service создаёт независимые сессии; общих изменяемых данных у них нет.
type Service struct {
	submitter Submitter
	reader    blockchain.StatusReader
	cfg       transaction.Config
	metrics   Metrics
	logger    *zap.Logger
}

func NewService(submitter Submitter, reader blockchain.StatusReader, cfg transaction.Config, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Service{
		submitter: submitter,
		reader:    reader,
		cfg:       cfg.WithDefaults(),
		metrics:   metrics,
		logger:    logger.Named("tx-stream"),
	}
}

// Run проводит одну сессию: sending → sent → confirming → терминальное событие.
// Блокирует до терминального события, отмены ctx или ошибки доставки.
func (s *Service) Run(ctx context.Context, transport string, req Request, out Emitter) error {
	s.metrics.SessionOpened(transport)
	defer s.metrics.SessionClosed(transport)

	em := seal(out)
	log := s.sessionLogger(transport).With(zap.String("wallet", req.Wallet))

	commitment, err := validate(req, s.cfg.Commitment)
	if err != nil {
		return s.reject(log, em, err)
	}

	if err := em.Emit(types.StatusEvent{Status: types.StatusSending}); err != nil {
		return err
	}

	sig, err := s.submitter.Submit(ctx, req.Transaction)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		reason := string(transaction.ReasonUnreachable)
		var subErr *transaction.SubmissionError
		if errors.As(err, &subErr) {
			reason = string(subErr.Reason)
		}
		s.metrics.SubmissionFailed(reason)
		log.Warn("submission failed", zap.String("reason", reason), zap.Error(err))
		if emitErr := em.Emit(types.StatusEvent{Status: types.StatusFailed, Error: err.Error()}); emitErr != nil {
			return emitErr
		}
		return err
	}

	log = log.With(zap.String("signature", sig.String()))
	cfg := s.cfg
	cfg.Commitment = commitment
	tracker := transaction.NewTracker(s.reader, cfg, log, transaction.WithObserver(s.metrics))

	for _, ev := range tracker.MarkSent(sig) {
		if err := em.Emit(ev); err != nil {
			tracker.Cancel()
			return err
		}
	}

	runErr := transaction.NewRunner(cfg.PollInterval, log).Run(ctx, tracker, em.Emit)
	log.Info("session finished",
		zap.String("state", tracker.State().String()),
		zap.Int("events", em.count),
		zap.Int("transient_errors", tracker.TransientErrors()),
		zap.NamedError("stop_reason", runErr))
	return runErr
}

// Reject закрывает сессию, запрос которой не удалось даже разобрать:
// один failed и ErrBadRequest, с теми же метриками, что у Run.
func (s *Service) Reject(transport string, cause error, out Emitter) error {
	s.metrics.SessionOpened(transport)
	defer s.metrics.SessionClosed(transport)
	return s.reject(s.sessionLogger(transport), seal(out), cause)
}

func (s *Service) reject(log *zap.Logger, em Emitter, cause error) error {
	log.Info("rejecting malformed request", zap.Error(cause))
	s.metrics.SubmissionFailed(string(transaction.ReasonMalformed))
	if err := em.Emit(types.StatusEvent{Status: types.StatusFailed, Error: cause.Error()}); err != nil {
		return err
	}
	return fmt.Errorf("%w: %v", ErrBadRequest, cause)
}

func (s *Service) sessionLogger(transport string) *zap.Logger {
	return s.logger.With(
		zap.String("session_id", uuid.NewString()),
		zap.String("transport", transport))
}

func validate(req Request, fallback types.ConfirmationLevel) (types.ConfirmationLevel, error) {
	if req.Transaction == "" {
		return "", errors.New("missing required field: transaction")
	}
	if req.Wallet == "" {
		return "", errors.New("missing required field: wallet")
	}
	if _, err := solana.PublicKeyFromBase58(req.Wallet); err != nil {
		return "", fmt.Errorf("invalid wallet address: %v", err)
	}
	if req.Commitment == "" {
		return fallback, nil
	}
	level, ok := types.ParseConfirmationLevel(req.Commitment)
	if !ok {
		return "", fmt.Errorf("unknown commitment %q", req.Commitment)
	}
	return level, nil
}
