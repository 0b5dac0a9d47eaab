// internal/transaction/types.go
package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

var (
	ErrConfirmationTimeout = errors.New("transaction confirmation timeout")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrInvalidBlockhash    = errors.New("invalid blockhash")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrInvalidEncoding     = errors.New("invalid transaction encoding")

	ErrMalformed   = errors.New("malformed transaction")
	ErrRejected    = errors.New("transaction rejected")
	ErrUnreachable = errors.New("network unreachable")
)

// Reason классифицирует ошибку отправки.
type Reason string

const (
	ReasonMalformed   Reason = "malformed"
	ReasonRejected    Reason = "rejected"
	ReasonUnreachable Reason = "unreachable"
)

// SubmissionError возвращается Submit до появления подписи.
// Detail - короткое описание для клиента, Err - исходная ошибка.
type SubmissionError struct {
	Reason Reason
	Detail string
	Err    error
}

func (e *SubmissionError) Error() string {
	detail := e.Detail
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Reason, detail)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is позволяет errors.Is(err, ErrRejected) и т.п.
func (e *SubmissionError) Is(target error) bool {
	switch e.Reason {
	case ReasonMalformed:
		return target == ErrMalformed
	case ReasonRejected:
		return target == ErrRejected
	case ReasonUnreachable:
		return target == ErrUnreachable
	}
	return false
}

// Config задаёт параметры отправки и отслеживания.
type Config struct {
	PollInterval        time.Duration
	ConfirmationTime    time.Duration
	Commitment          types.ConfirmationLevel
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

const (
	DefaultPollInterval     = 200 * time.Millisecond
	DefaultConfirmationTime = 30 * time.Second
)

// WithDefaults заполняет нулевые поля значениями по умолчанию.
func (c Config) WithDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ConfirmationTime <= 0 {
		c.ConfirmationTime = DefaultConfirmationTime
	}
	if c.Commitment == "" {
		c.Commitment = types.LevelConfirmed
	}
	if c.PreflightCommitment == "" {
		c.PreflightCommitment = rpc.CommitmentProcessed
	}
	return c
}

// Observer получает сведения о ходе сессий (метрики).
type Observer interface {
	TransientPollError()
	SessionFinished(status types.TxStatus, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) TransientPollError()                         {}
func (nopObserver) SessionFinished(types.TxStatus, time.Duration) {}
