// internal/transaction/tracker.go
package transaction

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// State - состояние сессии подтверждения.
type State int

const (
	StateCreated State = iota
	StateSent
	StateConfirming
	StateConfirmed
	StateFailed
	StateTimedOut
	// StateCancelled - подписчик ушёл; событий больше не будет.
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSent:
		return "sent"
	case StateConfirming:
		return "confirming"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// Done сообщает, что переходов из состояния больше нет.
func (s State) Done() bool {
	return s >= StateConfirmed
}

// Tracker - явная машина состояний одной сессии подтверждения.
// Опрос выполняет внешний планировщик через Poll; сам Tracker не спит и
// не запускает горутин. Не безопасен для конкурентного использования.
type Tracker struct {
	reader   blockchain.StatusReader
	want     types.ConfirmationLevel
	timeout  time.Duration
	clock    func() time.Time
	observer Observer
	logger   *zap.Logger

	state     State
	signature solana.Signature
	sentAt    time.Time
	deadline  time.Time
	pollErrs  int
}

// TrackerOption настраивает Tracker.
type TrackerOption func(*Tracker)

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) TrackerOption {
	return func(t *Tracker) { t.clock = clock }
}

// WithObserver подключает сборщик метрик.
func WithObserver(o Observer) TrackerOption {
	return func(t *Tracker) {
		if o != nil {
			t.observer = o
		}
	}
}

func NewTracker(reader blockchain.StatusReader, cfg Config, logger *zap.Logger, opts ...TrackerOption) *Tracker {
	cfg = cfg.WithDefaults()
	t := &Tracker{
		reader:   reader,
		want:     cfg.Commitment,
		timeout:  cfg.ConfirmationTime,
		clock:    time.Now,
		observer: nopObserver{},
		logger:   logger.Named("tx-tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) State() State                { return t.state }
func (t *Tracker) Done() bool                  { return t.state.Done() }
func (t *Tracker) Signature() solana.Signature { return t.signature }
func (t *Tracker) Deadline() time.Time         { return t.deadline }
func (t *Tracker) TransientErrors() int        { return t.pollErrs }

// MarkSent фиксирует подпись и переводит Created → Sent → Confirming.
// Отсчёт бюджета таймаута начинается здесь.
func (t *Tracker) MarkSent(sig solana.Signature) []types.StatusEvent {
	if t.state != StateCreated {
		return nil
	}
	t.signature = sig
	t.sentAt = t.clock()
	t.deadline = t.sentAt.Add(t.timeout)
	t.state = StateSent
	sent := types.StatusEvent{Status: types.StatusSent, Signature: sig.String()}

	t.state = StateConfirming
	confirming := types.StatusEvent{Status: types.StatusConfirming, Signature: sig.String()}

	t.logger.Debug("tracking signature",
		zap.String("signature", sig.String()),
		zap.String("commitment", string(t.want)),
		zap.Time("deadline", t.deadline))

	return []types.StatusEvent{sent, confirming}
}

// Cancel прекращает сессию без события.
func (t *Tracker) Cancel() {
	if t.state.Done() {
		return
	}
	t.state = StateCancelled
	t.logger.Debug("tracking cancelled", zap.String("signature", t.signature.String()))
}

// Poll выполняет один шаг опроса. Возвращает не более одного события,
// и только терминальное.
func (t *Tracker) Poll(ctx context.Context) []types.StatusEvent {
	if t.state != StateConfirming {
		return nil
	}

	if !t.clock().Before(t.deadline) {
		return t.timedOut()
	}

	status, err := t.reader.GetSignatureStatus(ctx, t.signature)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		t.pollErrs++
		t.observer.TransientPollError()
		t.logger.Warn("signature status lookup failed, will retry",
			zap.String("signature", t.signature.String()),
			zap.Int("attempt", t.pollErrs),
			zap.Error(err))
		return t.expireIfLate()
	}

	if status == nil {
		return t.expireIfLate()
	}

	// запрос ушёл до дедлайна: наблюдённый терминальный статус важнее таймаута,
	// даже если ответ пришёл позже
	if status.Err != nil {
		return t.finish(StateFailed, types.StatusEvent{
			Status:            types.StatusFailed,
			Signature:         t.signature.String(),
			Error:             solbc.FormatTransactionError(status.Err),
			ConfirmationLevel: status.Level,
			Slot:              slotPtr(status.Slot),
		})
	}

	if status.Level.AtLeast(t.want) {
		return t.finish(StateConfirmed, types.StatusEvent{
			Status:            types.StatusConfirmed,
			Signature:         t.signature.String(),
			ConfirmationLevel: status.Level,
			Slot:              slotPtr(status.Slot),
		})
	}

	return t.expireIfLate()
}

// expireIfLate не даёт медленному опросу сдвинуть дедлайн.
func (t *Tracker) expireIfLate() []types.StatusEvent {
	if !t.clock().Before(t.deadline) {
		return t.timedOut()
	}
	return nil
}

func (t *Tracker) timedOut() []types.StatusEvent {
	t.logger.Info("confirmation timed out",
		zap.String("signature", t.signature.String()),
		zap.Int("transient_errors", t.pollErrs),
		zap.NamedError("reason", ErrConfirmationTimeout))
	return t.finish(StateTimedOut, types.StatusEvent{
		Status:    types.StatusTimeout,
		Signature: t.signature.String(),
		Error:     fmt.Sprintf("not confirmed after %dms", t.timeout.Milliseconds()),
	})
}

func (t *Tracker) finish(state State, ev types.StatusEvent) []types.StatusEvent {
	t.state = state
	t.observer.SessionFinished(ev.Status, t.clock().Sub(t.sentAt))
	if state == StateFailed {
		t.logger.Info("transaction failed on chain",
			zap.String("signature", ev.Signature),
			zap.String("error", ev.Error))
	}
	return []types.StatusEvent{ev}
}

func slotPtr(slot uint64) *uint64 {
	if slot == 0 {
		return nil
	}
	return &slot
}
