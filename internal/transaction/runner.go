// internal/transaction/runner.go
package transaction

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// EmitFunc доставляет событие подписчику. Ошибка означает, что подписчик ушёл.
type EmitFunc func(types.StatusEvent) error

// Runner управляет Tracker по тикеру с фиксированным интервалом.
type Runner struct {
	interval time.Duration
	logger   *zap.Logger
}

func NewRunner(interval time.Duration, logger *zap.Logger) *Runner {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Runner{interval: interval, logger: logger.Named("tx-runner")}
}

// Run опрашивает трекер до терминального состояния или отмены ctx.
// Отмена замечается на границе опроса, не посреди него; после неё
// не выполняется ни опросов, ни отправок. Возвращает nil при терминальном
// событии, иначе причину остановки.
func (r *Runner) Run(ctx context.Context, t *Tracker, emit EmitFunc) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for !t.Done() {
		select {
		case <-ctx.Done():
			t.Cancel()
			return ctx.Err()
		case <-ticker.C:
		}

		// оба канала могли быть готовы одновременно
		if err := ctx.Err(); err != nil {
			t.Cancel()
			return err
		}

		events := t.Poll(ctx)
		if err := ctx.Err(); err != nil {
			t.Cancel()
			return err
		}
		for _, ev := range events {
			if err := emit(ev); err != nil {
				r.logger.Debug("subscriber gone, stopping",
					zap.String("signature", t.Signature().String()),
					zap.Error(err))
				t.Cancel()
				return err
			}
		}
	}
	return nil
}
