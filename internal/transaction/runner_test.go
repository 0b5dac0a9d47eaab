package transaction

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// lockedReader безопасен для чтения счётчика из теста.
type lockedReader struct {
	mu        sync.Mutex
	calls     int
	confirmAt int
	onCall    func(n int)
}

func (r *lockedReader) GetSignatureStatus(_ context.Context, _ solana.Signature) (*blockchain.SignatureStatus, error) {
	r.mu.Lock()
	r.calls++
	n := r.calls
	r.mu.Unlock()
	if r.onCall != nil {
		r.onCall(n)
	}
	if r.confirmAt > 0 && n >= r.confirmAt {
		return &blockchain.SignatureStatus{Level: types.LevelConfirmed, Slot: 1}, nil
	}
	return nil, nil
}

func (r *lockedReader) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestRunnerStopsOnTerminal(t *testing.T) {
	reader := &lockedReader{confirmAt: 3}
	tr := NewTracker(reader, Config{}, zaptest.NewLogger(t))
	tr.MarkSent(testSig)

	var got []types.StatusEvent
	err := NewRunner(2*time.Millisecond, zaptest.NewLogger(t)).Run(context.Background(), tr, func(ev types.StatusEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.StatusConfirmed, got[0].Status)
	assert.Equal(t, 3, reader.Calls())
}

func TestRunnerTimesOut(t *testing.T) {
	reader := &lockedReader{}
	tr := NewTracker(reader, Config{ConfirmationTime: 30 * time.Millisecond}, zaptest.NewLogger(t))
	tr.MarkSent(testSig)

	var got []types.StatusEvent
	start := time.Now()
	err := NewRunner(5*time.Millisecond, zaptest.NewLogger(t)).Run(context.Background(), tr, func(ev types.StatusEvent) error {
		got = append(got, ev)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, types.StatusTimeout, got[0].Status)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRunnerStopsPollingOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &lockedReader{}
	reader.onCall = func(n int) {
		if n == 2 {
			cancel()
		}
	}
	tr := NewTracker(reader, Config{}, zaptest.NewLogger(t))
	tr.MarkSent(testSig)

	emitted := 0
	err := NewRunner(2*time.Millisecond, zaptest.NewLogger(t)).Run(ctx, tr, func(types.StatusEvent) error {
		emitted++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCancelled, tr.State())
	assert.Zero(t, emitted)

	calls := reader.Calls()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, calls)
	assert.Equal(t, calls, reader.Calls(), "no polling after cancellation")
}

func TestRunnerStopsWhenEmitFails(t *testing.T) {
	reader := &lockedReader{confirmAt: 1}
	tr := NewTracker(reader, Config{}, zaptest.NewLogger(t))
	tr.MarkSent(testSig)

	gone := errors.New("broken pipe")
	err := NewRunner(time.Millisecond, zaptest.NewLogger(t)).Run(context.Background(), tr, func(types.StatusEvent) error {
		return gone
	})
	assert.ErrorIs(t, err, gone)
}
