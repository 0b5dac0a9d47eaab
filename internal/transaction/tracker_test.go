package transaction

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type statusReply struct {
	status *blockchain.SignatureStatus
	err    error
	// lag сдвигает часы во время вызова, имитируя медленный RPC
	lag time.Duration
}

type scriptedReader struct {
	clock   *fakeClock
	replies []statusReply
	calls   int
}

func (r *scriptedReader) GetSignatureStatus(_ context.Context, _ solana.Signature) (*blockchain.SignatureStatus, error) {
	r.calls++
	if len(r.replies) == 0 {
		return nil, nil
	}
	reply := r.replies[0]
	if len(r.replies) > 1 {
		r.replies = r.replies[1:]
	}
	if r.clock != nil {
		r.clock.Advance(reply.lag)
	}
	return reply.status, reply.err
}

type countingObserver struct {
	pollErrors int
	finished   []types.TxStatus
}

func (o *countingObserver) TransientPollError() { o.pollErrors++ }
func (o *countingObserver) SessionFinished(s types.TxStatus, _ time.Duration) {
	o.finished = append(o.finished, s)
}

var testSig = solana.Signature{7, 7, 7}

func newTestTracker(t *testing.T, reader blockchain.StatusReader, clock *fakeClock, obs Observer) *Tracker {
	t.Helper()
	cfg := Config{ConfirmationTime: 30 * time.Second, Commitment: types.LevelConfirmed}
	return NewTracker(reader, cfg, zaptest.NewLogger(t), WithClock(clock.Now), WithObserver(obs))
}

func confirmedAt(level types.ConfirmationLevel, slot uint64) *blockchain.SignatureStatus {
	return &blockchain.SignatureStatus{Level: level, Slot: slot}
}

func TestMarkSentEmitsSentThenConfirming(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	tr := newTestTracker(t, &scriptedReader{}, clock, nil)

	events := tr.MarkSent(testSig)
	require.Len(t, events, 2)
	assert.Equal(t, types.StatusSent, events[0].Status)
	assert.Equal(t, types.StatusConfirming, events[1].Status)
	assert.Equal(t, testSig.String(), events[0].Signature)
	assert.Equal(t, StateConfirming, tr.State())
	assert.Equal(t, clock.now.Add(30*time.Second), tr.Deadline())

	// повторный вызов ничего не меняет
	assert.Nil(t, tr.MarkSent(solana.Signature{1}))
}

func TestPollBeforeSentIsNoop(t *testing.T) {
	reader := &scriptedReader{}
	tr := newTestTracker(t, reader, &fakeClock{}, nil)
	assert.Nil(t, tr.Poll(context.Background()))
	assert.Zero(t, reader.calls)
}

func TestPollNotYetObservedEmitsNothing(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{replies: []statusReply{{}, {}, {}}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	for i := 0; i < 3; i++ {
		clock.Advance(200 * time.Millisecond)
		assert.Empty(t, tr.Poll(context.Background()))
	}
	assert.Equal(t, StateConfirming, tr.State())
}

func TestPollBelowThresholdKeepsConfirming(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{replies: []statusReply{
		{status: confirmedAt(types.LevelProcessed, 10)},
		{status: confirmedAt(types.LevelConfirmed, 12)},
	}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	assert.Empty(t, tr.Poll(context.Background()))

	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, types.StatusConfirmed, ev.Status)
	assert.Equal(t, types.LevelConfirmed, ev.ConfirmationLevel)
	require.NotNil(t, ev.Slot)
	assert.Equal(t, uint64(12), *ev.Slot)
	assert.Equal(t, StateConfirmed, tr.State())
}

func TestPollFinalizedSatisfiesFinalizedThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{replies: []statusReply{
		{status: confirmedAt(types.LevelConfirmed, 5)},
		{status: confirmedAt(types.LevelFinalized, 9)},
	}}
	tr := NewTracker(reader, Config{Commitment: types.LevelFinalized}, zaptest.NewLogger(t), WithClock(clock.Now))
	tr.MarkSent(testSig)

	assert.Empty(t, tr.Poll(context.Background()))
	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, types.LevelFinalized, events[0].ConfirmationLevel)
}

func TestPollProtocolErrorFailsAndStops(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	obs := &countingObserver{}
	reader := &scriptedReader{replies: []statusReply{{
		status: &blockchain.SignatureStatus{
			Level: types.LevelConfirmed,
			Slot:  99,
			Err:   map[string]interface{}{"InstructionError": []interface{}{float64(1), "InvalidAccountData"}},
		},
	}}}
	tr := newTestTracker(t, reader, clock, obs)
	tr.MarkSent(testSig)

	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusFailed, events[0].Status)
	assert.Equal(t, `{"InstructionError":[1,"InvalidAccountData"]}`, events[0].Error)
	assert.Equal(t, types.LevelConfirmed, events[0].ConfirmationLevel)

	calls := reader.calls
	assert.Nil(t, tr.Poll(context.Background()))
	assert.Equal(t, calls, reader.calls, "no polling after a terminal state")
	assert.Equal(t, []types.TxStatus{types.StatusFailed}, obs.finished)
}

func TestPollTransientErrorDoesNotTransition(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	obs := &countingObserver{}
	reader := &scriptedReader{replies: []statusReply{
		{err: errors.New("503 Service Unavailable")},
		{err: errors.New("connection reset by peer")},
		{status: confirmedAt(types.LevelConfirmed, 3)},
	}}
	tr := newTestTracker(t, reader, clock, obs)
	tr.MarkSent(testSig)

	assert.Empty(t, tr.Poll(context.Background()))
	assert.Empty(t, tr.Poll(context.Background()))
	assert.Equal(t, StateConfirming, tr.State())
	assert.Equal(t, 2, tr.TransientErrors())
	assert.Equal(t, 2, obs.pollErrors)

	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusConfirmed, events[0].Status)
}

func TestTimeoutEmittedOnceAtDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	var all []types.StatusEvent
	for i := 0; i < 200; i++ {
		clock.Advance(200 * time.Millisecond)
		all = append(all, tr.Poll(context.Background())...)
	}

	require.Len(t, all, 1)
	assert.Equal(t, types.StatusTimeout, all[0].Status)
	assert.Equal(t, "not confirmed after 30000ms", all[0].Error)
	assert.False(t, clock.now.Before(tr.Deadline()))
	assert.Equal(t, StateTimedOut, tr.State())
}

func TestSlowPollCannotExtendDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{clock: clock, replies: []statusReply{
		{err: errors.New("timeout"), lag: 31 * time.Second},
	}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusTimeout, events[0].Status)
}

func TestTransientErrorsConsumeBudget(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{replies: []statusReply{{err: errors.New("boom")}}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	var events []types.StatusEvent
	for !tr.Done() {
		clock.Advance(time.Second)
		events = append(events, tr.Poll(context.Background())...)
	}
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusTimeout, events[0].Status)
	assert.Equal(t, 29, tr.TransientErrors())
}

func TestCancelSuppressesFurtherEvents(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{replies: []statusReply{{status: confirmedAt(types.LevelFinalized, 1)}}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)
	tr.Cancel()

	assert.Nil(t, tr.Poll(context.Background()))
	assert.Zero(t, reader.calls)
	assert.Equal(t, StateCancelled, tr.State())
}

func TestPollWithCancelledContextIsSilent(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &scriptedReader{replies: []statusReply{{err: context.Canceled}}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	assert.Empty(t, tr.Poll(ctx))
	assert.Zero(t, tr.TransientErrors())
}

func TestLateTerminalStatusWinsOverTimeout(t *testing.T) {
	cases := map[string]struct {
		status *blockchain.SignatureStatus
		want   types.TxStatus
	}{
		"confirmed": {status: confirmedAt(types.LevelConfirmed, 42), want: types.StatusConfirmed},
		"failed": {
			status: &blockchain.SignatureStatus{Level: types.LevelProcessed, Slot: 42, Err: map[string]interface{}{"InstructionError": []interface{}{float64(0), "InvalidAccountData"}}},
			want:   types.StatusFailed,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(0, 0)}
			reader := &scriptedReader{clock: clock, replies: []statusReply{{status: tc.status, lag: 31 * time.Second}}}
			tr := newTestTracker(t, reader, clock, nil)
			tr.MarkSent(testSig)

			events := tr.Poll(context.Background())
			require.Len(t, events, 1)
			assert.Equal(t, tc.want, events[0].Status)
			assert.True(t, tr.Done())
			assert.Empty(t, tr.Poll(context.Background()))
		})
	}
}

func TestLateBelowThresholdStatusTimesOut(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	reader := &scriptedReader{clock: clock, replies: []statusReply{
		{status: confirmedAt(types.LevelProcessed, 42), lag: 31 * time.Second},
	}}
	tr := newTestTracker(t, reader, clock, nil)
	tr.MarkSent(testSig)

	events := tr.Poll(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, types.StatusTimeout, events[0].Status)
}
