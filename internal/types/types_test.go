package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmationLevelAtLeast(t *testing.T) {
	tests := []struct {
		level ConfirmationLevel
		want  ConfirmationLevel
		ok    bool
	}{
		{LevelProcessed, LevelConfirmed, false},
		{LevelConfirmed, LevelConfirmed, true},
		{LevelFinalized, LevelConfirmed, true},
		{LevelFinalized, LevelFinalized, true},
		{LevelConfirmed, LevelFinalized, false},
		{"", LevelProcessed, false},
	}
	for _, tt := range tests {
		if got := tt.level.AtLeast(tt.want); got != tt.ok {
			t.Errorf("%q.AtLeast(%q) = %v, want %v", tt.level, tt.want, got, tt.ok)
		}
	}
}

func TestParseConfirmationLevel(t *testing.T) {
	l, ok := ParseConfirmationLevel("")
	assert.True(t, ok)
	assert.Equal(t, LevelConfirmed, l)

	_, ok = ParseConfirmationLevel("recent")
	assert.False(t, ok)
}

func TestStatusEventJSONOmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(StatusEvent{Status: StatusSending})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"sending"}`, string(raw))

	slot := uint64(42)
	raw, err = json.Marshal(StatusEvent{
		Status:            StatusConfirmed,
		Signature:         "sig",
		ConfirmationLevel: LevelFinalized,
		Slot:              &slot,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"confirmed","signature":"sig","confirmationLevel":"finalized","slot":42}`, string(raw))
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range []TxStatus{StatusSending, StatusSent, StatusConfirming} {
		assert.False(t, s.IsTerminal(), s)
	}
	for _, s := range []TxStatus{StatusConfirmed, StatusFailed, StatusTimeout} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestPriorityProfiles(t *testing.T) {
	level, err := ParsePriorityLevel("")
	require.NoError(t, err)
	assert.Equal(t, PriorityMedium, level)

	_, err = ParsePriorityLevel("ludicrous")
	assert.Error(t, err)

	assert.Equal(t, uint64(50_000), PriorityExtreme.Profile().PriorityFee)
	assert.Equal(t, PriorityMedium.Profile(), PriorityLevel("bogus").Profile())
}
