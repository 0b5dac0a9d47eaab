package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestTradeRowToEvent(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	ev, ok := tradeRow{
		wallet: wallet, tradeType: "sell", input: "BONK", output: "SOL",
		inAmount: "1000.000000001", outAmount: "0.5",
		inUSD: nil, outUSD: strp("75.25"),
		ts: ts,
	}.toEvent()

	assert.True(t, ok)
	assert.Equal(t, "1000.000000001", ev.InputAmount.String())
	assert.Nil(t, ev.InputValueUSD)
	assert.Equal(t, "75.25", ev.OutputUSD().String())
	assert.Equal(t, time.UTC, ev.Timestamp.Location())
}

func TestTradeRowRejectsBadAmounts(t *testing.T) {
	_, ok := tradeRow{inAmount: "NaN?", outAmount: "1"}.toEvent()
	assert.False(t, ok)
}

func TestOptionalDecimalTreatsGarbageAsMissing(t *testing.T) {
	assert.Nil(t, optionalDecimal(strp("n/a")))
	assert.Nil(t, optionalDecimal(nil))
}
