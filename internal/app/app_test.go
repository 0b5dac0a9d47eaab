package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-txcore/internal/config"
)

const wallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func baseConfig() *config.Config {
	return &config.Config{
		RPCList:          []string{"http://127.0.0.1:1"},
		ListenAddr:       "127.0.0.1:0",
		PollIntervalMs:   200,
		ConfirmTimeoutMs: 30000,
		Commitment:       "confirmed",
		History:          config.HistoryConfig{PageSize: 100},
		Cache:            config.CacheConfig{Backend: config.CacheMemory, Size: 16, TTLSec: 60},
	}
}

func TestBuildWithoutHistory(t *testing.T) {
	a, err := Build(context.Background(), baseConfig(), "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, _, err = a.Report(context.Background(), wallet, time.Time{}, time.Time{}, nil)
	assert.ErrorIs(t, err, ErrNoHistory)

	srv := httptest.NewServer(a.Server().Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/api/pnl/" + wallet)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReportFromHTTPHistory(t *testing.T) {
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallets/"+wallet+"/trades", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"trades": []map[string]any{
				{
					"walletAddress": wallet, "tradeType": "buy",
					"inputAsset": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
					"outputAsset": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
					"inputAmount": "100", "outputAmount": "10",
					"inputValueUSD": "100", "timestamp": "2024-05-01T12:00:00Z",
				},
			},
		})
	}))
	defer hist.Close()

	cfg := baseConfig()
	cfg.History.URL = hist.URL
	a, err := Build(context.Background(), cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	summary, events, err := a.Report(context.Background(), wallet, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 1, summary.TradeCount)
	require.Len(t, summary.Positions, 1)
	assert.Equal(t, "BONK", a.Symbol(context.Background(), summary.Positions[0].Asset))
}

func TestReportManyFromHTTPHistory(t *testing.T) {
	const other = "4Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T"
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var trades []map[string]any
		if r.URL.Path == "/wallets/"+wallet+"/trades" {
			trades = append(trades, map[string]any{
				"walletAddress": wallet, "tradeType": "sell",
				"inputAsset":  "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
				"outputAsset": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
				"inputAmount": "10", "outputAmount": "120",
				"inputValueUSD": "100", "outputValueUSD": "120",
				"timestamp": "2024-05-01T12:00:00Z",
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"trades": trades})
	}))
	defer hist.Close()

	cfg := baseConfig()
	cfg.History.URL = hist.URL
	a, err := Build(context.Background(), cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	out, err := a.ReportMany(context.Background(), []string{wallet, other}, time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1, out[wallet].TradeCount)
	assert.Equal(t, 100.0, out[wallet].WinRate)
	assert.Equal(t, 0, out[other].TradeCount)
	assert.Equal(t, other, out[other].WalletAddress)
}

func TestReportManyHistoryError(t *testing.T) {
	hist := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer hist.Close()

	cfg := baseConfig()
	cfg.History.URL = hist.URL
	a, err := Build(context.Background(), cfg, "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.ReportMany(context.Background(), []string{wallet}, time.Time{}, time.Time{}, nil)
	assert.Error(t, err)

	empty, err := Build(context.Background(), baseConfig(), "test", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer empty.Close(context.Background())
	_, err = empty.ReportMany(context.Background(), []string{wallet}, time.Time{}, time.Time{}, nil)
	assert.ErrorIs(t, err, ErrNoHistory)
}

func TestShutdownLIFOAndErrors(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t))
	var order []string
	sh.AddFunc("first", func() error { order = append(order, "first"); return nil })
	sh.AddFunc("second", func() error { order = append(order, "second"); return errors.New("boom") })

	err := sh.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "second: boom")
	assert.Equal(t, []string{"second", "first"}, order)

	// повторный вызов - ничего не закрывает
	assert.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 2)
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zaptest.NewLogger(t))
	block := make(chan struct{})
	defer close(block)
	sh.AddFunc("stuck", func() error { <-block; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sh.Shutdown(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown timeout")
}
