package history

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

const wallet = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"

func tradeJSON(ts string, inUSD string) string {
	return fmt.Sprintf(`{"walletAddress":%q,"tradeType":"buy","inputAsset":"SOL","outputAsset":"BONK","inputAmount":"1.5","outputAmount":1000,"inputValueUSD":%s,"timestamp":%q}`,
		wallet, inUSD, ts)
}

func TestHTTPSourcePaginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wallets/"+wallet+"/trades", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		switch r.URL.Query().Get("cursor") {
		case "":
			fmt.Fprintf(w, `{"trades":[%s,%s],"nextCursor":"p2"}`,
				tradeJSON("2024-05-01T10:00:00Z", `"150"`), tradeJSON("2024-05-01T11:00:00Z", "null"))
		case "p2":
			fmt.Fprintf(w, `{"trades":[%s],"nextCursor":""}`, tradeJSON("2024-05-01T09:00:00Z", `12.5`))
		default:
			t.Errorf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, PageSize: 2}, zaptest.NewLogger(t))
	events, err := src.Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, types.TradeBuy, events[0].TradeType)
	assert.Equal(t, "150", events[0].InputUSD().String())
	assert.Nil(t, events[1].InputValueUSD)
	assert.Equal(t, "12.5", events[2].InputUSD().String())
	assert.Equal(t, "1000", events[2].OutputAmount.String())
}

func TestHTTPSourcePassesWindow(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-01T00:00:00Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-02-01T00:00:00Z", r.URL.Query().Get("to"))
		w.Write([]byte(`{"trades":[]}`))
	}))
	defer srv.Close()

	events, err := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t)).
		Fetch(context.Background(), wallet, from, to)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestHTTPSourceRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"trades":[%s]}`, tradeJSON("2024-05-01T10:00:00Z", `"1"`))
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
	events, err := src.Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSourceDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown wallet", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, RetryDelay: time.Millisecond}, zaptest.NewLogger(t))
	_, err := src.Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPSourceSkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"trades":[%s,{"inputAmount":"not-a-number"}]}`, tradeJSON("2024-05-01T10:00:00Z", `"1"`))
	}))
	defer srv.Close()

	events, err := NewHTTPSource(HTTPConfig{BaseURL: srv.URL}, zaptest.NewLogger(t)).
		Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestHTTPSourceFailsOnEndlessCursor(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		fmt.Fprintf(w, `{"trades":[%s],"nextCursor":"c%d"}`, tradeJSON("2024-05-01T10:00:00Z", `"1"`), n)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, MaxPages: 3}, zaptest.NewLogger(t))
	events, err := src.Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.ErrorIs(t, err, ErrTooManyPages)
	assert.Nil(t, events)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPSourceLastPageAtLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next := ""
		if calls.Add(1) < 2 {
			next = "p2"
		}
		fmt.Fprintf(w, `{"trades":[%s],"nextCursor":%q}`, tradeJSON("2024-05-01T10:00:00Z", `"1"`), next)
	}))
	defer srv.Close()

	src := NewHTTPSource(HTTPConfig{BaseURL: srv.URL, MaxPages: 2}, zaptest.NewLogger(t))
	events, err := src.Fetch(context.Background(), wallet, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
