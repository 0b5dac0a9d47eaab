package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

const (
	DefaultPageSize = 100
	DefaultMaxPages = 1000
)

// ErrTooManyPages - курсор не закончился за MaxPages страниц; неполная
// история дала бы неверный P&L, поэтому она не возвращается.
var ErrTooManyPages = errors.New("trade history exceeds page limit")

// HTTPConfig настраивает HTTP-источник истории.
type HTTPConfig struct {
	BaseURL    string
	PageSize   int
	MaxPages   int
	MaxRetries uint
	RetryDelay time.Duration
	Timeout    time.Duration
}

// HTTPSource читает постраничный лог сделок: GET {base}/wallets/{wallet}/trades.
type HTTPSource struct {
	cfg    HTTPConfig
	client *http.Client
	logger *zap.Logger
}

type tradePage struct {
	Trades     []json.RawMessage `json:"trades"`
	NextCursor string            `json:"nextCursor"`
}

// permanentStatusError - ответ 4xx, повтор бессмысленен.
type permanentStatusError struct {
	code int
	body string
}

func (e *permanentStatusError) Error() string {
	return fmt.Sprintf("history API returned %d: %s", e.code, e.body)
}

func NewHTTPSource(cfg HTTPConfig, logger *zap.Logger) *HTTPSource {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 200 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPSource{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.Named("history-http"),
	}
}

// Fetch проходит по всем страницам. Каждая страница повторяется с
// экспоненциальной задержкой; битые записи пропускаются.
func (s *HTTPSource) Fetch(ctx context.Context, wallet string, from, to time.Time) ([]types.TradeEvent, error) {
	var (
		events  []types.TradeEvent
		cursor  string
		skipped int
	)

	for page := 0; ; page++ {
		if page == s.cfg.MaxPages {
			s.logger.Warn("trade history page limit reached",
				zap.String("wallet", wallet),
				zap.Int("pages", page),
				zap.Int("fetched", len(events)))
			return nil, fmt.Errorf("fetch trades for %s: %w (%d)", wallet, ErrTooManyPages, s.cfg.MaxPages)
		}

		p, err := s.fetchPageWithRetry(ctx, wallet, from, to, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch trades for %s (page %d): %w", wallet, page, err)
		}

		for _, raw := range p.Trades {
			var ev types.TradeEvent
			if err := json.Unmarshal(raw, &ev); err != nil {
				skipped++
				s.logger.Warn("skipping malformed trade record",
					zap.String("wallet", wallet),
					zap.Error(err))
				continue
			}
			events = append(events, ev)
		}

		if p.NextCursor == "" || len(p.Trades) == 0 {
			break
		}
		cursor = p.NextCursor
	}

	s.logger.Debug("trade history fetched",
		zap.String("wallet", wallet),
		zap.Int("count", len(events)),
		zap.Int("skipped", skipped))
	return events, nil
}

func (s *HTTPSource) fetchPageWithRetry(ctx context.Context, wallet string, from, to time.Time, cursor string) (*tradePage, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.RetryDelay
	policy.MaxInterval = s.cfg.RetryDelay * 10

	notify := func(err error, d time.Duration) {
		s.logger.Info("retrying trade history page", zap.Error(err), zap.Duration("backoff", d))
	}

	operation := func() (*tradePage, error) {
		return s.fetchPage(ctx, wallet, from, to, cursor)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(s.cfg.MaxRetries+1),
		backoff.WithNotify(notify))
}

func (s *HTTPSource) fetchPage(ctx context.Context, wallet string, from, to time.Time, cursor string) (*tradePage, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(s.cfg.PageSize))
	if !from.IsZero() {
		q.Set("from", from.UTC().Format(time.RFC3339))
	}
	if !to.IsZero() {
		q.Set("to", to.UTC().Format(time.RFC3339))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	endpoint := fmt.Sprintf("%s/wallets/%s/trades?%s", s.cfg.BaseURL, url.PathEscape(wallet), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("history API returned %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(&permanentStatusError{code: resp.StatusCode, body: string(body)})
	}

	var page tradePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode page: %w", err))
	}
	return &page, nil
}

var _ Source = (*HTTPSource)(nil)
