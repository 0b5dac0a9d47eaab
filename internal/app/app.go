// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-txcore/internal/api"
	"github.com/rovshanmuradov/solana-txcore/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-txcore/internal/cache"
	"github.com/rovshanmuradov/solana-txcore/internal/config"
	"github.com/rovshanmuradov/solana-txcore/internal/fee"
	"github.com/rovshanmuradov/solana-txcore/internal/history"
	"github.com/rovshanmuradov/solana-txcore/internal/metrics"
	"github.com/rovshanmuradov/solana-txcore/internal/report"
	"github.com/rovshanmuradov/solana-txcore/internal/stream"
	"github.com/rovshanmuradov/solana-txcore/internal/transaction"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// ErrNoHistory - не настроен ни history.url, ни history.postgres_url.
var ErrNoHistory = errors.New("no trade history source configured")

const shutdownTimeout = 15 * time.Second

// App держит собранные компоненты сервиса.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	version  string
	client   *solbc.Client
	metrics  *metrics.Collector
	store    cache.Cache
	tokens   *solbc.TokenMetadataResolver
	history  history.Source
	reports  *report.Generator
	shutdown *ShutdownHandler
}

// Build собирает зависимости по конфигурации. Внешние подключения
// (Redis, Postgres) проверяются сразу.
func Build(ctx context.Context, cfg *config.Config, version string, logger *zap.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		logger:   logger,
		version:  version,
		metrics:  metrics.NewCollector(),
		reports:  report.NewGenerator(cfg.SettlementAssets, logger),
		shutdown: NewShutdownHandler(logger),
	}

	// первый узел из rpc_list; остальные - запасные для ручного переключения
	a.client = solbc.NewClient(cfg.RPCList[0], logger).WithObserver(a.metrics)

	store, err := a.buildCache(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.tokens = solbc.NewTokenMetadataResolver(a.client, store, cfg.TokenMetadataURL, logger)

	src, err := a.buildHistory(ctx)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.history = src

	logger.Info("application assembled",
		zap.String("rpc", cfg.RPCList[0]),
		zap.Int("rpc_nodes", len(cfg.RPCList)),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("history", src != nil))
	return a, nil
}

func (a *App) buildCache(ctx context.Context) (cache.Cache, error) {
	if a.cfg.Cache.Backend != config.CacheRedis {
		return cache.NewMemory(a.cfg.Cache.Size, a.cfg.CacheTTL()), nil
	}
	r, err := cache.NewRedis(ctx, cache.RedisConfig{
		Addr:      a.cfg.Redis.Addr,
		Password:  a.cfg.Redis.Password,
		DB:        a.cfg.Redis.DB,
		KeyPrefix: "txcore:",
		TTL:       a.cfg.CacheTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	a.shutdown.Add("redis", r)
	return r, nil
}

func (a *App) buildHistory(ctx context.Context) (history.Source, error) {
	switch {
	case a.cfg.History.PostgresURL != "":
		pg, err := history.NewPostgresSource(ctx, a.cfg.History.PostgresURL, a.logger)
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		a.shutdown.AddFunc("postgres", func() error { pg.Close(); return nil })
		return pg, nil
	case a.cfg.History.URL != "":
		return history.NewHTTPSource(history.HTTPConfig{
			BaseURL:  a.cfg.History.URL,
			PageSize: a.cfg.History.PageSize,
		}, a.logger), nil
	}
	return nil, nil
}

func (a *App) transactionConfig() transaction.Config {
	level, _ := types.ParseConfirmationLevel(a.cfg.Commitment)
	return transaction.Config{
		PollInterval:        a.cfg.PollInterval(),
		ConfirmationTime:    a.cfg.ConfirmTimeout(),
		Commitment:          level,
		SkipPreflight:       a.cfg.SkipPreflight,
		PreflightCommitment: rpc.CommitmentProcessed,
	}
}

// Server собирает HTTP сервер со всеми маршрутами.
func (a *App) Server() *api.Server {
	txCfg := a.transactionConfig()
	submitter := transaction.NewSubmitter(a.client, txCfg, a.logger)
	svc := stream.NewService(submitter, a.client, txCfg, a.metrics, a.logger)

	handlers := api.Handlers{
		Health:  api.NewHealthHandler(a.version),
		Stream:  stream.NewHandler(svc, a.logger),
		Fees:    api.NewFeeHandler(fee.NewEstimator(a.client, a.logger), a.logger),
		Metrics: a.metrics.Handler(),
	}
	if a.history != nil {
		handlers.PnL = api.NewPnLHandler(a.history, a.reports, a.tokens, a.metrics, a.logger)
	} else {
		a.logger.Warn("trade history not configured, /api/pnl disabled")
	}
	return api.NewServer(api.Config{Addr: a.cfg.ListenAddr}, handlers, a.logger)
}

// Serve работает до отмены ctx.
func (a *App) Serve(ctx context.Context) error {
	return a.Server().Run(ctx)
}

// Report строит P&L сводку кошелька за период.
func (a *App) Report(ctx context.Context, wallet string, from, to time.Time, prices map[string]decimal.Decimal) (report.Summary, []types.TradeEvent, error) {
	if a.history == nil {
		return report.Summary{}, nil, ErrNoHistory
	}
	events, err := a.history.Fetch(ctx, wallet, from, to)
	a.metrics.ReportGenerated(err)
	if err != nil {
		return report.Summary{}, nil, fmt.Errorf("fetch history: %w", err)
	}
	return a.reports.GenerateWindow(wallet, events, from, to, prices), events, nil
}

// ReportMany строит сводки нескольких кошельков. История загружается
// параллельно; ошибка любого кошелька отменяет остальные.
func (a *App) ReportMany(ctx context.Context, wallets []string, from, to time.Time, prices map[string]decimal.Decimal) (map[string]report.Summary, error) {
	if a.history == nil {
		return nil, ErrNoHistory
	}

	var (
		mu      sync.Mutex
		history = make(map[string][]types.TradeEvent, len(wallets))
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, wallet := range wallets {
		eg.Go(func() error {
			events, err := a.history.Fetch(egCtx, wallet, from, to)
			a.metrics.ReportGenerated(err)
			if err != nil {
				return fmt.Errorf("fetch history for %s: %w", wallet, err)
			}
			mu.Lock()
			history[wallet] = events
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return a.reports.GenerateMany(ctx, history, from, to, prices)
}

// Symbol - символ актива для вывода.
func (a *App) Symbol(ctx context.Context, asset string) string {
	return a.tokens.Symbol(ctx, asset)
}

// Close освобождает внешние подключения.
func (a *App) Close(ctx context.Context) error {
	// закрываем даже если ctx уже отменён сигналом
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return a.shutdown.Shutdown(ctx)
}
