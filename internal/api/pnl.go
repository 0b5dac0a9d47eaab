package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/history"
	"github.com/rovshanmuradov/solana-txcore/internal/report"
)

// SymbolResolver подписывает активы в ответе. Ошибки резолвера не мешают отчёту.
type SymbolResolver interface {
	Symbol(ctx context.Context, asset string) string
}

type ReportObserver interface {
	ReportGenerated(err error)
}

type pnlResponse struct {
	report.Summary
	Symbols map[string]string `json:"symbols,omitempty"`
}

// PnLHandler - GET /api/pnl/{wallet}?from=&to=&price=<asset>:<usd>
type PnLHandler struct {
	source    history.Source
	generator *report.Generator
	symbols   SymbolResolver
	observer  ReportObserver
	logger    *zap.Logger
}

func NewPnLHandler(source history.Source, generator *report.Generator, symbols SymbolResolver, observer ReportObserver, logger *zap.Logger) *PnLHandler {
	return &PnLHandler{
		source:    source,
		generator: generator,
		symbols:   symbols,
		observer:  observer,
		logger:    logger.Named("pnl-handler"),
	}
}

func (h *PnLHandler) Report(w http.ResponseWriter, r *http.Request) {
	wallet := r.PathValue("wallet")
	if _, err := solana.PublicKeyFromBase58(wallet); err != nil {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return
	}

	q := r.URL.Query()
	from, err := report.ParseTime(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := report.ParseTime(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		writeError(w, http.StatusBadRequest, "to is before from")
		return
	}
	prices, err := report.ParsePrices(q["price"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.source.Fetch(r.Context(), wallet, from, to)
	h.observe(err)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.Warn("trade history unavailable", zap.String("wallet", wallet), zap.Error(err))
		writeError(w, http.StatusBadGateway, "trade history unavailable")
		return
	}

	resp := pnlResponse{Summary: h.generator.GenerateWindow(wallet, events, from, to, prices)}
	if h.symbols != nil {
		resp.Symbols = h.resolveSymbols(r.Context(), resp.Summary)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PnLHandler) observe(err error) {
	if h.observer != nil {
		h.observer.ReportGenerated(err)
	}
}

func (h *PnLHandler) resolveSymbols(ctx context.Context, s report.Summary) map[string]string {
	symbols := make(map[string]string, len(s.Positions)+1)
	for _, p := range s.Positions {
		symbols[p.Asset] = h.symbols.Symbol(ctx, p.Asset)
	}
	if s.BestTrade.Asset != report.NoTradeAsset {
		symbols[s.BestTrade.Asset] = h.symbols.Symbol(ctx, s.BestTrade.Asset)
	}
	return symbols
}
