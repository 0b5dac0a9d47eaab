package api

import (
	"net/http"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/fee"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

const maxFeeAccounts = 128

// FeeHandler - GET /api/fees?priority=high&accounts=<pk>,<pk>
type FeeHandler struct {
	estimator *fee.Estimator
	logger    *zap.Logger
}

func NewFeeHandler(estimator *fee.Estimator, logger *zap.Logger) *FeeHandler {
	return &FeeHandler{estimator: estimator, logger: logger.Named("fee-handler")}
}

func (h *FeeHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	priority, err := types.ParsePriorityLevel(q.Get("priority"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var accounts []solana.PublicKey
	if raw := q.Get("accounts"); raw != "" {
		parts := strings.Split(raw, ",")
		if len(parts) > maxFeeAccounts {
			writeError(w, http.StatusBadRequest, "too many accounts")
			return
		}
		for _, p := range parts {
			pk, err := solana.PublicKeyFromBase58(strings.TrimSpace(p))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid account "+p)
				return
			}
			accounts = append(accounts, pk)
		}
	}

	writeJSON(w, http.StatusOK, h.estimator.EstimateOrDefault(r.Context(), accounts, priority))
}
