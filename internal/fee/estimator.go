// Package fee estimates compute-unit prices from recent prioritization fees.
package fee

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// ErrNoSamples - RPC не вернул ни одной ненулевой комиссии.
var ErrNoSamples = errors.New("no recent prioritization fees")

// Estimate - результат оценки; Fallback означает, что использован запасной профиль.
type Estimate struct {
	Priority      types.PriorityLevel `json:"priority"`
	MicroLamports uint64              `json:"microLamports"`
	ComputeUnits  uint32              `json:"computeUnits"`
	Fallback      bool                `json:"fallback"`
}

// Estimator оценивает цену compute unit по перцентилю недавних комиссий.
type Estimator struct {
	reader blockchain.FeeReader
	logger *zap.Logger
}

func NewEstimator(reader blockchain.FeeReader, logger *zap.Logger) *Estimator {
	return &Estimator{reader: reader, logger: logger.Named("fee-estimator")}
}

// Estimate возвращает ошибку при любом сбое источника.
func (e *Estimator) Estimate(ctx context.Context, accounts []solana.PublicKey, priority types.PriorityLevel) (uint64, error) {
	fees, err := e.reader.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return 0, fmt.Errorf("recent prioritization fees: %w", err)
	}

	samples := make([]uint64, 0, len(fees))
	for _, f := range fees {
		if f > 0 {
			samples = append(samples, f)
		}
	}
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}

	return percentile(samples, priority.Profile().Percentile), nil
}

// EstimateOrDefault никогда не падает: при ошибке подставляет значение профиля.
func (e *Estimator) EstimateOrDefault(ctx context.Context, accounts []solana.PublicKey, priority types.PriorityLevel) Estimate {
	profile := priority.Profile()
	est := Estimate{Priority: priority, ComputeUnits: profile.ComputeUnits}

	fee, err := e.Estimate(ctx, accounts, priority)
	if err != nil {
		e.logger.Warn("fee estimation failed, using default",
			zap.String("priority", string(priority)),
			zap.Uint64("default", profile.PriorityFee),
			zap.Error(err))
		est.MicroLamports = profile.PriorityFee
		est.Fallback = true
		return est
	}

	est.MicroLamports = fee
	return est
}

// percentile - nearest-rank перцентиль p (0..100).
func percentile(samples []uint64, p float64) uint64 {
	sorted := append([]uint64(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	if math.IsNaN(p) || p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}
