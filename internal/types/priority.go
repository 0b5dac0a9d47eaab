package types

import "fmt"

type PriorityLevel string

const (
	PriorityLow     PriorityLevel = "low"
	PriorityMedium  PriorityLevel = "medium"
	PriorityHigh    PriorityLevel = "high"
	PriorityExtreme PriorityLevel = "extreme"
)

// PriorityConfig описывает запасной профиль комиссии для уровня.
type PriorityConfig struct {
	ComputeUnits uint32  // Number of compute units
	PriorityFee  uint64  // Priority fee in micro-lamports
	Percentile   float64 // Перцентиль недавних комиссий для оценки
}

var priorityProfiles = map[PriorityLevel]PriorityConfig{
	PriorityLow: {
		ComputeUnits: 200_000,
		PriorityFee:  1_000, // 0.000001 SOL in micro-lamports
		Percentile:   25,
	},
	PriorityMedium: {
		ComputeUnits: 400_000,
		PriorityFee:  5_000, // 0.000005 SOL in micro-lamports
		Percentile:   50,
	},
	PriorityHigh: {
		ComputeUnits: 800_000,
		PriorityFee:  10_000, // 0.00001 SOL in micro-lamports
		Percentile:   75,
	},
	PriorityExtreme: {
		ComputeUnits: 1_000_000,
		PriorityFee:  50_000, // 0.00005 SOL in micro-lamports
		Percentile:   95,
	},
}

// ParsePriorityLevel разбирает уровень; пустая строка дает PriorityMedium.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	level := PriorityLevel(s)
	if _, ok := priorityProfiles[level]; !ok {
		return "", fmt.Errorf("unknown priority level: %s", s)
	}
	return level, nil
}

// Profile возвращает профиль уровня; неизвестный уровень получает medium.
func (p PriorityLevel) Profile() PriorityConfig {
	if cfg, ok := priorityProfiles[p]; ok {
		return cfg
	}
	return priorityProfiles[PriorityMedium]
}
