package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseTime принимает RFC3339 или unix-секунды. Пустая строка - нулевое время.
func ParseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or unix seconds", raw)
	}
	return t, nil
}

// ParsePrices разбирает список <asset>:<usd> в карту цен.
func ParsePrices(values []string) (map[string]decimal.Decimal, error) {
	if len(values) == 0 {
		return nil, nil
	}
	prices := make(map[string]decimal.Decimal, len(values))
	for _, v := range values {
		asset, raw, ok := strings.Cut(v, ":")
		if !ok || asset == "" {
			return nil, fmt.Errorf("invalid price %q: want <asset>:<usd>", v)
		}
		price, err := decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("invalid price for %s: %q", asset, raw)
		}
		prices[asset] = price
	}
	return prices, nil
}
