package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/ledger"
	"github.com/rovshanmuradov/solana-txcore/internal/report"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseFormat принимает "csv" или "json".
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format: %s", s)
}

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format      ExportFormat
	StartTime   time.Time
	EndTime     time.Time
	AssetFilter string          // актив на любой стороне сделки
	TypeFilter  types.TradeType // buy/sell/swap
	OutputDir   string
}

// TradeExporter выгружает историю сделок и P&L сводки в файлы.
type TradeExporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewTradeExporter creates a new trade exporter
func NewTradeExporter(logger *zap.Logger) *TradeExporter {
	return &TradeExporter{logger: logger.Named("export"), now: time.Now}
}

// ExportTrades exports trades based on the provided options
func (te *TradeExporter) ExportTrades(wallet string, events []types.TradeEvent, options ExportOptions) (string, error) {
	filtered := ledger.SortedByTime(te.filterTrades(events, options))
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	outputPath, file, err := te.create(options.OutputDir, te.tradesFilename(wallet, options))
	if err != nil {
		return "", err
	}
	defer file.Close()

	switch options.Format {
	case FormatCSV:
		err = WriteTradesCSV(file, filtered)
	case FormatJSON:
		err = writeJSON(file, struct {
			ExportTime time.Time          `json:"exportTime"`
			Wallet     string             `json:"wallet"`
			TradeCount int                `json:"tradeCount"`
			Trades     []types.TradeEvent `json:"trades"`
		}{te.now().UTC(), wallet, len(filtered), filtered})
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

// ExportReport сохраняет сводку: JSON целиком, CSV - таблица позиций
// с итоговыми строками.
func (te *TradeExporter) ExportReport(summary report.Summary, format ExportFormat, outputDir string) (string, error) {
	name := fmt.Sprintf("pnl_%s_%s.%s", shortWallet(summary.WalletAddress), te.now().Format("20060102_150405"), format)
	outputPath, file, err := te.create(outputDir, name)
	if err != nil {
		return "", err
	}
	defer file.Close()

	switch format {
	case FormatCSV:
		err = WriteReportCSV(file, summary)
	case FormatJSON:
		err = writeJSON(file, summary)
	default:
		err = fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return "", err
	}

	te.logger.Info("Report exported",
		zap.String("file", outputPath),
		zap.String("wallet", summary.WalletAddress))
	return outputPath, nil
}

// filterTrades applies filters to the trade list
func (te *TradeExporter) filterTrades(events []types.TradeEvent, options ExportOptions) []types.TradeEvent {
	var filtered []types.TradeEvent
	for _, ev := range report.Window(events, options.StartTime, options.EndTime) {
		if options.AssetFilter != "" && ev.InputAsset != options.AssetFilter && ev.OutputAsset != options.AssetFilter {
			continue
		}
		if options.TypeFilter != "" && ev.TradeType != options.TypeFilter {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered
}

func (te *TradeExporter) tradesFilename(wallet string, options ExportOptions) string {
	prefix := "trades_all"
	if options.TypeFilter != "" {
		prefix = "trades_" + string(options.TypeFilter)
	}
	if wallet != "" {
		prefix += "_" + shortWallet(wallet)
	}
	return fmt.Sprintf("%s_%s.%s", prefix, te.now().Format("20060102_150405"), options.Format)
}

func (te *TradeExporter) create(dir, name string) (string, *os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create export file: %w", err)
	}
	return path, file, nil
}

var tradeHeaders = []string{
	"timestamp", "wallet", "type", "input_asset", "output_asset",
	"input_amount", "output_amount", "input_usd", "output_usd",
}

// WriteTradesCSV пишет сделки в CSV; отсутствующие USD значения - пустые ячейки.
func WriteTradesCSV(w io.Writer, events []types.TradeEvent) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tradeHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, ev := range events {
		record := []string{
			ev.Timestamp.UTC().Format(time.RFC3339),
			ev.WalletAddress,
			string(ev.TradeType),
			ev.InputAsset,
			ev.OutputAsset,
			ev.InputAmount.String(),
			ev.OutputAmount.String(),
			optional(ev.InputValueUSD),
			optional(ev.OutputValueUSD),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteReportCSV: строка на позицию, затем итоговые метрики.
func WriteReportCSV(w io.Writer, s report.Summary) error {
	writer := csv.NewWriter(w)
	rows := [][]string{{"asset", "quantity", "cost_basis_usd", "price_usd", "value_usd", "unrealized_usd"}}
	for _, p := range s.Positions {
		rows = append(rows, []string{
			p.Asset,
			p.Quantity.String(),
			p.CostBasisUSD.StringFixed(2),
			optional(p.PriceUSD),
			optional(p.ValueUSD),
			optional(p.UnrealizedUSD),
		})
	}
	rows = append(rows,
		[]string{},
		[]string{"wallet", s.WalletAddress},
		[]string{"realized_pnl_usd", s.RealizedPnLUSD.StringFixed(2)},
		[]string{"trade_count", fmt.Sprint(s.TradeCount)},
		[]string{"win_rate", fmt.Sprintf("%.2f", s.WinRate)},
		[]string{"best_trade_asset", s.BestTrade.Asset},
		[]string{"best_trade_profit_usd", s.BestTrade.Profit.StringFixed(2)},
	)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func optional(v *decimal.Decimal) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func shortWallet(wallet string) string {
	if len(wallet) > 8 {
		return wallet[:8]
	}
	return wallet
}
