package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-txcore/internal/app"
	"github.com/rovshanmuradov/solana-txcore/internal/export"
	"github.com/rovshanmuradov/solana-txcore/internal/render"
	"github.com/rovshanmuradov/solana-txcore/internal/report"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

type reportOptions struct {
	from   string
	to     string
	prices []string
	format string
	outDir string
	trades bool
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report <wallet> [wallet...]",
		Short: "Build P&L reports for one or more wallets",
		Example: `  txcore report 9xQe...VFin --from 2024-05-01T00:00:00Z --price DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263:0.00002
  txcore report 9xQe...VFin --format csv --out ./exports --trades
  txcore report 9xQe...VFin 4Nd1...DB4T --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.from, "from", "", "period start (RFC3339 or unix seconds)")
	f.StringVar(&opts.to, "to", "", "period end (RFC3339 or unix seconds)")
	f.StringArrayVar(&opts.prices, "price", nil, "current price as <asset>:<usd>, repeatable")
	f.StringVar(&opts.format, "format", "table", "output format: table, csv or json")
	f.StringVar(&opts.outDir, "out", "exports", "output directory for csv/json")
	f.BoolVar(&opts.trades, "trades", false, "also export the trade history (csv/json, single wallet only)")
	return cmd
}

func runReport(cmd *cobra.Command, wallets []string, opts *reportOptions) error {
	from, err := report.ParseTime(opts.from)
	if err != nil {
		return err
	}
	to, err := report.ParseTime(opts.to)
	if err != nil {
		return err
	}
	prices, err := report.ParsePrices(opts.prices)
	if err != nil {
		return err
	}

	var format export.ExportFormat
	if opts.format != "table" {
		if format, err = export.ParseFormat(opts.format); err != nil {
			return err
		}
	}
	if opts.trades && len(wallets) > 1 {
		return errors.New("--trades supports a single wallet")
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := app.Build(ctx, cfg, Version, log.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	done := log.TrackPerformance("pnl_report")
	var (
		summaries []report.Summary
		events    []types.TradeEvent
	)
	if len(wallets) == 1 {
		var s report.Summary
		s, events, err = a.Report(ctx, wallets[0], from, to, prices)
		summaries = append(summaries, s)
	} else {
		var byWallet map[string]report.Summary
		byWallet, err = a.ReportMany(ctx, wallets, from, to, prices)
		// порядок вывода - как в аргументах
		for _, w := range wallets {
			summaries = append(summaries, byWallet[w])
		}
	}
	done()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.format == "table" {
		view := render.NewSummaryView(func(asset string) string { return a.Symbol(ctx, asset) })
		for _, s := range summaries {
			if _, err := fmt.Fprintln(out, view.Render(s)); err != nil {
				return err
			}
		}
		return nil
	}

	exporter := export.NewTradeExporter(log.Logger)
	for _, s := range summaries {
		path, err := exporter.ExportReport(s, format, opts.outDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Report saved to %s\n", path)
	}

	if opts.trades && len(events) > 0 {
		path, err := exporter.ExportTrades(wallets[0], events, export.ExportOptions{
			Format:    format,
			StartTime: from,
			EndTime:   to,
			OutputDir: opts.outDir,
		})
		if err != nil {
			log.Warn("Trade export skipped", zap.Error(err))
			return nil
		}
		fmt.Fprintf(out, "Trades saved to %s\n", path)
	}
	return nil
}
