package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reit_valuation/pkg/core/config"
	"reit_valuation/pkg/core/export"
	"reit_valuation/pkg/core/ingest"
	"reit_valuation/pkg/core/logger"
	"reit_valuation/pkg/core/pipeline"
	"reit_valuation/pkg/core/projection"
	"reit_valuation/pkg/core/report"
	"reit_valuation/pkg/core/statement"
	"reit_valuation/pkg/core/trend"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config file")
		ticker      = flag.String("ticker", "", "REIT ticker symbol (required)")
		date        = flag.String("date", "", "period end date YYYY-MM-DD (default: latest)")
		mode        = flag.String("mode", "", "trend mode: ttm or raw")
		horizon     = flag.Int("horizon", -1, "quarters to project (1 = next quarter, 4 = next year)")
		scale       = flag.String("scale", "", "scale metric (default totalAssets)")
		allowInput  = flag.Bool("allow-input", false, "apply growth overrides")
		overrides   = flag.String("overrides", "", "Hjson file of annualized growth overrides in percent")
		strict      = flag.Bool("strict", false, "fail when statement feeds disagree on periods")
		exportPath  = flag.String("export", "", "write the merged and projected series to this .xlsx file")
		format      = flag.String("format", "text", "output format: text, json or html")
		listPeriods = flag.Bool("periods", false, "list selectable periods and exit")
	)
	flag.Parse()

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "Error: -ticker is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[CONFIG] %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: true})

	source := ingest.NewFMPClient(ingest.Config{
		BaseURL:           cfg.Provider.BaseURL,
		APIKey:            cfg.Provider.APIKey,
		StatementLimit:    cfg.Provider.StatementLimit,
		MarketCapLimit:    cfg.Provider.MarketCapLimit,
		Timeout:           cfg.Provider.Timeout,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	}, log)

	defaultMode, _ := trend.ParseMode(cfg.Model.Mode)
	orch := pipeline.NewOrchestrator(source, pipeline.Defaults{
		ScaleMetric: cfg.Model.ScaleMetric,
		Mode:        defaultMode,
		Horizon:     cfg.Model.Horizon,
		StrictMerge: cfg.Model.StrictMerge,
	}, log)

	ctx := context.Background()

	if *listPeriods {
		dates, err := orch.Periods(ctx, *ticker)
		if err != nil {
			log.Fatal().Err(err).Msg("Listing periods failed")
		}
		for _, d := range dates {
			fmt.Println(d.Format(statement.DateLayout))
		}
		return
	}

	req := pipeline.Request{
		Ticker:      *ticker,
		Date:        *date,
		ScaleMetric: *scale,
		Mode:        *mode,
		AllowInput:  *allowInput,
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "strict" {
			req.StrictMerge = strict
		}
	})
	if *horizon >= 0 {
		req.Horizon = horizon
	}
	if *overrides != "" {
		o, err := projection.LoadOverrides(*overrides)
		if err != nil {
			log.Fatal().Err(err).Msg("Loading overrides failed")
		}
		req.Overrides = o
	}

	res, err := orch.Run(ctx, req)
	if err != nil {
		log.Fatal().Err(err).Msg("Valuation failed")
	}

	if *exportPath != "" {
		if err := export.SaveXLSX(*exportPath, res.Series); err != nil {
			log.Error().Err(err).Msg("Export failed")
		} else {
			log.Info().Str("path", *exportPath).Msg("Series exported")
		}
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			log.Fatal().Err(err).Msg("Encoding result failed")
		}
	case "html":
		html, err := report.HTML(res)
		if err != nil {
			log.Fatal().Err(err).Msg("Rendering report failed")
		}
		fmt.Println(html)
	default:
		fmt.Println(report.Markdown(res))
	}
}
