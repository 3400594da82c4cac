package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"entsoe-agent/internal/agent"
	"entsoe-agent/internal/config"
	"entsoe-agent/internal/entsoe"
	"entsoe-agent/internal/export"
	"entsoe-agent/internal/logging"
	"entsoe-agent/internal/market"
	"entsoe-agent/internal/model"
	"entsoe-agent/internal/watch"

	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "load":
		cmdProduct(ctx, entsoe.ProductLoad, args)
	case "generation":
		cmdProduct(ctx, entsoe.ProductGeneration, args)
	case "gen-forecast":
		cmdProduct(ctx, entsoe.ProductGenerationForecast, args)
	case "prices":
		cmdProduct(ctx, entsoe.ProductDayAheadPrice, args)
	case "flows":
		cmdProduct(ctx, entsoe.ProductCrossBorderFlow, args)
	case "renewables":
		cmdProduct(ctx, entsoe.ProductRenewableForecast, args)
	case "imbalance":
		cmdProduct(ctx, entsoe.ProductImbalancePrice, args)
	case "outages":
		cmdProduct(ctx, entsoe.ProductUnavailability, args)
	case "countries":
		mustWrite(market.SupportedCountries())
	case "info":
		cmdInfo(args)
	case "debug":
		cmdDebug(args)
	case "overview":
		cmdOverview(ctx, args)
	case "compare":
		cmdCompare(ctx, args)
	case "insights":
		cmdInsights(ctx, args)
	case "parse":
		cmdParse(args)
	case "tool":
		cmdTool(ctx, args)
	case "watch":
		cmdWatch(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli load|generation|imbalance --country DE [--span 24] [--out points.csv]")
	fmt.Println("  cli prices --country FR [--span 1]          (span = days back)")
	fmt.Println("  cli gen-forecast --country DE [--span 1]    (span = days ahead, 1..7)")
	fmt.Println("  cli renewables --country DK [--span 48]     (span = hours ahead, max 72)")
	fmt.Println("  cli outages --country DE [--span 7]         (span = days back, max 30)")
	fmt.Println("  cli flows --from DE --to FR [--span 24]")
	fmt.Println("  cli countries | info | debug --country DE --type prices")
	fmt.Println("  cli overview --country DE | compare --countries DE,FR | insights [--countries ...]")
	fmt.Println("  cli parse --file document.xml [--out points.csv]")
	fmt.Println("  cli tool --list | tool --name get_day_ahead_prices --args '{\"country_code\":\"DE\"}'")
	fmt.Println("  cli watch [--schedule '0 0 * * * *'] [--once]")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - the token is read from ENTSOE_API_TOKEN, ENTSOE_TOKEN or ENTSOE_API_KEY")
	fmt.Println("  - every command accepts --config for an optional YAML config file")
}

type env struct {
	cfg    *config.Config
	logger *zap.Logger
	client *entsoe.Client
	svc    *market.Service
}

func setup(cfgPath string) *env {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fail(err)
	}
	logger, err := logging.New(cfg.Logging.Level, "console")
	if err != nil {
		fail(err)
	}
	calc, err := cfg.Calculator()
	if err != nil {
		fail(err)
	}
	client := entsoe.NewClient(cfg.Entsoe.Token, cfg.Entsoe.BaseURL, cfg.Entsoe.Timeout, logger)
	svc := market.NewService(client, calc, logger)
	svc.BaseURL = cfg.Entsoe.BaseURL
	return &env{cfg: cfg, logger: logger, client: client, svc: svc}
}

func cmdProduct(ctx context.Context, id entsoe.ProductID, args []string) {
	fs := flag.NewFlagSet(string(id), flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	country := fs.String("country", "", "Two-letter country code")
	from := fs.String("from", "", "Source country (flows)")
	to := fs.String("to", "", "Destination country (flows)")
	span := fs.Int("span", 0, "Hours or days depending on the product (0=product default)")
	outPath := fs.String("out", "", "Optional: write data points as CSV to this path")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()

	res := e.svc.Get(ctx, market.Query{Product: id, Country: *country, From: *from, To: *to, Span: *span})
	finishResult(res, *outPath)
}

func finishResult(res *model.Result, outPath string) {
	if outPath != "" && res.OK() {
		if err := export.SavePointsCSV(outPath, res.DataPoints); err != nil {
			fail(err)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d rows to %s\n", len(res.DataPoints), outPath)
		return
	}
	mustWrite(res)
	if !res.OK() {
		os.Exit(1)
	}
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	mustWrite(e.svc.APIInfo())
}

func cmdDebug(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	country := fs.String("country", "DE", "Two-letter country code")
	dataType := fs.String("type", "load", "Product id or alias (load, generation, prices, flows, ...)")
	to := fs.String("to", "", "Destination country (flows)")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	info := e.svc.DebugRequest(*country, *dataType, *to)
	mustWrite(info)
	if info.Status != model.StatusSuccess {
		os.Exit(1)
	}
}

func cmdOverview(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("overview", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	country := fs.String("country", "", "Two-letter country code")
	hours := fs.Int("hours", 24, "Hours back")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()
	o := e.svc.Overview(ctx, *country, *hours)
	mustWrite(o)
	if !o.OK() {
		os.Exit(1)
	}
}

func cmdCompare(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	countries := fs.String("countries", "DE,FR", "Comma-separated country codes")
	hours := fs.Int("hours", 24, "Hours back")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()
	mustWrite(e.svc.Compare(ctx, splitList(*countries), *hours))
}

func cmdInsights(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	countries := fs.String("countries", "", "Comma-separated country codes (default DE,FR,IT,ES,NL)")
	hours := fs.Int("hours", 24, "Hours back")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()
	mustWrite(e.svc.MarketInsights(ctx, splitList(*countries), *hours))
}

// cmdParse runs the document parser over a file, without any network access.
func cmdParse(args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	file := fs.String("file", "", "Path to a market document (XML)")
	outPath := fs.String("out", "", "Optional: write data points as CSV to this path")
	level := fs.String("log-level", "warn", "Log level")
	_ = fs.Parse(args)

	if *file == "" {
		fmt.Println("--file is required")
		os.Exit(2)
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		fail(err)
	}

	logger := logging.Must(*level, "console")
	defer logger.Sync()

	doc, err := entsoe.NewParser(logger).Parse(raw)
	if err != nil {
		res := model.Failed(entsoe.KindOf(err), err.Error())
		var e *entsoe.Error
		if errors.As(err, &e) {
			res.RawContent = e.Snippet
		}
		mustWrite(res)
		os.Exit(1)
	}
	res := &model.Result{
		Status:      doc.Status,
		DataPoints:  doc.DataPoints,
		TotalPoints: doc.TotalPoints,
		Error:       doc.Error,
		ErrorCode:   doc.ReasonCode,
	}
	if doc.Status != model.StatusSuccess {
		res.ErrorKind = model.KindNoDataFound
	}
	finishResult(res, *outPath)
}

func cmdTool(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("tool", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	list := fs.Bool("list", false, "List tools and exit")
	name := fs.String("name", "", "Tool name")
	rawArgs := fs.String("args", "{}", "Tool arguments as a JSON object")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()
	reg := agent.NewRegistry(e.svc)

	if *list || *name == "" {
		mustWrite(map[string]any{"instructions": agent.Instructions, "tools": reg.Tools()})
		return
	}
	out, err := reg.Invoke(ctx, *name, json.RawMessage(*rawArgs))
	if err != nil {
		fail(err)
	}
	mustWrite(out)
}

func cmdWatch(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Optional YAML config")
	schedule := fs.String("schedule", "", "Cron schedule with seconds (default from config)")
	countries := fs.String("countries", "", "Comma-separated country codes (default from config)")
	outDir := fs.String("out-dir", "", "Directory for JSON snapshots (default from config)")
	once := fs.Bool("once", false, "Run once and exit")
	_ = fs.Parse(args)

	e := setup(*cfgPath)
	defer e.logger.Sync()

	opts := watch.Options{
		Countries: e.cfg.Watch.Countries,
		HoursBack: e.cfg.Watch.HoursBack,
		OutputDir: e.cfg.Watch.OutputDir,
	}
	if *countries != "" {
		opts.Countries = splitList(*countries)
	}
	if *outDir != "" {
		opts.OutputDir = *outDir
	}
	spec := e.cfg.Watch.Schedule
	if *schedule != "" {
		spec = *schedule
	}

	s := watch.NewScheduler(ctx, e.svc, opts, e.logger)
	if *once {
		snap, err := s.RunNow()
		if err != nil {
			fail(err)
		}
		mustWrite(snap)
		return
	}
	if err := s.Register(spec); err != nil {
		fail(err)
	}
	s.Start()
	<-ctx.Done()
	s.Stop()
}

func mustWrite(v any) {
	if err := export.WriteJSON(os.Stdout, v); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
