package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"market-advisor/internal/logger"
	"market-advisor/internal/store"
	"market-advisor/internal/types"
)

const usage = `usage: advisor [-config config.yaml] <command> [flags]

commands:
  analyze  [-class equity|fund] [-period 1y] [-json] SYMBOL...
  screen   [-class equity|fund] [-side buy|sell] [-top 5] [-period 3mo] [-json]
  overview [-json]
  watch    run scheduled screens until interrupted
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("advisor", flag.ContinueOnError)
	configPath := global.String("config", "config.yaml", "path to config file")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = logger.Shutdown(shutdownCtx)
	}()

	cfg, err := loadConfig(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	a, err := bootstrap(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize advisor", err)
		return 1
	}

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "analyze":
		err = a.runAnalyze(ctx, rest)
	case "screen":
		err = a.runScreen(ctx, rest)
	case "overview":
		err = a.runOverview(ctx, rest)
	case "watch":
		err = a.runWatch(ctx)
	default:
		global.Usage()
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 2
	case errors.Is(err, types.ErrInvalidInput):
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
		return 1
	}
}

func (a *app) runAnalyze(ctx context.Context, args []string) error {
	fl := flag.NewFlagSet("analyze", flag.ContinueOnError)
	class := fl.String("class", "", "asset class: equity or fund (default: from universe, else equity)")
	period := fl.String("period", "", "price history period (default from config)")
	asJSON := fl.Bool("json", false, "print JSON instead of a table")
	if err := fl.Parse(args); err != nil {
		return err
	}
	if fl.NArg() == 0 {
		return fmt.Errorf("%w: no symbol given", types.ErrInvalidInput)
	}

	var failed int
	for _, sym := range fl.Args() {
		req, err := resolveRequest(a.cfg, sym, *class)
		if err != nil {
			return err
		}
		req.Period = *period

		report, err := a.advisor.Analyze(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "%s: %v\n", req.Symbol, err)
			failed++
			continue
		}
		if err := printReport(os.Stdout, report, *asJSON); err != nil {
			return err
		}
	}
	if failed == fl.NArg() {
		return fmt.Errorf("all %d analyses failed", failed)
	}
	return nil
}

func (a *app) runScreen(ctx context.Context, args []string) error {
	fl := flag.NewFlagSet("screen", flag.ContinueOnError)
	class := fl.String("class", "equity", "asset class: equity or fund")
	side := fl.String("side", "buy", "buy (best first) or sell (worst first)")
	top := fl.Int("top", a.cfg.Screen.TopN, "number of entries to return")
	period := fl.String("period", "", "price history period (default from config)")
	asJSON := fl.Bool("json", false, "print JSON instead of a table")
	if err := fl.Parse(args); err != nil {
		return err
	}

	ac, err := types.ParseAssetClass(*class)
	if err != nil {
		return err
	}
	res, err := a.advisor.Screen(ctx, screenRequest(a.cfg, ac, types.ScreenSide(strings.ToLower(*side)), *top, *period))
	if res != nil {
		if perr := printScreen(os.Stdout, res, *asJSON); perr != nil {
			return perr
		}
	}
	return err
}

func (a *app) runOverview(ctx context.Context, args []string) error {
	fl := flag.NewFlagSet("overview", flag.ContinueOnError)
	asJSON := fl.Bool("json", false, "print JSON instead of a table")
	if err := fl.Parse(args); err != nil {
		return err
	}
	quotes, err := a.yahoo.Overview(ctx, marketIndices)
	if err != nil {
		return err
	}
	return printOverview(os.Stdout, quotes, *asJSON)
}

// marketIndices are the benchmarks shown by overview.
var marketIndices = []string{"^NSEI", "^BSESN", "^NSEBANK", "^CNXIT"}

// resolveRequest fills name, category and asset class from the configured
// universe. Unknown equity symbols get the exchange suffix when they carry
// none.
func resolveRequest(cfg *store.Config, symbol, class string) (types.AnalysisRequest, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return types.AnalysisRequest{}, fmt.Errorf("%w: empty symbol", types.ErrInvalidInput)
	}

	var req types.AnalysisRequest
	if class != "" {
		ac, err := types.ParseAssetClass(class)
		if err != nil {
			return req, err
		}
		req.AssetClass = ac
	}

	candidates := []string{symbol}
	if !strings.Contains(symbol, ".") {
		candidates = append(candidates, symbol+exchangeSuffix(cfg.Exchange))
	}
	for _, s := range candidates {
		inst, ac, ok := cfg.LookupInstrument(s)
		if !ok || (req.AssetClass != "" && req.AssetClass != ac) {
			continue
		}
		req.Symbol, req.Name, req.Category, req.AssetClass = inst.Symbol, inst.Name, inst.Category, ac
		return req, nil
	}

	if req.AssetClass == "" {
		req.AssetClass = types.AssetEquity
		if isSchemeCode(symbol) {
			req.AssetClass = types.AssetFund
		}
	}
	req.Symbol = symbol
	if req.AssetClass == types.AssetEquity && !strings.Contains(symbol, ".") && !strings.HasPrefix(symbol, "^") {
		req.Symbol = symbol + exchangeSuffix(cfg.Exchange)
	}
	return req, nil
}

func screenRequest(cfg *store.Config, class types.AssetClass, side types.ScreenSide, top int, period string) types.ScreenRequest {
	req := types.ScreenRequest{AssetClass: class, Side: side, TopN: top, Period: period}
	for _, inst := range cfg.UniverseFor(class) {
		req.Universe = append(req.Universe, types.AnalysisRequest{
			Symbol:   inst.Symbol,
			Name:     inst.Name,
			Category: inst.Category,
		})
	}
	return req
}

func exchangeSuffix(exchange string) string {
	if exchange == "BSE" {
		return ".BO"
	}
	return ".NS"
}

// isSchemeCode reports whether s looks like an AMFI scheme code.
func isSchemeCode(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
