package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"market-advisor/internal/logger"
	"market-advisor/internal/market"
	"market-advisor/internal/news"
	"market-advisor/internal/types"
)

// housekeepingCron prunes caches and compresses old report logs nightly.
const housekeepingCron = "15 2 * * *"

// runWatch screens both asset classes on the configured schedule until ctx
// is cancelled.
func (a *app) runWatch(ctx context.Context) error {
	c := cron.New(cron.WithLocation(market.IST), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))

	if _, err := c.AddFunc(a.cfg.Screen.Cron, func() { a.screenAll(ctx) }); err != nil {
		return fmt.Errorf("%w: register screen schedule %q: %v", types.ErrInvalidInput, a.cfg.Screen.Cron, err)
	}
	if _, err := c.AddFunc(housekeepingCron, func() { a.housekeeping(ctx) }); err != nil {
		return fmt.Errorf("register housekeeping: %w", err)
	}

	c.Start()
	logger.Info(ctx, "Scheduler started", "screen_cron", a.cfg.Screen.Cron, "timezone", market.IST.String())

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info(ctx, "Scheduler stopped")
	return nil
}

func (a *app) screenAll(ctx context.Context) {
	op := logger.StartOperation(ctx, "watch.screen")
	ctx = op.GetContext()
	screens := 0
	defer func() { op.End("screens", screens) }()

	for _, class := range []types.AssetClass{types.AssetEquity, types.AssetFund} {
		if len(a.cfg.UniverseFor(class)) == 0 {
			continue
		}
		a.refreshNews(ctx, class)
		for _, side := range []types.ScreenSide{types.ScreenBuy, types.ScreenSell} {
			if ctx.Err() != nil {
				return
			}
			res, err := a.advisor.Screen(ctx, screenRequest(a.cfg, class, side, a.cfg.Screen.TopN, ""))
			if err != nil {
				logger.Warn(ctx, "Scheduled screen failed", "asset_class", string(class), "side", string(side), "error", err)
				continue
			}
			screens++
			if err := printScreen(os.Stdout, res, false); err != nil {
				logger.Warn(ctx, "Failed to print screen", "error", err)
			}
		}
	}
}

// refreshNews re-fetches headlines for every instrument of class so a
// scheduled run never scores news cached by the previous one. A failed
// refresh leaves that symbol to the normal cached lookup.
func (a *app) refreshNews(ctx context.Context, class types.AssetClass) int {
	var (
		g         errgroup.Group
		mu        sync.Mutex
		refreshed int
	)
	g.SetLimit(max(1, a.cfg.Screen.Concurrency))
	for _, inst := range a.cfg.UniverseFor(class) {
		g.Go(func() error {
			items, err := a.news.Refresh(ctx, news.Query{Symbol: inst.Symbol, Name: inst.Name})
			if err != nil {
				logger.Warn(ctx, "News refresh failed", "symbol", inst.Symbol, "error", err)
				return nil
			}
			logger.Debug(ctx, "News refreshed", "symbol", inst.Symbol, "items", len(items))
			mu.Lock()
			refreshed++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return refreshed
}

func (a *app) housekeeping(ctx context.Context) {
	a.news.ClearCache()

	if n, err := a.cache.Prune(); err != nil {
		logger.Warn(ctx, "Failed to prune market cache", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Pruned market cache", "files", n)
	}

	if a.reports != nil && a.cfg.ReportLog.RetentionDays > 0 {
		if n, err := a.reports.CompressOlder(a.cfg.ReportLog.RetentionDays); err != nil {
			logger.Warn(ctx, "Failed to compress old report logs", "error", err)
		} else if n > 0 {
			logger.Info(ctx, "Compressed old report logs", "files", n)
		}
	}
}
