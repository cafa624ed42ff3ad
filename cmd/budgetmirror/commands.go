package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"budgetmirror/internal/cache"
	"budgetmirror/internal/codec"
	"budgetmirror/internal/domain"
	"budgetmirror/internal/logger"
	"budgetmirror/internal/service"
	"budgetmirror/internal/watcher"
)

// openGateway wires the gateway from config. Commands that talk to the
// remote service pass requireToken.
func openGateway(c *cli.Context, requireToken bool) (*service.Gateway, *env, func(), error) {
	e := envFrom(c)
	log := logger.FromContext(c.Context)
	if requireToken {
		if err := e.cfg.Validate(); err != nil {
			return nil, nil, nil, err
		}
	}

	bus := service.NewEventBus()
	events := make(chan service.Event, 256)
	bus.Subscribe(events)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			log.Debug().Str("event", string(event.Type)).Interface("payload", event.Payload).Msg("gateway event")
		}
	}()

	g, err := service.Open(e.cfg, log, bus)
	if err != nil {
		close(events)
		<-done
		return nil, nil, nil, err
	}

	closeFn := func() {
		if err := g.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close gateway")
		}
		close(events)
		<-done
	}
	return g, e, closeFn, nil
}

// ============================================================================
// Sync commands
// ============================================================================

func syncCommand(c *cli.Context) error {
	g, _, closeFn, err := openGateway(c, true)
	if err != nil {
		return err
	}
	defer closeFn()

	if c.Bool("force") {
		g.SetForceRefresh(true)
	}

	report, err := g.Refresh(c.Context, c.String("budget"))
	if report != nil {
		printReport(c.App.Writer, report, g.CacheStats())
	}
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	return nil
}

func resyncCommand(c *cli.Context) error {
	g, _, closeFn, err := openGateway(c, true)
	if err != nil {
		return err
	}
	defer closeFn()

	if c.Bool("force") {
		g.SetForceRefresh(true)
	}

	report, err := g.FullResync(c.Context)
	if report != nil {
		printReport(c.App.Writer, report, g.CacheStats())
	}
	if err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	return nil
}

func watchCommand(c *cli.Context) error {
	g, e, closeFn, err := openGateway(c, true)
	if err != nil {
		return err
	}
	defer closeFn()

	interval := c.Duration("interval")
	if interval == 0 {
		interval = e.cfg.Cache.Refresh.Duration()
	}
	budgetID := c.String("budget")
	log := logger.FromContext(c.Context)

	w := watcher.New(interval, func(ctx context.Context) error {
		report, err := g.Refresh(ctx, budgetID)
		if report != nil {
			fmt.Fprintf(c.App.Writer, "%s  %s\n", report.FinishedAt.Format(time.RFC3339), summaryLine(report, g.CacheStats()))
		}
		return err
	}).WithMaxFailures(c.Int("max-failures")).WithLogger(log)

	log.Info().Dur("interval", interval).Msg("watching remote listings")
	err = w.Watch(c.Context)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func resetCommand(c *cli.Context) error {
	if !c.Bool("yes") {
		return fmt.Errorf("reset deletes every mirrored row; rerun with --yes to confirm")
	}

	g, _, closeFn, err := openGateway(c, false)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := g.FactoryReset(c.Context); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Mirror reset.")
	return nil
}

// ============================================================================
// Read commands
// ============================================================================

func budgetsCommand(c *cli.Context) error {
	g, _, closeFn, err := openGateway(c, false)
	if err != nil {
		return err
	}
	defer closeFn()

	budgets, err := g.Budgets(c.Context)
	if err != nil {
		return err
	}
	if len(budgets) == 0 {
		fmt.Fprintln(c.App.Writer, "No budgets mirrored yet. Run `budgetmirror sync`.")
		return nil
	}
	printBudgets(c.App.Writer, budgets)
	return nil
}

func accountsCommand(c *cli.Context) error {
	g, _, closeFn, err := openGateway(c, false)
	if err != nil {
		return err
	}
	defer closeFn()

	budget, err := resolveBudget(c.Context, g, c.String("budget"))
	if err != nil {
		return err
	}

	accounts, err := g.Accounts(c.Context, budget.ID)
	if err != nil {
		return err
	}
	if !c.Bool("all") {
		open := accounts[:0]
		for _, a := range accounts {
			if !a.Closed && !a.Deleted {
				open = append(open, a)
			}
		}
		accounts = open
	}

	printAccounts(c.App.Writer, accounts)
	return nil
}

func categoriesCommand(c *cli.Context) error {
	g, _, closeFn, err := openGateway(c, false)
	if err != nil {
		return err
	}
	defer closeFn()

	budget, err := resolveBudget(c.Context, g, c.String("budget"))
	if err != nil {
		return err
	}

	groups, err := g.CategoryGroups(c.Context, budget.ID)
	if err != nil {
		return err
	}
	categories, err := g.Categories(c.Context, budget.ID)
	if err != nil {
		return err
	}

	groupNames := make(map[string]string, len(groups))
	hiddenGroups := make(map[string]bool)
	for _, group := range groups {
		groupNames[group.ID] = group.Name
		if group.Hidden || group.Deleted {
			hiddenGroups[group.ID] = true
		}
	}

	if !c.Bool("all") {
		visible := categories[:0]
		for _, cat := range categories {
			if !cat.Hidden && !cat.Deleted && !hiddenGroups[cat.CategoryGroupID] {
				visible = append(visible, cat)
			}
		}
		categories = visible
	}

	printCategories(c.App.Writer, categories, groupNames)
	return nil
}

func transactionsCommand(c *cli.Context) error {
	exporter, err := exporterFor(c.String("format"))
	if err != nil {
		return err
	}

	filter, err := domain.ParseFilter(c.String("where"))
	if err != nil {
		return err
	}
	if !c.Bool("include-deleted") {
		filter = filter.And("deleted", domain.OpEq, "false")
	}

	g, _, closeFn, err := openGateway(c, false)
	if err != nil {
		return err
	}
	defer closeFn()

	budget, err := resolveBudget(c.Context, g, c.String("budget"))
	if err != nil {
		return err
	}

	txs, err := g.TransactionsWhere(c.Context, budget.ID, filter)
	if err != nil {
		return err
	}
	if limit := c.Int("limit"); limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}

	if exporter == nil {
		printTransactions(c.App.Writer, txs)
		return nil
	}
	return exporter.Export(codec.NewDocument(*budget, filter, txs, time.Now()), c.App.Writer)
}

// exporterFor returns nil for the table format
func exporterFor(format string) (codec.Exporter, error) {
	if format == "" || format == "table" {
		return nil, nil
	}
	return codec.ForFormat(format)
}

// resolveBudget picks the budget named by id or name, or the only mirrored
// budget when none is named
func resolveBudget(ctx context.Context, g *service.Gateway, wanted string) (*domain.Budget, error) {
	budgets, err := g.Budgets(ctx)
	if err != nil {
		return nil, err
	}
	if len(budgets) == 0 {
		return nil, fmt.Errorf("no budgets mirrored yet; run `budgetmirror sync` first")
	}

	if wanted == "" {
		if len(budgets) == 1 {
			return &budgets[0], nil
		}
		names := make([]string, 0, len(budgets))
		for _, b := range budgets {
			names = append(names, fmt.Sprintf("%s (%s)", b.Name, b.ID))
		}
		return nil, fmt.Errorf("several budgets mirrored, pick one with --budget: %s", strings.Join(names, ", "))
	}

	for i, b := range budgets {
		if b.ID == wanted || strings.EqualFold(b.Name, wanted) {
			return &budgets[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q is not in the mirror", service.ErrBudgetNotFound, wanted)
}

// ============================================================================
// Cache and config commands
// ============================================================================

func cacheStatsCommand(c *cli.Context) error {
	cfg := envFrom(c).cfg
	if cfg.Cache.Path == "" {
		fmt.Fprintln(c.App.Writer, "Response cache is memory-only (cache.path is empty).")
		return nil
	}

	responses := cache.New(cfg.Cache.Path, cfg.Cache.Refresh.Duration(), cache.WithLogger(logger.FromContext(c.Context)))
	printCacheEntries(c.App.Writer, cfg.Cache.Path, responses.Entries(), cfg.Cache.Refresh.Duration(), cfg.Cache.MaxAge.Duration(), time.Now())
	return nil
}

func cacheClearCommand(c *cli.Context) error {
	cfg := envFrom(c).cfg
	if cfg.Cache.Path == "" {
		return nil
	}

	responses := cache.New(cfg.Cache.Path, cfg.Cache.Refresh.Duration(), cache.WithLogger(logger.FromContext(c.Context)))
	n := len(responses.Entries())
	responses.Clear()
	if err := responses.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Cleared %d cached response(s) from %s\n", n, cfg.Cache.Path)
	return nil
}

func configShowCommand(c *cli.Context) error {
	e := envFrom(c)

	if e.cfgPath != "" {
		fmt.Fprintf(c.App.Writer, "# loaded from %s\n", e.cfgPath)
	} else {
		fmt.Fprintln(c.App.Writer, "# no config file found, showing defaults")
	}
	for _, line := range strings.Split(e.cfg.Summary(), "\n") {
		fmt.Fprintf(c.App.Writer, "# %s\n", line)
	}

	data, err := yaml.Marshal(e.cfg.Redacted())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = c.App.Writer.Write(data)
	return err
}
