package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"budgetmirror/internal/cache"
	"budgetmirror/internal/domain"
	"budgetmirror/internal/remote"
	"budgetmirror/internal/repository"
	"budgetmirror/internal/repository/sqlite"
)

// listingTransactions is the sync_state key for the transactions delta cursor
const listingTransactions = "transactions"

// Source supplies decoded remote listings
type Source interface {
	Budgets(ctx context.Context) (*remote.Listing[domain.Budget], error)
	Accounts(ctx context.Context, budgetID string) (*remote.Listing[domain.Account], error)
	CategoryTree(ctx context.Context, budgetID string) (*remote.Listing[domain.CategoryGroup], *remote.Listing[domain.Category], error)
	Transactions(ctx context.Context, budgetID string, since int64) (*remote.Listing[domain.Transaction], error)
}

// GatewayOptions tune sync behavior
type GatewayOptions struct {
	// Incremental requests only transactions changed since the stored
	// server knowledge
	Incremental bool
}

// ListingReport is the result of reconciling one listing
type ListingReport struct {
	Listing  string  `json:"listing"`
	BudgetID string  `json:"budget_id,omitempty"`
	Endpoint string  `json:"endpoint"`
	Outcome  Outcome `json:"outcome"`
	Skipped  int     `json:"skipped"`
}

// SyncReport summarizes one refresh
type SyncReport struct {
	BudgetID   string          `json:"budget_id,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Listings   []ListingReport `json:"listings"`
}

// Totals sums the outcomes of every listing
func (r *SyncReport) Totals() Outcome {
	var total Outcome
	for _, l := range r.Listings {
		total.Add(l.Outcome)
	}
	return total
}

// Skipped counts undecodable records across every listing
func (r *SyncReport) Skipped() int {
	n := 0
	for _, l := range r.Listings {
		n += l.Skipped
	}
	return n
}

// Gateway keeps the local mirror in step with the remote service and answers
// read queries from the mirror.
type Gateway struct {
	source    Source
	store     *sqlite.Store
	responses *cache.Cache
	eventBus  *EventBus
	logger    zerolog.Logger
	opts      GatewayOptions

	budgets        repository.Table[domain.Budget]
	accounts       repository.Table[domain.Account]
	categoryGroups repository.Table[domain.CategoryGroup]
	categories     repository.Table[domain.Category]
	transactions   repository.Table[domain.Transaction]
}

// NewGateway creates a gateway. responses may be nil when the source is not
// cache-backed; eventBus may be nil.
func NewGateway(source Source, store *sqlite.Store, responses *cache.Cache, eventBus *EventBus, logger zerolog.Logger, opts GatewayOptions) *Gateway {
	return &Gateway{
		source:         source,
		store:          store,
		responses:      responses,
		eventBus:       eventBus,
		logger:         logger.With().Str("component", "gateway").Logger(),
		opts:           opts,
		budgets:        sqlite.NewTable(store, sqlite.Budgets),
		accounts:       sqlite.NewTable(store, sqlite.Accounts),
		categoryGroups: sqlite.NewTable(store, sqlite.CategoryGroups),
		categories:     sqlite.NewTable(store, sqlite.Categories),
		transactions:   sqlite.NewTable(store, sqlite.Transactions),
	}
}

// ============================================================================
// Sync
// ============================================================================

// Refresh pulls every listing and upserts it into the mirror. With a
// budgetID only that budget's listings are synced (the budget list itself
// always is). Rows are never removed; a failed refresh leaves the mirror
// as the successful writes made it.
func (g *Gateway) Refresh(ctx context.Context, budgetID string) (*SyncReport, error) {
	report := &SyncReport{BudgetID: budgetID, StartedAt: time.Now()}
	g.eventBus.Publish(Event{Type: EventSyncStarted, Payload: map[string]string{"budget_id": budgetID}})

	if err := g.refresh(ctx, budgetID, report); err != nil {
		report.FinishedAt = time.Now()
		g.logger.Error().Err(err).Str("budget_id", budgetID).Msg("sync failed")
		g.eventBus.Publish(Event{Type: EventSyncFailed, Payload: map[string]string{"budget_id": budgetID, "error": err.Error()}})
		return report, err
	}

	report.FinishedAt = time.Now()
	totals := report.Totals()
	g.logger.Info().
		Int("inserted", totals.Inserted).
		Int("updated", totals.Updated).
		Int("unchanged", totals.Unchanged).
		Int("skipped", report.Skipped()).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("sync completed")
	g.eventBus.Publish(Event{Type: EventSyncCompleted, Payload: report})
	return report, nil
}

func (g *Gateway) refresh(ctx context.Context, budgetID string, report *SyncReport) error {
	budgets, err := g.source.Budgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	if err := syncListing(ctx, g, "", g.budgets, budgets, report); err != nil {
		return err
	}

	targets := budgets.Records
	if budgetID != "" {
		targets = nil
		for _, b := range budgets.Records {
			if b.ID == budgetID {
				targets = append(targets, b)
			}
		}
		if len(targets) == 0 {
			return fmt.Errorf("%w: %s", ErrBudgetNotFound, budgetID)
		}
	}

	for _, b := range targets {
		if err := g.refreshBudget(ctx, b.ID, report); err != nil {
			return fmt.Errorf("budget %s: %w", b.ID, err)
		}
	}
	return nil
}

func (g *Gateway) refreshBudget(ctx context.Context, budgetID string, report *SyncReport) error {
	accounts, err := g.source.Accounts(ctx, budgetID)
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	if err := syncListing(ctx, g, budgetID, g.accounts, accounts, report); err != nil {
		return err
	}

	groups, categories, err := g.source.CategoryTree(ctx, budgetID)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if err := syncListing(ctx, g, budgetID, g.categoryGroups, groups, report); err != nil {
		return err
	}
	if err := syncListing(ctx, g, budgetID, g.categories, categories, report); err != nil {
		return err
	}

	var since int64
	if g.opts.Incremental {
		since, err = g.store.ServerKnowledge(ctx, budgetID, listingTransactions)
		if err != nil {
			return fmt.Errorf("read server knowledge: %w", err)
		}
	}

	transactions, err := g.source.Transactions(ctx, budgetID, since)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if err := syncListing(ctx, g, budgetID, g.transactions, transactions, report); err != nil {
		return err
	}

	if transactions.ServerKnowledge > 0 {
		if err := g.store.SetServerKnowledge(ctx, budgetID, listingTransactions, transactions.ServerKnowledge); err != nil {
			return fmt.Errorf("store server knowledge: %w", err)
		}
	}
	return nil
}

// syncListing reconciles one decoded listing and records it in report under
// the table's name
func syncListing[T domain.Entity](ctx context.Context, g *Gateway, budgetID string, table repository.Table[T], listing *remote.Listing[T], report *SyncReport) error {
	name := table.Name()
	for _, skipped := range listing.Skipped {
		g.eventBus.Publish(Event{Type: EventRecordSkipped, Payload: skipped})
	}

	outcome, err := Reconcile(ctx, table, listing.Records)
	report.Listings = append(report.Listings, ListingReport{
		Listing:  name,
		BudgetID: budgetID,
		Endpoint: listing.Endpoint,
		Outcome:  outcome,
		Skipped:  len(listing.Skipped),
	})
	if err != nil {
		return fmt.Errorf("reconcile %s: %w", name, err)
	}

	g.logger.Debug().
		Str("listing", name).
		Str("budget_id", budgetID).
		Int("inserted", outcome.Inserted).
		Int("updated", outcome.Updated).
		Int("unchanged", outcome.Unchanged).
		Int("skipped", len(listing.Skipped)).
		Msg("listing synced")
	g.eventBus.Publish(Event{Type: EventListingSynced, Payload: report.Listings[len(report.Listings)-1]})
	return nil
}

// FullResync wipes the mirror and rebuilds it from the remote listings
func (g *Gateway) FullResync(ctx context.Context) (*SyncReport, error) {
	if err := g.FactoryReset(ctx); err != nil {
		return nil, err
	}
	return g.Refresh(ctx, "")
}

// FactoryReset wipes every mirrored row and the delta cursors
func (g *Gateway) FactoryReset(ctx context.Context) error {
	if err := g.store.ResetSchema(ctx); err != nil {
		return fmt.Errorf("reset mirror: %w", err)
	}
	g.logger.Warn().Msg("mirror reset")
	g.eventBus.Publish(Event{Type: EventMirrorReset})
	return nil
}

// ============================================================================
// Reads
// ============================================================================

// Budgets returns every mirrored budget sorted by name
func (g *Gateway) Budgets(ctx context.Context) ([]domain.Budget, error) {
	budgets, err := g.budgets.SelectAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(budgets, func(i, j int) bool {
		return budgets[i].Name < budgets[j].Name
	})
	return budgets, nil
}

// Accounts returns a budget's accounts sorted by name
func (g *Gateway) Accounts(ctx context.Context, budgetID string) ([]domain.Account, error) {
	accounts, err := g.accounts.Where(ctx, budgetID, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(accounts, func(i, j int) bool {
		return accounts[i].Name < accounts[j].Name
	})
	return accounts, nil
}

// CategoryGroups returns a budget's category groups sorted by name
func (g *Gateway) CategoryGroups(ctx context.Context, budgetID string) ([]domain.CategoryGroup, error) {
	groups, err := g.categoryGroups.Where(ctx, budgetID, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups, nil
}

// Categories returns a budget's categories sorted by group, then name
func (g *Gateway) Categories(ctx context.Context, budgetID string) ([]domain.Category, error) {
	categories, err := g.categories.Where(ctx, budgetID, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(categories, func(i, j int) bool {
		if categories[i].CategoryGroupID != categories[j].CategoryGroupID {
			return categories[i].CategoryGroupID < categories[j].CategoryGroupID
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// Transactions returns a budget's transactions, newest first
func (g *Gateway) Transactions(ctx context.Context, budgetID string) ([]domain.Transaction, error) {
	return g.TransactionsWhere(ctx, budgetID, nil)
}

// TransactionsWhere returns a budget's transactions matching filter, newest
// first. Invalid filters fail with domain.ErrInvalidFilter.
func (g *Gateway) TransactionsWhere(ctx context.Context, budgetID string, filter domain.Filter) ([]domain.Transaction, error) {
	transactions, err := g.transactions.Where(ctx, budgetID, filter)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(transactions)
	return transactions, nil
}

// sortNewestFirst orders by date descending; ISO dates sort as strings
func sortNewestFirst(transactions []domain.Transaction) {
	sort.SliceStable(transactions, func(i, j int) bool {
		if transactions[i].Date != transactions[j].Date {
			return transactions[i].Date > transactions[j].Date
		}
		return transactions[i].ID < transactions[j].ID
	})
}

// ============================================================================
// Cache and lifecycle
// ============================================================================

// SetForceRefresh bypasses the response cache on every call while on
func (g *Gateway) SetForceRefresh(force bool) {
	if g.responses != nil {
		g.responses.SetForceRefresh(force)
	}
}

// CacheStats reports response cache effectiveness
func (g *Gateway) CacheStats() cache.Stats {
	if g.responses == nil {
		return cache.Stats{}
	}
	return g.responses.Stats()
}

// Close writes the response cache and closes the store
func (g *Gateway) Close() error {
	var errs []error
	if g.responses != nil {
		if err := g.responses.Close(); err != nil {
			errs = append(errs, fmt.Errorf("write cache: %w", err))
		}
	}
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
