package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"budgetmirror/internal/domain"
)

// Fetcher performs the raw remote call
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) ([]byte, error)
}

// ResponseCache serves an endpoint from memory or through fetch
type ResponseCache interface {
	Get(ctx context.Context, endpoint string, fetch func(context.Context, string) ([]byte, error)) ([]byte, error)
}

// DecodeError reports a listing element, or a whole payload when Index is
// -1, that could not be decoded.
type DecodeError struct {
	Endpoint string
	Index    int
	ID       string
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Index < 0:
		return fmt.Sprintf("decode %s: %v", e.Endpoint, e.Err)
	case e.ID != "":
		return fmt.Sprintf("decode %s record %d (%s): %v", e.Endpoint, e.Index, e.ID, e.Err)
	default:
		return fmt.Sprintf("decode %s record %d: %v", e.Endpoint, e.Index, e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Listing is one decoded listing. Records keep the remote order; elements
// that failed to decode are reported in Skipped instead.
type Listing[T domain.Entity] struct {
	Endpoint        string
	Records         []T
	Skipped         []*DecodeError
	ServerKnowledge int64
}

// API fetches listings through the response cache and decodes them
type API struct {
	cache   ResponseCache
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewAPI creates an API. A nil cache fetches every call.
func NewAPI(cache ResponseCache, fetcher Fetcher, logger zerolog.Logger) *API {
	return &API{
		cache:   cache,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

func (a *API) get(ctx context.Context, endpoint string) ([]byte, error) {
	if a.cache == nil {
		return a.fetcher.Fetch(ctx, endpoint)
	}
	return a.cache.Get(ctx, endpoint, a.fetcher.Fetch)
}

// Budgets lists every budget
func (a *API) Budgets(ctx context.Context) (*Listing[domain.Budget], error) {
	return fetchListing(ctx, a, BudgetsEndpoint, "budgets", func(w wireBudget) (domain.Budget, error) {
		return w.toDomain()
	})
}

// Accounts lists the accounts of a budget
func (a *API) Accounts(ctx context.Context, budgetID string) (*Listing[domain.Account], error) {
	return fetchListing(ctx, a, AccountsEndpoint(budgetID), "accounts", func(w wireAccount) (domain.Account, error) {
		return w.toDomain(budgetID)
	})
}

// CategoryTree lists a budget's category groups and the categories nested
// in them. Both listings come from one response, so they always describe
// the same server state.
func (a *API) CategoryTree(ctx context.Context, budgetID string) (*Listing[domain.CategoryGroup], *Listing[domain.Category], error) {
	endpoint := CategoriesEndpoint(budgetID)
	body, err := a.get(ctx, endpoint)
	if err != nil {
		return nil, nil, err
	}

	elements, knowledge, err := splitEnvelope(endpoint, body, "category_groups")
	if err != nil {
		return nil, nil, err
	}

	groups := &Listing[domain.CategoryGroup]{Endpoint: endpoint, ServerKnowledge: knowledge}
	categories := &Listing[domain.Category]{Endpoint: endpoint, ServerKnowledge: knowledge}

	// categories are indexed across groups, in response order
	index := 0
	for i, raw := range elements {
		var w wireCategoryGroup
		if err := json.Unmarshal(raw, &w); err != nil {
			groups.Skipped = append(groups.Skipped, &DecodeError{Endpoint: endpoint, Index: i, ID: peekID(raw), Err: err})
			continue
		}

		g, err := w.toDomain(budgetID)
		if err != nil {
			groups.Skipped = append(groups.Skipped, &DecodeError{Endpoint: endpoint, Index: i, ID: peekID(raw), Err: err})
		} else {
			groups.Records = append(groups.Records, g)
		}

		for _, rawCategory := range w.Categories {
			c, derr := decodeRecord(endpoint, index, rawCategory, func(wc wireCategory) (domain.Category, error) {
				return wc.toDomain(budgetID, w.ID)
			})
			index++
			if derr != nil {
				categories.Skipped = append(categories.Skipped, derr)
				continue
			}
			categories.Records = append(categories.Records, c)
		}
	}

	a.logSkipped(endpoint, groups.Skipped)
	a.logSkipped(endpoint, categories.Skipped)
	return groups, categories, nil
}

// Transactions lists the transactions of a budget. A positive since only
// returns changes after that server knowledge.
func (a *API) Transactions(ctx context.Context, budgetID string, since int64) (*Listing[domain.Transaction], error) {
	return fetchListing(ctx, a, TransactionsEndpoint(budgetID, since), "transactions", func(w wireTransaction) (domain.Transaction, error) {
		return w.toDomain(budgetID)
	})
}

func fetchListing[W any, T domain.Entity](ctx context.Context, a *API, endpoint, key string, convert func(W) (T, error)) (*Listing[T], error) {
	body, err := a.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	elements, knowledge, err := splitEnvelope(endpoint, body, key)
	if err != nil {
		return nil, err
	}

	listing := &Listing[T]{Endpoint: endpoint, ServerKnowledge: knowledge}
	for i, raw := range elements {
		v, derr := decodeRecord(endpoint, i, raw, convert)
		if derr != nil {
			listing.Skipped = append(listing.Skipped, derr)
			continue
		}
		listing.Records = append(listing.Records, v)
	}

	a.logSkipped(endpoint, listing.Skipped)
	return listing, nil
}

func (a *API) logSkipped(endpoint string, skipped []*DecodeError) {
	for _, s := range skipped {
		a.logger.Warn().Err(s.Err).Str("endpoint", endpoint).Int("index", s.Index).Str("id", s.ID).Msg("skipping undecodable record")
	}
}

// splitEnvelope unwraps {"data": {key: [...], "server_knowledge": n}}
func splitEnvelope(endpoint string, body []byte, key string) ([]json.RawMessage, int64, error) {
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, 0, &DecodeError{Endpoint: endpoint, Index: -1, Err: err}
	}
	if envelope.Data == nil {
		return nil, 0, &DecodeError{Endpoint: endpoint, Index: -1, Err: fmt.Errorf("missing data object")}
	}

	raw, ok := envelope.Data[key]
	if !ok {
		return nil, 0, &DecodeError{Endpoint: endpoint, Index: -1, Err: fmt.Errorf("missing data.%s", key)}
	}
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, 0, &DecodeError{Endpoint: endpoint, Index: -1, Err: fmt.Errorf("data.%s: %w", key, err)}
	}

	var knowledge int64
	if rawKnowledge, ok := envelope.Data["server_knowledge"]; ok {
		if err := json.Unmarshal(rawKnowledge, &knowledge); err != nil {
			return nil, 0, &DecodeError{Endpoint: endpoint, Index: -1, Err: fmt.Errorf("data.server_knowledge: %w", err)}
		}
	}
	return elements, knowledge, nil
}

func decodeRecord[W any, T any](endpoint string, index int, raw json.RawMessage, convert func(W) (T, error)) (T, *DecodeError) {
	var (
		w    W
		zero T
	)
	if err := json.Unmarshal(raw, &w); err != nil {
		return zero, &DecodeError{Endpoint: endpoint, Index: index, ID: peekID(raw), Err: err}
	}
	v, err := convert(w)
	if err != nil {
		return zero, &DecodeError{Endpoint: endpoint, Index: index, ID: peekID(raw), Err: err}
	}
	return v, nil
}

// peekID pulls a string id out of a record for error messages
func peekID(raw json.RawMessage) string {
	var head struct {
		ID any `json:"id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	if s, ok := head.ID.(string); ok {
		return s
	}
	return ""
}
