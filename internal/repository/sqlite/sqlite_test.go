package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmirror/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	require.NoError(t, err, "failed to create test store")

	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func sampleBudget(id string) domain.Budget {
	return domain.Budget{
		ID:             id,
		Name:           "Groceries Budget",
		LastModifiedOn: "2024-03-01T10:00:00Z",
		FirstMonth:     "2023-01-01",
		LastMonth:      "2024-03-01",
		DateFormat:     "YYYY-MM-DD",
	}
}

func sampleTransaction(id, budgetID string, amount domain.Milliunits) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		BudgetID:    budgetID,
		Date:        "2024-02-14",
		Amount:      amount,
		Cleared:     domain.ClearedStatusCleared,
		Approved:    true,
		AccountID:   "acct-1",
		AccountName: "Checking",
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestIntToBool(t *testing.T) {
	tests := []struct {
		name    string
		input   int64
		want    bool
		wantErr bool
	}{
		{name: "zero", input: 0, want: false},
		{name: "one", input: 1, want: true},
		{name: "two", input: 2, wantErr: true},
		{name: "negative", input: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := intToBool("flag", tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNullArg(t *testing.T) {
	assert.Nil(t, nullArg(domain.Transaction{}.Memo))
	assert.Equal(t, "x", nullArg(domain.Some("x")))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}

// ============================================================================
// Codec Round Trip Tests
// ============================================================================

func TestBudgetRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Budgets)

	b := sampleBudget(uuid.NewString())
	require.NoError(t, table.Insert(ctx, b))

	got, err := table.SelectByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b, *got)
}

func TestAccountRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Accounts)

	tests := []struct {
		name    string
		account domain.Account
	}{
		{
			name: "all optional fields present",
			account: domain.Account{
				ID:                  uuid.NewString(),
				BudgetID:            "b1",
				Name:                "Checking",
				Type:                domain.AccountTypeChecking,
				OnBudget:            true,
				Note:                domain.Some("joint account"),
				Balance:             125000,
				ClearedBalance:      100000,
				UnclearedBalance:    25000,
				TransferPayeeID:     domain.Some("payee-1"),
				DirectImportLinked:  true,
				DirectImportInError: true,
			},
		},
		{
			name: "optional fields absent",
			account: domain.Account{
				ID:       uuid.NewString(),
				BudgetID: "b1",
				Name:     "Old card",
				Type:     domain.AccountTypeCreditCard,
				Closed:   true,
				Balance:  -5000,
				Deleted:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, table.Insert(ctx, tt.account))

			got, err := table.SelectByID(ctx, tt.account.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.account, *got)
		})
	}
}

func TestCategoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	groups := NewTable(store, CategoryGroups)
	categories := NewTable(store, Categories)

	g := domain.CategoryGroup{ID: uuid.NewString(), BudgetID: "b1", Name: "Bills", Hidden: true}
	require.NoError(t, groups.Insert(ctx, g))
	gotGroup, err := groups.SelectByID(ctx, g.ID)
	require.NoError(t, err)
	require.NotNil(t, gotGroup)
	assert.Equal(t, g, *gotGroup)

	c := domain.Category{
		ID:                      uuid.NewString(),
		BudgetID:                "b1",
		CategoryGroupID:         g.ID,
		Name:                    "Rent",
		OriginalCategoryGroupID: domain.Some("old-group"),
		Budgeted:                1200000,
		Activity:                -1200000,
	}
	require.NoError(t, categories.Insert(ctx, c))
	gotCategory, err := categories.SelectByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, gotCategory)
	assert.Equal(t, c, *gotCategory)
}

func TestTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Transactions)

	full := sampleTransaction(uuid.NewString(), "b1", -4200)
	full.Memo = domain.Some("weekly shop")
	full.PayeeID = domain.Some("payee-1")
	full.PayeeName = domain.Some("Corner Shop")
	full.CategoryID = domain.Some("cat-1")
	full.CategoryName = domain.Some("Groceries")
	full.TransferAccountID = domain.Some("acct-2")
	full.TransferTransactionID = domain.Some("t-2")
	full.MatchedTransactionID = domain.Some("t-3")

	bare := sampleTransaction(uuid.NewString(), "b1", 0)
	bare.Approved = false
	bare.Deleted = true

	for _, tx := range []domain.Transaction{full, bare} {
		require.NoError(t, table.Insert(ctx, tx))
		got, err := table.SelectByID(ctx, tx.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, tx, *got)
	}
}

// ============================================================================
// Table Operation Tests
// ============================================================================

func TestSelectByIDMissing(t *testing.T) {
	table := NewTable(newTestStore(t), Transactions)

	got, err := table.SelectByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInsertDuplicateFails(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Budgets)

	b := sampleBudget("b1")
	require.NoError(t, table.Insert(ctx, b))

	err := table.Insert(ctx, b)
	require.Error(t, err)
	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))
	assert.Equal(t, "insert", storageErr.Op)
	assert.Equal(t, "budgets", storageErr.Table)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Transactions)

	tx := sampleTransaction("t1", "b1", -4200)
	require.NoError(t, table.Insert(ctx, tx))

	tx.Amount = -4500
	tx.Memo = domain.Some("corrected")
	require.NoError(t, table.Update(ctx, tx))

	got, err := table.SelectByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Milliunits(-4500), got.Amount)
	assert.Equal(t, tx, *got)

	tx.Memo = domain.Transaction{}.Memo
	require.NoError(t, table.Update(ctx, tx))
	got, err = table.SelectByID(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, got.Memo.Valid, "clearing an optional field stores NULL")
}

func TestUpdateMissingRow(t *testing.T) {
	table := NewTable(newTestStore(t), Budgets)

	err := table.Update(context.Background(), sampleBudget("ghost"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSelectAll(t *testing.T) {
	ctx := context.Background()
	table := NewTable(newTestStore(t), Budgets)

	all, err := table.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	for _, id := range []string{"b1", "b2", "b3"} {
		require.NoError(t, table.Insert(ctx, sampleBudget(id)))
	}

	all, err = table.SelectAll(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(all))
	for _, b := range all {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(t, []string{"b1", "b2", "b3"}, ids)
}

func TestReadRejectsMistypedColumns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := NewTable(store, Transactions)

	tests := []struct {
		name string
		sql  string
	}{
		{
			name: "boolean out of range",
			sql: `INSERT INTO transactions (id, budget_id, date, amount, cleared, approved, account_id, account_name, deleted)
				VALUES ('bad', 'b1', '2024-01-01', 100, 'cleared', 2, 'a1', 'Checking', 0)`,
		},
		{
			name: "text in integer column",
			sql: `INSERT INTO transactions (id, budget_id, date, amount, cleared, approved, account_id, account_name, deleted)
				VALUES ('bad', 'b1', '2024-01-01', 'lots', 'cleared', 1, 'a1', 'Checking', 0)`,
		},
		{
			name: "text in boolean column",
			sql: `INSERT INTO transactions (id, budget_id, date, amount, cleared, approved, account_id, account_name, deleted)
				VALUES ('bad', 'b1', '2024-01-01', 100, 'cleared', 'yes', 'a1', 'Checking', 0)`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.db.Exec(`DELETE FROM transactions`)
			require.NoError(t, err)
			_, err = store.db.Exec(tt.sql)
			require.NoError(t, err)

			_, err = table.SelectByID(ctx, "bad")
			require.Error(t, err)
			var decodeErr *DecodeError
			assert.True(t, errors.As(err, &decodeErr))

			_, err = table.SelectAll(ctx)
			assert.True(t, errors.As(err, &decodeErr))
		})
	}
}

// ============================================================================
// Structured Filter Tests
// ============================================================================

func seedTransactions(t *testing.T, table *Table[domain.Transaction]) {
	t.Helper()
	ctx := context.Background()

	coffee := sampleTransaction("t1", "b1", -4200)
	coffee.PayeeName = domain.Some("Coffee Corner")
	coffee.Memo = domain.Some("flat white")

	rent := sampleTransaction("t2", "b1", -1200000)
	rent.PayeeName = domain.Some("Landlord")
	rent.Approved = false

	salary := sampleTransaction("t3", "b1", 3000000)
	salary.PayeeName = domain.Some("Employer 100% Ltd")

	other := sampleTransaction("t4", "b2", -4200)
	other.PayeeName = domain.Some("Coffee Corner")

	for _, tx := range []domain.Transaction{coffee, rent, salary, other} {
		require.NoError(t, table.Insert(ctx, tx))
	}
}

func transactionIDs(txs []domain.Transaction) []string {
	ids := make([]string, 0, len(txs))
	for _, tx := range txs {
		ids = append(ids, tx.ID)
	}
	return ids
}

func TestWhere(t *testing.T) {
	table := NewTable(newTestStore(t), Transactions)
	seedTransactions(t, table)

	tests := []struct {
		name     string
		parentID string
		filter   domain.Filter
		want     []string
	}{
		{"parent only", "b1", nil, []string{"t1", "t2", "t3"}},
		{"no parent", "", nil, []string{"t1", "t2", "t3", "t4"}},
		{"integer comparison", "b1", domain.Where("amount", domain.OpLt, "-1000"), []string{"t1", "t2"}},
		{"contains is case insensitive", "b1", domain.Where("payee_name", domain.OpContains, "coffee"), []string{"t1"}},
		{"contains escapes wildcards", "b1", domain.Where("payee_name", domain.OpContains, "100%"), []string{"t3"}},
		{"boolean", "b1", domain.Where("approved", domain.OpEq, "false"), []string{"t2"}},
		{"is null", "b1", domain.Where("memo", domain.OpIsNull, ""), []string{"t2", "t3"}},
		{"not null", "b1", domain.Where("memo", domain.OpNotNull, ""), []string{"t1"}},
		{"conjunction", "b1", domain.Where("amount", domain.OpLt, "0").And("approved", domain.OpEq, "true"), []string{"t1"}},
		{"across parents", "", domain.Where("payee_name", domain.OpEq, "Coffee Corner"), []string{"t1", "t4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Where(context.Background(), tt.parentID, tt.filter)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, transactionIDs(got))
		})
	}
}

func TestWhereRejectsInvalidFilters(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	table := NewTable(store, Transactions)
	seedTransactions(t, table)

	tests := []struct {
		name   string
		filter domain.Filter
	}{
		{"unknown column", domain.Where("secret", domain.OpEq, "x")},
		{"sql in column", domain.Where("amount < 0 OR 1", domain.OpEq, "1")},
		{"unknown operator", domain.Filter{{Column: "amount", Op: "LIKE", Value: "1"}}},
		{"integer parse", domain.Where("amount", domain.OpEq, "1; DROP TABLE transactions")},
		{"boolean parse", domain.Where("approved", domain.OpEq, "maybe")},
		{"ordered boolean", domain.Where("approved", domain.OpGt, "true")},
		{"contains on integer", domain.Where("amount", domain.OpContains, "42")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := table.Where(ctx, "b1", tt.filter)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidFilter))
		})
	}

	// values are bound, never spliced
	got, err := table.Where(ctx, "b1", domain.Where("payee_name", domain.OpEq, "x' OR '1'='1"))
	require.NoError(t, err)
	assert.Empty(t, got)

	all, err := table.SelectAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestWhereOnUnscopedTable(t *testing.T) {
	table := NewTable(newTestStore(t), Budgets)

	_, err := table.Where(context.Background(), "b1", nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidFilter))

	_, err = table.Where(context.Background(), "", domain.Where("name", domain.OpContains, "x"))
	assert.NoError(t, err)
}

// ============================================================================
// Schema Tests
// ============================================================================

func TestResetSchemaWipesEveryTable(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	budgets := NewTable(store, Budgets)
	accounts := NewTable(store, Accounts)
	transactions := NewTable(store, Transactions)

	require.NoError(t, budgets.Insert(ctx, sampleBudget("b1")))
	require.NoError(t, accounts.Insert(ctx, domain.Account{ID: "a1", BudgetID: "b1", Name: "Cash", Type: domain.AccountTypeCash}))
	require.NoError(t, transactions.Insert(ctx, sampleTransaction("t1", "b1", -100)))
	require.NoError(t, store.SetServerKnowledge(ctx, "b1", "transactions", 42))

	require.NoError(t, store.ResetSchema(ctx))

	allBudgets, err := budgets.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, allBudgets)

	allAccounts, err := accounts.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, allAccounts)

	allTransactions, err := transactions.SelectAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, allTransactions)

	knowledge, err := store.ServerKnowledge(ctx, "b1", "transactions")
	require.NoError(t, err)
	assert.Zero(t, knowledge)

	// schema is usable again
	require.NoError(t, budgets.Insert(ctx, sampleBudget("b1")))
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.migrate(context.Background()))
	require.NoError(t, store.migrate(context.Background()))
}

func TestServerKnowledge(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	k, err := store.ServerKnowledge(ctx, "b1", "transactions")
	require.NoError(t, err)
	assert.Zero(t, k)

	require.NoError(t, store.SetServerKnowledge(ctx, "b1", "transactions", 10))
	require.NoError(t, store.SetServerKnowledge(ctx, "b1", "transactions", 12))
	require.NoError(t, store.SetServerKnowledge(ctx, "b2", "transactions", 3))

	k, err = store.ServerKnowledge(ctx, "b1", "transactions")
	require.NoError(t, err)
	assert.Equal(t, int64(12), k)

	k, err = store.ServerKnowledge(ctx, "b2", "transactions")
	require.NoError(t, err)
	assert.Equal(t, int64(3), k)
}

func TestFileBackedStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/mirror.db"

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, NewTable(store, Budgets).Insert(ctx, sampleBudget("b1")))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := NewTable(store, Budgets).SelectByID(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Groceries Budget", got.Name)
}
