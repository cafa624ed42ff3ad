package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetmirror/internal/domain"
	"budgetmirror/internal/repository/sqlite"
)

// memTable is an in-memory repository.Table that counts writes
type memTable struct {
	rows      map[string]domain.Transaction
	inserts   int
	updates   int
	failAfter int // fail the nth write when > 0
	writes    int
}

func newMemTable() *memTable {
	return &memTable{rows: make(map[string]domain.Transaction)}
}

var errWriteFailed = errors.New("disk full")

func (m *memTable) write() error {
	m.writes++
	if m.failAfter > 0 && m.writes >= m.failAfter {
		return errWriteFailed
	}
	return nil
}

func (m *memTable) Name() string { return "transactions" }

func (m *memTable) SelectByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (m *memTable) SelectAll(ctx context.Context) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *memTable) Where(ctx context.Context, parentID string, filter domain.Filter) ([]domain.Transaction, error) {
	return nil, errors.New("not supported")
}

func (m *memTable) Insert(ctx context.Context, v domain.Transaction) error {
	if err := m.write(); err != nil {
		return err
	}
	m.inserts++
	m.rows[v.ID] = v
	return nil
}

func (m *memTable) Update(ctx context.Context, v domain.Transaction) error {
	if err := m.write(); err != nil {
		return err
	}
	m.updates++
	m.rows[v.ID] = v
	return nil
}

func tx(id string, amount domain.Milliunits) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		BudgetID:    "b1",
		Date:        "2024-02-14",
		Amount:      amount,
		Cleared:     domain.ClearedStatusUncleared,
		AccountID:   "a1",
		AccountName: "Checking",
	}
}

func TestReconcileDecisions(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()

	out, err := Reconcile(ctx, table, []domain.Transaction{tx("t1", -100), tx("t2", -200)})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Inserted: 2}, out)

	changed := tx("t2", -250)
	out, err = Reconcile(ctx, table, []domain.Transaction{tx("t1", -100), changed, tx("t3", 50)})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Inserted: 1, Updated: 1, Unchanged: 1}, out)
	assert.Equal(t, changed, table.rows["t2"])

	// optional field going from absent to present is a change
	withMemo := tx("t1", -100)
	withMemo.Memo = domain.Some("lunch")
	out, err = Reconcile(ctx, table, []domain.Transaction{withMemo})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Updated: 1}, out)
}

func TestReconcileRepeatIsZeroWrites(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	records := []domain.Transaction{tx("t1", -100), tx("t2", -200), tx("t3", 300)}

	_, err := Reconcile(ctx, table, records)
	require.NoError(t, err)
	writes := table.inserts + table.updates

	out, err := Reconcile(ctx, table, records)
	require.NoError(t, err)
	assert.Equal(t, Outcome{Unchanged: 3}, out)
	assert.Zero(t, out.Writes())
	assert.Equal(t, writes, table.inserts+table.updates)
}

func TestReconcileNeverDeletes(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()

	_, err := Reconcile(ctx, table, []domain.Transaction{tx("t1", -100), tx("t2", -200)})
	require.NoError(t, err)

	_, err = Reconcile(ctx, table, []domain.Transaction{tx("t1", -100)})
	require.NoError(t, err)
	assert.Len(t, table.rows, 2)

	_, err = Reconcile(ctx, table, nil)
	require.NoError(t, err)
	assert.Len(t, table.rows, 2)
}

func TestReconcileStopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	table := newMemTable()
	table.failAfter = 2

	out, err := Reconcile(ctx, table, []domain.Transaction{tx("t1", 1), tx("t2", 2), tx("t3", 3)})
	require.ErrorIs(t, err, errWriteFailed)
	assert.Contains(t, err.Error(), "t2")
	assert.Equal(t, Outcome{Inserted: 1}, out)

	// the write before the failure stays
	assert.Contains(t, table.rows, "t1")
	assert.NotContains(t, table.rows, "t3")
}

func TestReconcileHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table := newMemTable()
	out, err := Reconcile(ctx, table, []domain.Transaction{tx("t1", 1)})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Writes())
	assert.Empty(t, table.rows)
}

func TestReconcileAmountChangeScenario(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	table := sqlite.NewTable(store, sqlite.Transactions)

	out, err := Reconcile(ctx, table, []domain.Transaction{tx("t1", -4200)})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Inserted: 1}, out)

	got, err := table.SelectByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Milliunits(-4200), got.Amount)

	out, err = Reconcile(ctx, table, []domain.Transaction{tx("t1", -4500)})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Updated: 1}, out)

	got, err = table.SelectByID(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Milliunits(-4500), got.Amount)

	out, err = Reconcile(ctx, table, []domain.Transaction{tx("t1", -4500)})
	require.NoError(t, err)
	assert.Zero(t, out.Writes())
	assert.Equal(t, Outcome{Unchanged: 1}, out)
}

func TestReconcileAgainstStoreMatchesBind(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	table := sqlite.NewTable(store, sqlite.Accounts)

	account := domain.Account{
		ID:              "a1",
		BudgetID:        "b1",
		Name:            "Checking",
		Type:            domain.AccountTypeChecking,
		OnBudget:        true,
		Balance:         1000,
		TransferPayeeID: domain.Some("p1"),
	}

	_, err = Reconcile(ctx, table, []domain.Account{account})
	require.NoError(t, err)

	// a stored row read back must compare equal, or every pass would update
	out, err := Reconcile(ctx, table, []domain.Account{account})
	require.NoError(t, err)
	assert.Equal(t, Outcome{Unchanged: 1}, out)
}
