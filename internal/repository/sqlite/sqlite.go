package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"budgetmirror/internal/domain"
	"budgetmirror/internal/repository"

	// pure Go driver, registers "sqlite"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when an update targets a row that does not exist.
var ErrNotFound = errors.New("row not found")

// StorageError reports a failed statement against one table
type StorageError struct {
	Op    string
	Table string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Table, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DecodeError reports a stored row that does not match its codec
type DecodeError struct {
	Table string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s row: %v", e.Table, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var (
	_ repository.Store                     = (*Store)(nil)
	_ repository.Table[domain.Budget]      = (*Table[domain.Budget])(nil)
	_ repository.Table[domain.Transaction] = (*Table[domain.Transaction])(nil)
)

// createSchema applies every managed table. Idempotent.
const createSchema = `
	CREATE TABLE IF NOT EXISTS budgets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		last_modified_on TEXT NOT NULL,
		first_month TEXT NOT NULL,
		last_month TEXT NOT NULL,
		date_format TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		on_budget INTEGER NOT NULL,
		closed INTEGER NOT NULL,
		note TEXT,
		balance INTEGER NOT NULL,
		cleared_balance INTEGER NOT NULL,
		uncleared_balance INTEGER NOT NULL,
		transfer_payee_id TEXT,
		direct_import_linked INTEGER NOT NULL,
		direct_import_in_error INTEGER NOT NULL,
		deleted INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS category_groups (
		id TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL,
		name TEXT NOT NULL,
		hidden INTEGER NOT NULL,
		deleted INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL,
		category_group_id TEXT NOT NULL,
		name TEXT NOT NULL,
		hidden INTEGER NOT NULL,
		original_category_group_id TEXT,
		note TEXT,
		budgeted INTEGER NOT NULL,
		activity INTEGER NOT NULL,
		balance INTEGER NOT NULL,
		deleted INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		budget_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount INTEGER NOT NULL,
		memo TEXT,
		cleared TEXT NOT NULL,
		approved INTEGER NOT NULL,
		account_id TEXT NOT NULL,
		account_name TEXT NOT NULL,
		payee_id TEXT,
		payee_name TEXT,
		category_id TEXT,
		category_name TEXT,
		transfer_account_id TEXT,
		transfer_transaction_id TEXT,
		matched_transaction_id TEXT,
		deleted INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_state (
		budget_id TEXT NOT NULL,
		listing TEXT NOT NULL,
		server_knowledge INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (budget_id, listing)
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_budget ON accounts(budget_id);
	CREATE INDEX IF NOT EXISTS idx_category_groups_budget ON category_groups(budget_id);
	CREATE INDEX IF NOT EXISTS idx_categories_budget ON categories(budget_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_budget ON transactions(budget_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(budget_id, date);
	`

// dropSchema removes every managed table
const dropSchema = `
	DROP TABLE IF EXISTS sync_state;
	DROP TABLE IF EXISTS transactions;
	DROP TABLE IF EXISTS categories;
	DROP TABLE IF EXISTS category_groups;
	DROP TABLE IF EXISTS accounts;
	DROP TABLE IF EXISTS budgets;
	`

// Store is the SQLite mirror. It implements repository.Store; typed access
// goes through Table values created with NewTable.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the store logger
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func New(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: the mirror has a single caller, and an in-memory
	// database only exists on the connection that created it.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	s.logger.Debug().Str("path", path).Msg("database ready")
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createSchema)
	return err
}

// ResetSchema drops and recreates every managed table. All mirrored rows of
// every entity type are destroyed, along with the delta sync cursors.
func (s *Store) ResetSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, dropSchema); err != nil {
		return &StorageError{Op: "drop", Table: "schema", Err: err}
	}
	if _, err := tx.ExecContext(ctx, createSchema); err != nil {
		return &StorageError{Op: "create", Table: "schema", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().Msg("schema reset")
	return nil
}

// ServerKnowledge returns the stored delta cursor for a budget listing, or 0
func (s *Store) ServerKnowledge(ctx context.Context, budgetID, listing string) (int64, error) {
	var knowledge int64
	err := s.db.QueryRowContext(ctx, `
		SELECT server_knowledge FROM sync_state
		WHERE budget_id = :budget_id AND listing = :listing
	`, sql.Named("budget_id", budgetID), sql.Named("listing", listing)).Scan(&knowledge)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, &StorageError{Op: "select", Table: "sync_state", Err: err}
	}
	return knowledge, nil
}

// SetServerKnowledge stores the delta cursor for a budget listing
func (s *Store) SetServerKnowledge(ctx context.Context, budgetID, listing string, knowledge int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (budget_id, listing, server_knowledge, updated_at)
		VALUES (:budget_id, :listing, :knowledge, CURRENT_TIMESTAMP)
		ON CONFLICT(budget_id, listing) DO UPDATE SET
			server_knowledge = excluded.server_knowledge,
			updated_at = CURRENT_TIMESTAMP
	`, sql.Named("budget_id", budgetID), sql.Named("listing", listing), sql.Named("knowledge", knowledge))

	if err != nil {
		return &StorageError{Op: "upsert", Table: "sync_state", Err: err}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
