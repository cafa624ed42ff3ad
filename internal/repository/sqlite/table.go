package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"budgetmirror/internal/domain"
)

// Table is typed access to one mirrored table through its codec.
// It implements repository.Table.
type Table[T domain.Entity] struct {
	store *Store
	codec Codec[T]
}

// NewTable binds a codec to the store
func NewTable[T domain.Entity](store *Store, codec Codec[T]) *Table[T] {
	return &Table[T]{store: store, codec: codec}
}

// Name returns the table name
func (t *Table[T]) Name() string {
	return t.codec.Table()
}

// SelectByID returns the row with the given id, or nil when there is none
func (t *Table[T]) SelectByID(ctx context.Context, id string) (*T, error) {
	row := t.store.db.QueryRowContext(ctx, t.codec.SelectByIDQuery(), sql.Named("id", id))

	v, err := t.codec.Read(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &DecodeError{Table: t.codec.Table(), Err: err}
	}
	return &v, nil
}

// SelectAll returns every row in storage order. Callers needing an order
// must sort.
func (t *Table[T]) SelectAll(ctx context.Context) ([]T, error) {
	return t.query(ctx, t.codec.SelectAllQuery())
}

// Where returns the rows under parentID matching every condition of filter.
// Columns must be in the codec's allow-list; values are always bound.
// An empty parentID on a scoped table selects across all parents.
func (t *Table[T]) Where(ctx context.Context, parentID string, filter domain.Filter) ([]T, error) {
	clause, args, err := buildWhere(t.codec, parentID, filter)
	if err != nil {
		return nil, err
	}
	return t.query(ctx, t.codec.SelectAllQuery()+clause, args...)
}

// Insert writes a new row. A duplicate id fails.
func (t *Table[T]) Insert(ctx context.Context, v T) error {
	if _, err := t.store.db.ExecContext(ctx, t.codec.InsertQuery(), t.codec.Bind(v)...); err != nil {
		return &StorageError{Op: "insert", Table: t.codec.Table(), Err: err}
	}
	return nil
}

// Update overwrites the row with v's id. A missing row fails with ErrNotFound.
func (t *Table[T]) Update(ctx context.Context, v T) error {
	res, err := t.store.db.ExecContext(ctx, t.codec.UpdateQuery(), t.codec.Bind(v)...)
	if err != nil {
		return &StorageError{Op: "update", Table: t.codec.Table(), Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Op: "update", Table: t.codec.Table(), Err: err}
	}
	if n == 0 {
		return &StorageError{Op: "update", Table: t.codec.Table(), Err: fmt.Errorf("%w: id %s", ErrNotFound, v.Key())}
	}
	return nil
}

func (t *Table[T]) query(ctx context.Context, query string, args ...any) ([]T, error) {
	rows, err := t.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Op: "select", Table: t.codec.Table(), Err: err}
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := t.codec.Read(rows)
		if err != nil {
			return nil, &DecodeError{Table: t.codec.Table(), Err: err}
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "select", Table: t.codec.Table(), Err: err}
	}
	return out, nil
}

// ============================================================================
// Structured Filters
// ============================================================================

// buildWhere turns a parent scope and a filter into a WHERE clause with
// named parameters :parent, :p0, :p1, ... Only allow-listed column names and
// fixed operator text ever reach the SQL string.
func buildWhere[T domain.Entity](codec Codec[T], parentID string, filter domain.Filter) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)

	if parentID != "" {
		parent := codec.ParentColumn()
		if parent == "" {
			return "", nil, fmt.Errorf("%w: %s is not scoped by a parent", domain.ErrInvalidFilter, codec.Table())
		}
		clauses = append(clauses, parent+" = :parent")
		args = append(args, sql.Named("parent", parentID))
	}

	columns := codec.Columns()
	for i, cond := range filter {
		kind, ok := columns[cond.Column]
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown column %q for %s", domain.ErrInvalidFilter, cond.Column, codec.Table())
		}
		if !cond.Op.Valid() {
			return "", nil, fmt.Errorf("%w: unknown operator %q", domain.ErrInvalidFilter, cond.Op)
		}

		switch cond.Op {
		case domain.OpIsNull:
			clauses = append(clauses, cond.Column+" IS NULL")
			continue
		case domain.OpNotNull:
			clauses = append(clauses, cond.Column+" IS NOT NULL")
			continue
		}

		if cond.Op.Ordered() && kind == KindBool {
			return "", nil, fmt.Errorf("%w: %s cannot be compared with %s", domain.ErrInvalidFilter, cond.Column, cond.Op)
		}
		if cond.Op == domain.OpContains && kind != KindText {
			return "", nil, fmt.Errorf("%w: %s is not a text column", domain.ErrInvalidFilter, cond.Column)
		}

		value, err := filterValue(cond, kind)
		if err != nil {
			return "", nil, err
		}

		param := "p" + strconv.Itoa(i)
		if cond.Op == domain.OpContains {
			clauses = append(clauses, cond.Column+" LIKE :"+param+` ESCAPE '\'`)
		} else {
			clauses = append(clauses, cond.Column+" "+string(cond.Op)+" :"+param)
		}
		args = append(args, sql.Named(param, value))
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// filterValue converts a condition's text value to the column's kind
func filterValue(cond domain.Condition, kind ColumnKind) (any, error) {
	switch kind {
	case KindInteger:
		n, err := strconv.ParseInt(cond.Value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s needs an integer, got %q", domain.ErrInvalidFilter, cond.Column, cond.Value)
		}
		return n, nil
	case KindBool:
		b, err := strconv.ParseBool(cond.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: %s needs true or false, got %q", domain.ErrInvalidFilter, cond.Column, cond.Value)
		}
		return boolToInt(b), nil
	default:
		if cond.Op == domain.OpContains {
			return "%" + escapeLike(cond.Value) + "%", nil
		}
		return cond.Value, nil
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
