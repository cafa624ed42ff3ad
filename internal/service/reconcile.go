package service

import (
	"context"
	"fmt"

	"budgetmirror/internal/domain"
	"budgetmirror/internal/repository"
)

// Outcome counts the decisions of one reconcile pass
type Outcome struct {
	Inserted  int `json:"inserted"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
}

// Writes is the number of statements the pass executed
func (o Outcome) Writes() int {
	return o.Inserted + o.Updated
}

// Add accumulates another outcome
func (o *Outcome) Add(other Outcome) {
	o.Inserted += other.Inserted
	o.Updated += other.Updated
	o.Unchanged += other.Unchanged
}

// Reconcile upserts records into table one at a time: a record whose id is
// absent is inserted, one that differs from the stored row is updated, and an
// identical one is left alone. Rows missing from records are never removed.
//
// The first error stops the pass. Writes made before it stay committed and
// are counted in the returned Outcome.
func Reconcile[T domain.Entity](ctx context.Context, table repository.Table[T], records []T) (Outcome, error) {
	var out Outcome

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		existing, err := table.SelectByID(ctx, record.Key())
		if err != nil {
			return out, fmt.Errorf("select %s: %w", record.Key(), err)
		}

		switch {
		case existing == nil:
			if err := table.Insert(ctx, record); err != nil {
				return out, fmt.Errorf("insert %s: %w", record.Key(), err)
			}
			out.Inserted++
		case *existing != record:
			if err := table.Update(ctx, record); err != nil {
				return out, fmt.Errorf("update %s: %w", record.Key(), err)
			}
			out.Updated++
		default:
			out.Unchanged++
		}
	}

	return out, nil
}
