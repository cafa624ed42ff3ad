package repository

import (
	"context"

	"budgetmirror/internal/domain"
)

// Table defines typed access to one mirrored entity table
type Table[T domain.Entity] interface {
	// Name is the backing table name
	Name() string

	// Read operations
	SelectByID(ctx context.Context, id string) (*T, error)
	SelectAll(ctx context.Context) ([]T, error)
	Where(ctx context.Context, parentID string, filter domain.Filter) ([]T, error)

	// Write operations, one statement each
	Insert(ctx context.Context, v T) error
	Update(ctx context.Context, v T) error
}

// Store defines the operations that span every table of the mirror
type Store interface {
	// ResetSchema drops and recreates every managed table
	ResetSchema(ctx context.Context) error

	// Delta sync cursors
	ServerKnowledge(ctx context.Context, budgetID, listing string) (int64, error)
	SetServerKnowledge(ctx context.Context, budgetID, listing string, knowledge int64) error

	// Close releases resources
	Close() error
}
