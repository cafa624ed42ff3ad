package domain

// Budget is a top-level budget. Its ID scopes every other entity.
type Budget struct {
	ID             string
	Name           string
	LastModifiedOn string
	FirstMonth     string
	LastMonth      string
	DateFormat     string
}

// Key returns the budget ID
func (b Budget) Key() string { return b.ID }
