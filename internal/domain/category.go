package domain

import "database/sql"

// CategoryGroup groups categories within a budget
type CategoryGroup struct {
	ID       string
	BudgetID string
	Name     string
	Hidden   bool
	Deleted  bool
}

// Key returns the category group ID
func (g CategoryGroup) Key() string { return g.ID }

// Category is a budget category with its current month amounts
type Category struct {
	ID                      string
	BudgetID                string
	CategoryGroupID         string
	Name                    string
	Hidden                  bool
	OriginalCategoryGroupID sql.NullString
	Note                    sql.NullString
	Budgeted                Milliunits
	Activity                Milliunits
	Balance                 Milliunits
	Deleted                 bool
}

// Key returns the category ID
func (c Category) Key() string { return c.ID }
