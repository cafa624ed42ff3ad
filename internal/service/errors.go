package service

import "errors"

var (
	// ErrBudgetNotFound is returned when a refresh names a budget the remote
	// listing does not contain
	ErrBudgetNotFound = errors.New("budget not found")
)
