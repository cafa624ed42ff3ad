package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned for filters naming unknown columns, unsupported
// operators or values that do not fit the column.
var ErrInvalidFilter = errors.New("invalid filter")

// Operator is a comparison allowed in a filter condition
type Operator string

const (
	OpEq       Operator = "="
	OpNe       Operator = "!="
	OpLt       Operator = "<"
	OpLe       Operator = "<="
	OpGt       Operator = ">"
	OpGe       Operator = ">="
	OpContains Operator = "~"
	OpIsNull   Operator = "is null"
	OpNotNull  Operator = "not null"
)

// Valid reports whether op is a known operator
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpContains, OpIsNull, OpNotNull:
		return true
	}
	return false
}

// Ordered reports whether op compares by magnitude
func (op Operator) Ordered() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Unary reports whether op takes no value
func (op Operator) Unary() bool {
	return op == OpIsNull || op == OpNotNull
}

// Condition is one (column, operator, value) triple.
// Value is the textual form; the store converts it to the column's kind.
type Condition struct {
	Column string
	Op     Operator
	Value  string
}

func (c Condition) String() string {
	if c.Op.Unary() {
		return c.Column + " " + string(c.Op)
	}
	return c.Column + string(c.Op) + c.Value
}

// Filter is a conjunction of conditions. The empty filter matches everything.
type Filter []Condition

// Where starts a filter with a single condition
func Where(column string, op Operator, value string) Filter {
	return Filter{{Column: column, Op: op, Value: value}}
}

// And returns a copy of f extended with another condition
func (f Filter) And(column string, op Operator, value string) Filter {
	out := make(Filter, len(f), len(f)+1)
	copy(out, f)
	return append(out, Condition{Column: column, Op: op, Value: value})
}

func (f Filter) String() string {
	parts := make([]string, len(f))
	for i, c := range f {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseFilter parses comma separated conditions such as
//
//	amount<-1000,payee_name~coffee,memo=null
//
// "=null" and "!=null" become null checks. The column allow-list is enforced
// by the store, not here.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var f Filter
	for _, part := range strings.Split(expr, ",") {
		c, err := parseCondition(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		f = append(f, c)
	}
	return f, nil
}

func parseCondition(s string) (Condition, error) {
	i := strings.IndexAny(s, "!<>=~")
	if i <= 0 {
		return Condition{}, fmt.Errorf("%w: %q has no column or operator", ErrInvalidFilter, s)
	}

	column := strings.TrimSpace(s[:i])
	if !isIdentifier(column) {
		return Condition{}, fmt.Errorf("%w: bad column name %q", ErrInvalidFilter, column)
	}

	rest := s[i:]
	var op Operator
	switch {
	case strings.HasPrefix(rest, "!="):
		op = OpNe
	case strings.HasPrefix(rest, "<="):
		op = OpLe
	case strings.HasPrefix(rest, ">="):
		op = OpGe
	case rest[0] == '<':
		op = OpLt
	case rest[0] == '>':
		op = OpGt
	case rest[0] == '=':
		op = OpEq
	case rest[0] == '~':
		op = OpContains
	default:
		return Condition{}, fmt.Errorf("%w: unknown operator in %q", ErrInvalidFilter, s)
	}

	value := strings.TrimSpace(rest[len(op):])
	if strings.EqualFold(value, "null") {
		switch op {
		case OpEq:
			return Condition{Column: column, Op: OpIsNull}, nil
		case OpNe:
			return Condition{Column: column, Op: OpNotNull}, nil
		}
	}

	return Condition{Column: column, Op: op, Value: value}, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}
