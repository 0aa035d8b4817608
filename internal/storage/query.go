package storage

import "context"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Op is a predicate operator.
type Op string

const (
	// OpEq compares for equality.
	OpEq Op = "="
	// OpLike matches a LIKE pattern using '\' as the escape character.
	OpLike Op = "LIKE"
	// OpIs compares a boolean for identity.
	OpIs Op = "IS"
)

// Predicate narrows a query on one column.
type Predicate struct {
	Column string
	Op     Op
	Value  any
}

// Query is an immutable, composable query over one table.
type Query interface {
	// Table returns the name of the queried table.
	Table() string
	Where(preds ...Predicate) Query
	OrderBy(column string, dir Direction) Query
	// Count returns the number of rows matching the predicates.
	Count(ctx context.Context) (int, error)
	// Fetch returns matching rows in order. A negative limit means no limit.
	Fetch(ctx context.Context, limit, offset int) ([]Entity, error)
}

// Source opens queries by table name.
type Source interface {
	Query(table string) (Query, error)
}
