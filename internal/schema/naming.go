package schema

import (
	"strings"

	"github.com/go-openapi/inflect"
)

// GraphQLName converts a snake_case field name to lower camel case.
func GraphQLName(field string) string {
	if !strings.Contains(field, "_") {
		return field
	}
	return inflect.CamelizeDownFirst(field)
}

// FieldName converts a GraphQL field name to the snake_case descriptor convention.
func FieldName(graphql string) string {
	if strings.HasPrefix(graphql, "__") {
		return graphql
	}
	return inflect.Underscore(graphql)
}

// SortLabel returns the enum label for sorting column in dir, e.g. "CREATED_TIMESTAMP_DESC".
func SortLabel(column string, asc bool) string {
	dir := "DESC"
	if asc {
		dir = "ASC"
	}
	return strings.ToUpper(column) + "_" + dir
}
