// Package language re-exports the gqlparser AST and wraps parsing, schema
// loading and request validation.
package language

import (
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

type (
	Schema                 = ast.Schema
	SchemaDocument         = ast.SchemaDocument
	QueryDocument          = ast.QueryDocument
	OperationDefinition    = ast.OperationDefinition
	SelectionSet           = ast.SelectionSet
	Selection              = ast.Selection
	Field                  = ast.Field
	InlineFragment         = ast.InlineFragment
	FragmentDefinition     = ast.FragmentDefinition
	FragmentSpread         = ast.FragmentSpread
	Directive              = ast.Directive
	DirectiveList          = ast.DirectiveList
	ArgumentList           = ast.ArgumentList
	Value                  = ast.Value
	Definition             = ast.Definition
	DefinitionList         = ast.DefinitionList
	FieldDefinition        = ast.FieldDefinition
	FieldList              = ast.FieldList
	ArgumentDefinition     = ast.ArgumentDefinition
	ArgumentDefinitionList = ast.ArgumentDefinitionList
	EnumValueDefinition    = ast.EnumValueDefinition
	EnumValueList          = ast.EnumValueList
	Type                   = ast.Type
	Position               = ast.Position
	Source                 = ast.Source
)

type (
	Error     = gqlerror.Error
	ErrorList = gqlerror.List
)

type DefinitionKind = ast.DefinitionKind

type Operation = ast.Operation

const (
	Query        Operation = ast.Query
	Mutation     Operation = ast.Mutation
	Subscription Operation = ast.Subscription

	Object      DefinitionKind = ast.Object
	Scalar      DefinitionKind = ast.Scalar
	Enum        DefinitionKind = ast.Enum
	InputObject DefinitionKind = ast.InputObject
)

// NamedType returns a nullable reference to the named type.
func NamedType(name string) *Type { return ast.NamedType(name, nil) }

// NonNullNamedType returns a non-null reference to the named type.
func NonNullNamedType(name string) *Type { return ast.NonNullNamedType(name, nil) }

// ListType wraps elem in a list.
func ListType(elem *Type) *Type { return ast.ListType(elem, nil) }

// NonNullListType wraps elem in a non-null list.
func NonNullListType(elem *Type) *Type { return ast.NonNullListType(elem, nil) }
