package schema

import (
	"fmt"
	"strings"
)

// Violation is one problem found while building the registry.
type Violation struct {
	Type    string `json:"type,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaDefinitionError collects every violation found by the builder.
// It is a startup failure and never occurs per request.
type SchemaDefinitionError []*Violation

func (e SchemaDefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("schema definition violations:\n")
	for _, v := range e {
		b.WriteString("- ")
		b.WriteString(v.Message)
		b.WriteString("\n")
	}
	return b.String()
}

func violationDuplicateField(typeName, field, first, second string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Duplicate field %q in type %q: declared by %s and %s", field, typeName, first, second),
	}
}

func violationDuplicateType(typeName string) *Violation {
	return &Violation{Type: typeName, Message: fmt.Sprintf("Type %q is registered more than once", typeName)}
}

func violationDuplicateTable(table, first, second string) *Violation {
	return &Violation{
		Type:    second,
		Message: fmt.Sprintf("Table %q already backs type %q, cannot also back %q", table, first, second),
	}
}

func violationUnknownTarget(typeName, field, table string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Relationship %s.%s targets table %q which is not registered and has no late binding", typeName, field, table),
	}
}

func violationUnresolvedReference(typeName, field, target string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Field %s.%s references type %q which was never registered", typeName, field, target),
	}
}

func violationLateTableMismatch(typeName, field, target, got, want string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Field %s.%s binds type %q backed by table %q, but the relationship targets table %q", typeName, field, target, got, want),
	}
}

func violationUnknownOnlyField(typeName, field string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Type %q lists unknown field %q", typeName, field),
	}
}

func violationBadBorrow(typeName, field, reason string) *Violation {
	return &Violation{
		Type:    typeName,
		Field:   field,
		Message: fmt.Sprintf("Filter on %q cannot borrow field %q: %s", typeName, field, reason),
	}
}

func violationDuplicateRoot(field, first, second string) *Violation {
	return &Violation{
		Type:    "Query",
		Field:   field,
		Message: fmt.Sprintf("Query field %q is declared by both %s and %s", field, first, second),
	}
}

func violationUnknownRootType(field, typeName string) *Violation {
	return &Violation{
		Type:    "Query",
		Field:   field,
		Message: fmt.Sprintf("Query field %q returns unknown type %q", field, typeName),
	}
}

func violationNoPrimaryKey(typeName, table string) *Violation {
	return &Violation{Type: typeName, Message: fmt.Sprintf("Table %q of type %q has no primary key column", table, typeName)}
}

func violationInvalidSDL(err error) *Violation {
	return &Violation{Message: "generated schema is invalid: " + err.Error()}
}
