package storage

// ColumnType is the scalar type of a column.
type ColumnType string

const (
	TypeInt    ColumnType = "Int"
	TypeFloat  ColumnType = "Float"
	TypeString ColumnType = "String"
	TypeBool   ColumnType = "Boolean"
	TypeTime   ColumnType = "DateTime"
	TypeEnum   ColumnType = "Enum"
)

// Table describes one persisted entity type.
type Table struct {
	Name          string
	PrimaryKey    string
	Doc           string
	Columns       []Column
	Relationships []Relationship
}

// Column describes a scalar column.
type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	HasDefault bool
	Default    any
	// Enum names the enum type and its values for TypeEnum columns.
	Enum *Enum
	Doc  string
}

// Enum is a named set of values.
type Enum struct {
	Name   string
	Values []string
}

// Relationship links a table to a target table.
//
// A to-one relationship is followed through LocalColumn, a foreign key on
// this table. A to-many relationship (List) is followed through RemoteColumn,
// a foreign key on the target table referencing this table's primary key.
type Relationship struct {
	Name         string
	Target       string
	LocalColumn  string
	RemoteColumn string
	List         bool
	OrderBy      string
	Desc         bool
	Doc          string
}

// Column returns the column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Relationship returns the relationship with the given name.
func (t *Table) Relationship(name string) (*Relationship, bool) {
	for i := range t.Relationships {
		if t.Relationships[i].Name == name {
			return &t.Relationships[i], true
		}
	}
	return nil, false
}
