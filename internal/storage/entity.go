// Package storage declares the persisted-entity collaborators consumed by the
// projection and pagination layers: table metadata, entities and queries.
package storage

import (
	"context"
	"fmt"
)

// Key identifies an entity by its kind (table name) and primary key.
type Key struct {
	Kind string
	ID   any
}

func (k Key) String() string { return fmt.Sprintf("%s#%v", k.Kind, k.ID) }

// Entity is a row-like record with named scalar and relationship attributes.
//
// Attr returns scalars as plain Go values, a to-one relationship as an Entity
// (or nil) and a to-many relationship as []Entity.
type Entity interface {
	Key() Key
	Attr(ctx context.Context, name string) (any, error)
}
