package sirendb

import (
	"context"
	"database/sql"

	"github.com/sirendb/sirendb/internal/storage/sqlstore"
)

// EnsureSchema creates the catalogue tables that do not exist yet. It is
// meant for development databases and tests; production schemas are managed
// by migrations.
func EnsureSchema(ctx context.Context, db *sql.DB, dialect string) error {
	return sqlstore.CreateTables(ctx, db, dialect, Tables()...)
}
