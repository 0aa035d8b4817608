package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sirendb/sirendb/internal/storage"
)

var columnTypes = map[string]map[storage.ColumnType]string{
	Postgres: {
		storage.TypeInt: "BIGINT", storage.TypeFloat: "DOUBLE PRECISION", storage.TypeString: "TEXT",
		storage.TypeBool: "BOOLEAN", storage.TypeTime: "TIMESTAMP", storage.TypeEnum: "VARCHAR(64)",
	},
	MySQL: {
		storage.TypeInt: "BIGINT", storage.TypeFloat: "DOUBLE", storage.TypeString: "TEXT",
		storage.TypeBool: "BOOLEAN", storage.TypeTime: "DATETIME(6)", storage.TypeEnum: "VARCHAR(64)",
	},
	SQLite: {
		storage.TypeInt: "INTEGER", storage.TypeFloat: "REAL", storage.TypeString: "TEXT",
		storage.TypeBool: "BOOLEAN", storage.TypeTime: "DATETIME", storage.TypeEnum: "TEXT",
	},
}

var primaryKeys = map[string]string{
	Postgres: "BIGSERIAL PRIMARY KEY",
	MySQL:    "BIGINT AUTO_INCREMENT PRIMARY KEY",
	SQLite:   "INTEGER PRIMARY KEY",
}

// CreateTableStmt renders a CREATE TABLE IF NOT EXISTS statement for t.
// Time columns with a default use the current timestamp.
func CreateTableStmt(d Dialect, t *storage.Table) (string, error) {
	if err := checkTable(t); err != nil {
		return "", err
	}
	types := columnTypes[d.Name]
	defs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.Name == t.PrimaryKey {
			defs = append(defs, c.Name+" "+primaryKeys[d.Name])
			continue
		}
		def := c.Name + " " + types[c.Type]
		if !c.Nullable {
			def += " NOT NULL"
		}
		if c.HasDefault && c.Type == storage.TypeTime {
			if d.Name == MySQL {
				def += " DEFAULT CURRENT_TIMESTAMP(6)"
			} else {
				def += " DEFAULT CURRENT_TIMESTAMP"
			}
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(defs, ",\n\t")), nil
}

// CreateTables creates every missing table in order.
func CreateTables(ctx context.Context, db *sql.DB, dialect string, tables ...*storage.Table) error {
	d, err := LookupDialect(dialect)
	if err != nil {
		return err
	}
	for _, t := range tables {
		stmt, err := CreateTableStmt(d, t)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlstore: create %s: %w", t.Name, err)
		}
	}
	return nil
}
