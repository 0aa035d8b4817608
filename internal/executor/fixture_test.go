package executor

import (
	"context"
	"testing"
	"time"

	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
	"github.com/sirendb/sirendb/internal/storage/memstore"
	"github.com/stretchr/testify/require"
)

var (
	roleEnum = &storage.Enum{Name: "Role", Values: []string{"ENGINEER", "OPERATOR"}}

	teamsTable = &storage.Table{
		Name:       "teams",
		PrimaryKey: "id",
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInt},
			{Name: "name", Type: storage.TypeString},
		},
		Relationships: []storage.Relationship{
			{Name: "members", Target: "people", RemoteColumn: "team_id", List: true, OrderBy: "id"},
		},
	}
	peopleTable = &storage.Table{
		Name:       "people",
		PrimaryKey: "id",
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInt},
			{Name: "name", Type: storage.TypeString},
			{Name: "role", Type: storage.TypeEnum, Enum: roleEnum},
			{Name: "joined_at", Type: storage.TypeTime, Nullable: true},
			{Name: "team_id", Type: storage.TypeInt},
		},
		Relationships: []storage.Relationship{
			{Name: "team", Target: "teams", LocalColumn: "team_id"},
		},
	}
)

var joined = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

// newTestExecutor serves teams and people from memory. Person 3 has no name.
func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	b := schema.NewBuilder()
	b.Table("Team", teamsTable,
		schema.Late("members", func() string { return "Person" }),
		schema.WithComputed(schema.Computed{Name: "size", Type: "Int"}),
	)
	b.Table("Person", peopleTable)
	b.Query("test",
		schema.RootField{Name: "teams", Type: "Team"},
		schema.RootField{Name: "people", Type: "Person"},
	)
	reg, err := b.Freeze()
	require.NoError(t, err)

	store := memstore.New(teamsTable, peopleTable).
		MustInsert("teams",
			memstore.Row{"id": 1, "name": "core"},
			memstore.Row{"id": 2, "name": "ops"},
		).
		MustInsert("people",
			memstore.Row{"id": 1, "name": "ada", "role": "ENGINEER", "joined_at": joined, "team_id": 1},
			memstore.Row{"id": 2, "name": "bob", "role": "OPERATOR", "joined_at": nil, "team_id": 1},
			memstore.Row{"id": 3, "name": nil, "role": "ENGINEER", "joined_at": nil, "team_id": 1},
			memstore.Row{"id": 4, "name": "cy", "role": "OPERATOR", "joined_at": nil, "team_id": 2},
		)

	d := projection.NewDispatcher()
	d.Register("Team", "size", func(ctx context.Context, _ *projection.Resolution, _ projection.Branch, e storage.Entity) (any, error) {
		members, err := e.Attr(ctx, "members")
		if err != nil {
			return nil, err
		}
		return len(members.([]storage.Entity)), nil
	})
	engine, err := projection.NewEngine(reg, d)
	require.NoError(t, err)
	return New(reg, store, engine)
}

// mustLoadQuery parses and validates q against the executor's schema.
func mustLoadQuery(t *testing.T, exec *Executor, q string) *language.QueryDocument {
	t.Helper()
	doc, errs := language.LoadQuery(exec.Registry().Schema(), q)
	if len(errs) > 0 {
		t.Fatalf("query error: %v", errs)
	}
	return doc
}

func run(t *testing.T, exec *Executor, q string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return exec.ExecuteRequest(context.Background(), mustLoadQuery(t, exec, q), "", vars)
}
