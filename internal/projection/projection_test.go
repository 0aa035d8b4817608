package projection

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/selection"
	"github.com/sirendb/sirendb/internal/storage"
	"github.com/sirendb/sirendb/internal/storage/memstore"
	"github.com/stretchr/testify/require"
)

var (
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
			{Name: "nickname", Type: storage.TypeString, Nullable: true},
			{Name: "team_id", Type: storage.TypeInt},
			{Name: "manager_id", Type: storage.TypeInt, Nullable: true},
		},
		Relationships: []storage.Relationship{
			{Name: "team", Target: "teams", LocalColumn: "team_id"},
			{Name: "manager", Target: "people", LocalColumn: "manager_id"},
		},
	}
)

type fixture struct {
	store  *memstore.Store
	engine *Engine
	calls  map[string]int
}

func newFixture(t *testing.T, personOpts ...schema.TableOption) *fixture {
	t.Helper()
	b := schema.NewBuilder()
	b.Table("Team", teamsTable,
		schema.Late("members", func() string { return "Person" }),
		schema.WithComputed(
			schema.Computed{Name: "lead", Type: "Person", Nullable: true},
			schema.Computed{Name: "tags", Type: "String", List: true},
		),
	)
	b.Table("Person", peopleTable, personOpts...)
	b.Query("test", schema.RootField{Name: "teams", Type: "Team"}, schema.RootField{Name: "people", Type: "Person"})
	reg, err := b.Freeze()
	require.NoError(t, err)

	f := &fixture{
		store: memstore.New(teamsTable, peopleTable).
			MustInsert("teams",
				memstore.Row{"id": 1, "name": "core"},
				memstore.Row{"id": 2, "name": "ops"},
			).
			MustInsert("people",
				memstore.Row{"id": 1, "name": "ada", "nickname": "countess", "team_id": 1, "manager_id": 2},
				memstore.Row{"id": 2, "name": "bob", "nickname": nil, "team_id": 1, "manager_id": 1},
				memstore.Row{"id": 3, "name": nil, "nickname": nil, "team_id": 1, "manager_id": nil},
				memstore.Row{"id": 4, "name": "cy", "nickname": nil, "team_id": 2, "manager_id": nil},
			),
		calls: make(map[string]int),
	}

	d := NewDispatcher()
	d.Register("Team", "lead", func(ctx context.Context, r *Resolution, b Branch, e storage.Entity) (any, error) {
		f.calls["lead"]++
		members, err := e.Attr(ctx, "members")
		if err != nil {
			return nil, err
		}
		list := members.([]storage.Entity)
		if len(list) == 0 {
			return nil, nil
		}
		return r.Related(ctx, b, "Person", list[0])
	})
	d.Register("Team", "tags", func(context.Context, *Resolution, Branch, storage.Entity) (any, error) {
		f.calls["tags"]++
		return []any{"backend"}, nil
	})
	if td, ok := reg.Lookup("Person"); ok {
		if nf, ok := td.Field("nickname"); ok && nf.Kind == schema.ComputedField {
			d.Register("Person", "nickname", func(ctx context.Context, _ *Resolution, _ Branch, e storage.Entity) (any, error) {
				f.calls["nickname"]++
				name, err := e.Attr(ctx, "name")
				if err != nil || name == nil {
					return nil, err
				}
				return "the " + name.(string), nil
			})
		}
	}

	f.engine, err = NewEngine(reg, d)
	require.NoError(t, err)
	return f
}

func (f *fixture) entity(t *testing.T, table string, id int64) storage.Entity {
	t.Helper()
	e, ok := f.store.Entity(table, id)
	require.True(t, ok)
	return e
}

func get(t *testing.T, o *Object, name string) any {
	t.Helper()
	v, ok := o.Get(name)
	require.Truef(t, ok, "%s.%s not projected", o.Type.Name, name)
	return v
}

// Pattern: Result comparison
func TestSelectiveOmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ada := f.entity(t, "people", 1)

	r := f.engine.NewResolution(selection.New("name"))
	obj, err := r.Project(ctx, r.Branch(""), "Person", ada)
	require.NoError(t, err)

	want := []string{"id", "name", "team", "team_id"}
	got := make([]string, 0)
	for name := range obj.Values() {
		got = append(got, name)
	}
	if diff := cmp.Diff(want, got, cmpSorted); diff != "" {
		t.Fatalf("projected fields mismatch (-want +got):\n%s", diff)
	}
	require.Zero(t, f.store.Reads(ada.Key(), "nickname"))
	require.Zero(t, f.store.Reads(ada.Key(), "manager"))
	require.Empty(t, r.Outstanding())
}

var cmpSorted = cmpopts.SortSlices(func(a, b string) bool { return a < b })

func TestMemoizedIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.engine.NewResolution(selection.New("items.name", "items.team.name"))
	b := r.Branch("items")
	ada, err := r.Project(ctx, b, "Person", f.entity(t, "people", 1))
	require.NoError(t, err)
	bob, err := r.Project(ctx, b, "Person", f.entity(t, "people", 2))
	require.NoError(t, err)

	adaTeam := get(t, ada, "team").(*Object)
	bobTeam := get(t, bob, "team").(*Object)
	require.Same(t, adaTeam, bobTeam)
	require.Equal(t, "core", get(t, adaTeam, "name"))
	require.Equal(t, 1, f.store.Reads(storage.Key{Kind: "teams", ID: int64(1)}, "name"))
	require.Equal(t, 3, r.Stats().Objects)
	require.Positive(t, r.Stats().CacheHits)
}

func TestCycleSafety(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.engine.NewResolution(selection.New("name", "manager.name", "manager.manager.name"))
	ada, err := r.Project(ctx, r.Branch(""), "Person", f.entity(t, "people", 1))
	require.NoError(t, err)

	require.Equal(t, "ada", get(t, ada, "name"))
	_, ok := ada.Get("manager")
	require.False(t, ok, "manager re-enters the root type")
	require.Zero(t, f.store.Reads(ada.Key, "manager"))
	require.Equal(t, []string{"manager.manager.name", "manager.name"}, r.Outstanding())

	t.Run("Cut below the root", func(t *testing.T) {
		r := f.engine.NewResolution(selection.New("members.name", "members.manager.name"))
		team, err := r.Project(ctx, r.Branch(""), "Team", f.entity(t, "teams", 2))
		require.NoError(t, err)

		members := get(t, team, "members").([]*Object)
		require.Len(t, members, 1)
		_, ok := members[0].Get("manager")
		require.False(t, ok, "manager must be cut on a branch that already entered Person")
		require.Equal(t, []string{"members.manager.name"}, r.Outstanding())
	})
}

func TestRootIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.engine.NewResolution(selection.New("items.name", "items.members.name", "items.members.team.name"))
	b := r.Branch("items")
	team, err := r.Project(ctx, b, "Team", f.entity(t, "teams", 2))
	require.NoError(t, err)

	members := get(t, team, "members").([]*Object)
	require.Len(t, members, 1)
	require.Equal(t, "cy", get(t, members[0], "name"))
	_, ok := members[0].Get("team")
	require.False(t, ok, "the back-reference to the root is absent")
	require.Equal(t, 1, f.store.Reads(team.Key, "name"))
	require.Equal(t, 2, r.Stats().Objects)

	again, err := r.Project(ctx, b, "Team", f.entity(t, "teams", 2))
	require.NoError(t, err)
	require.Same(t, team, again)
}

func TestSiblingBranchesDoNotShareVisited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.engine.NewResolution(selection.New("lead.name", "members.name"))
	team, err := r.Project(ctx, r.Branch(""), "Team", f.entity(t, "teams", 2))
	require.NoError(t, err)

	lead := get(t, team, "lead").(*Object)
	require.Equal(t, "cy", get(t, lead, "name"))

	// Person was entered below lead, which must not cut the members branch.
	members := get(t, team, "members").([]*Object)
	require.Len(t, members, 1)
	require.Same(t, lead, members[0])
	require.Empty(t, r.Outstanding())
}

func TestRequiredFieldMissing(t *testing.T) {
	f := newFixture(t)
	r := f.engine.NewResolution(selection.New("id"))
	_, err := r.Project(context.Background(), r.Branch(""), "Person", f.entity(t, "people", 3))

	var missing *MissingFieldError
	require.True(t, errors.As(err, &missing), "got %v", err)
	require.Equal(t, "Person", missing.Type)
	require.Equal(t, "name", missing.Field)
	require.Equal(t, storage.Key{Kind: "people", ID: int64(3)}, missing.Key)
}

func TestComputedExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	team := f.entity(t, "teams", 1)

	r := f.engine.NewResolution(selection.New("a.lead.name", "a.tags", "b.lead.name"))
	first, err := r.Project(ctx, r.Branch("a"), "Team", team)
	require.NoError(t, err)
	second, err := r.Project(ctx, r.Branch("b"), "Team", team)
	require.NoError(t, err)

	require.Same(t, first, second)
	require.Equal(t, 1, f.calls["lead"])
	require.Equal(t, 1, f.calls["tags"])
	require.Equal(t, []any{"backend"}, get(t, first, "tags"))
	require.Equal(t, 2, r.Stats().ResolverCalls)
}

func TestUnselectedListDefaultsEmpty(t *testing.T) {
	f := newFixture(t)
	r := f.engine.NewResolution(selection.New("name"))
	team, err := r.Project(context.Background(), r.Branch(""), "Team", f.entity(t, "teams", 1))
	require.NoError(t, err)

	require.Equal(t, []any{}, get(t, team, "members"))
	require.Equal(t, []any{}, get(t, team, "tags"))
	require.Zero(t, f.calls["tags"])
	_, ok := team.Get("lead")
	require.False(t, ok)
}

func TestSelectedListRelationship(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r := f.engine.NewResolution(selection.New("members.name", "members.nickname"))
	team, err := r.Project(ctx, r.Branch(""), "Team", f.entity(t, "teams", 2))
	require.NoError(t, err)

	members := get(t, team, "members").([]*Object)
	require.Len(t, members, 1)
	require.Equal(t, "cy", get(t, members[0], "name"))
	require.Nil(t, get(t, members[0], "nickname"))
	require.Empty(t, r.Outstanding())

	r = f.engine.NewResolution(selection.New("members.id"))
	_, err = r.Project(ctx, r.Branch(""), "Team", f.entity(t, "teams", 1))
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, storage.Key{Kind: "people", ID: int64(3)}, missing.Key)
}

func TestComputedOverridesColumn(t *testing.T) {
	override := schema.WithComputed(schema.Computed{Name: "nickname", Type: "String", Nullable: true})
	f := newFixture(t, override)
	ctx := context.Background()
	ada := f.entity(t, "people", 1)

	r := f.engine.NewResolution(selection.New("nickname"))
	obj, err := r.Project(ctx, r.Branch(""), "Person", ada)
	require.NoError(t, err)
	require.Equal(t, "the ada", get(t, obj, "nickname"))
	require.Zero(t, f.store.Reads(ada.Key(), "nickname"))
	require.Equal(t, 1, f.calls["nickname"])
}

func TestDispatcherValidate(t *testing.T) {
	b := schema.NewBuilder()
	b.Table("Team", teamsTable,
		schema.Only("id", "name"),
		schema.WithComputed(schema.Computed{Name: "lead", Type: "String", Nullable: true}),
	)
	reg, err := b.Freeze()
	require.NoError(t, err)

	d := NewDispatcher()
	d.Register("Team", "name", func(context.Context, *Resolution, Branch, storage.Entity) (any, error) { return nil, nil })
	_, err = NewEngine(reg, d)

	var defErr schema.SchemaDefinitionError
	require.True(t, errors.As(err, &defErr))
	got := make([]string, len(defErr))
	for i, v := range defErr {
		got[i] = v.Type + "." + v.Field
	}
	if diff := cmp.Diff([]string{"Team.lead", "Team.name"}, got, cmpSorted); diff != "" {
		t.Fatalf("violations mismatch (-want +got):\n%s", diff)
	}
}
