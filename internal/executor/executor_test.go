package executor

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/stretchr/testify/require"
)

// Pattern: Result comparison
func TestRootPage_Result(t *testing.T) {
	exec := newTestExecutor(t)

	t.Run("Window and page info", func(t *testing.T) {
		got := run(t, exec, `{
			people(paginate: {first: 2}) {
				items { id name role joinedAt team { name } }
				count
				totalCount
				pageInfo { hasNext lastCursor }
			}
		}`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"people": map[string]any{
					"items": []any{
						map[string]any{"id": 1, "name": "ada", "role": "ENGINEER", "joinedAt": "2021-03-04T05:06:07Z", "team": map[string]any{"name": "core"}},
						map[string]any{"id": 2, "name": "bob", "role": "OPERATOR", "joinedAt": nil, "team": map[string]any{"name": "core"}},
					},
					"count":      2,
					"totalCount": 4,
					"pageInfo":   map[string]any{"hasNext": true, "lastCursor": "2"},
				},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Filter and sort", func(t *testing.T) {
		got := run(t, exec, `{
			people(filter: {role: OPERATOR}, sort: ID_DESC) { items { name } pageInfo { hasNext } }
		}`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"people": map[string]any{
					"items":    []any{map[string]any{"name": "cy"}, map[string]any{"name": "bob"}},
					"pageInfo": map[string]any{"hasNext": false},
				},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Empty page", func(t *testing.T) {
		got := run(t, exec, `{ people(filter: {name: "zz*"}) { items { id } count pageInfo { lastCursor } } }`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"people": map[string]any{
					"items":    []any{},
					"count":    0,
					"pageInfo": map[string]any{"lastCursor": nil},
				},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Computed field and last window", func(t *testing.T) {
		got := run(t, exec, `{ teams(paginate: {last: 1}) { items { name size } } }`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"teams": map[string]any{"items": []any{map[string]any{"name": "core", "size": 3}}},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

// Pattern: Result comparison
func TestSelectionShapes_Result(t *testing.T) {
	exec := newTestExecutor(t)

	t.Run("Aliases fragments and typename", func(t *testing.T) {
		got := run(t, exec, `
			query {
				first: people(paginate: {first: 1}) { __typename items { ...Who } }
				last: people(paginate: {last: 1}) { items { who: name ... on Person { id } } }
			}
			fragment Who on Person { name team { __typename } }
		`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"first": map[string]any{
					"__typename": "PersonPage",
					"items":      []any{map[string]any{"name": "ada", "team": map[string]any{"__typename": "Team"}}},
				},
				"last": map[string]any{
					"items": []any{map[string]any{"who": "ada", "id": 1}},
				},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Skip and include with variables", func(t *testing.T) {
		got := run(t, exec, `
			query ($withTeam: Boolean!, $n: Int) {
				people(paginate: {first: $n}) {
					items { name @skip(if: false) team @include(if: $withTeam) { name } }
					count @skip(if: true)
				}
			}
		`, map[string]any{"withTeam": false, "n": 1})

		want := &ExecutionResult{
			Data: map[string]any{
				"people": map[string]any{"items": []any{map[string]any{"name": "ada"}}},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Cycle cut renders an empty list", func(t *testing.T) {
		got := run(t, exec, `{
			people(filter: {name: "cy"}) {
				items { name team { name members { name } } }
			}
		}`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"people": map[string]any{"items": []any{map[string]any{
					"name": "cy",
					"team": map[string]any{"name": "ops", "members": []any{}},
				}}},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Back-reference to the root renders null", func(t *testing.T) {
		got := run(t, exec, `{
			teams(filter: {name: "ops"}) {
				items { name members { name team { name } } }
			}
		}`, nil)

		want := &ExecutionResult{
			Data: map[string]any{
				"teams": map[string]any{"items": []any{map[string]any{
					"name":    "ops",
					"members": []any{map[string]any{"name": "cy", "team": nil}},
				}}},
			},
			Errors: []GraphQLError{},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

// Pattern: Result comparison
func TestErrors_Result(t *testing.T) {
	exec := newTestExecutor(t)

	t.Run("Validation error is user visible", func(t *testing.T) {
		got := run(t, exec, `{ people(paginate: {first: -1}) { count } teams { count } }`, nil)

		want := &ExecutionResult{
			Data: map[string]any{"people": nil, "teams": map[string]any{"count": 2}},
			Errors: []GraphQLError{{
				Message:    "first may not be less than 0",
				Path:       Path{"people"},
				Extensions: map[string]any{"code": CodeBadUserInput},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
		require.False(t, got.HasInternalError())
	})

	t.Run("Missing required field is internal", func(t *testing.T) {
		got := run(t, exec, `{ people { items { name } } }`, nil)

		want := &ExecutionResult{
			Data: map[string]any{"people": nil},
			Errors: []GraphQLError{{
				Message:    "internal server error",
				Path:       Path{"people"},
				Extensions: map[string]any{"code": CodeInternal},
			}},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
		require.True(t, got.HasInternalError())
	})

	t.Run("Variable coercion", func(t *testing.T) {
		got := run(t, exec, `query ($n: Int!) { people(paginate: {first: $n}) { count } }`, map[string]any{})
		require.Nil(t, got.Data)
		require.Len(t, got.Errors, 1)
		require.Equal(t, CodeBadUserInput, got.Errors[0].Code())
	})

	t.Run("Unknown operation", func(t *testing.T) {
		doc := mustLoadQuery(t, exec, `query A { people { count } } query B { teams { count } }`)
		got := exec.ExecuteRequest(context.Background(), doc, "C", nil)
		want := &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestOperationSelection(t *testing.T) {
	exec := newTestExecutor(t)
	doc := mustLoadQuery(t, exec, `query A { people { totalCount } } query B { teams { totalCount } }`)

	got := exec.ExecuteRequest(context.Background(), doc, "B", nil)
	want := &ExecutionResult{Data: map[string]any{"teams": map[string]any{"totalCount": 2}}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestEventsPublished(t *testing.T) {
	bus := eventbus.New()
	eventbus.Use(bus)
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		finished    []events.GraphQLFinish
		projections []events.ProjectionFinish
	)
	eventbus.On(bus, func(_ context.Context, e events.GraphQLFinish) { finished = append(finished, e) })
	eventbus.On(bus, func(_ context.Context, e events.ProjectionFinish) { projections = append(projections, e) })

	exec := newTestExecutor(t)
	run(t, exec, `query Named { teams { items { name } } people(paginate: {first: 1}) { count } }`, nil)

	require.Len(t, finished, 1)
	require.Equal(t, "Named", finished[0].OperationName)
	require.Equal(t, "query", finished[0].OperationType)
	require.Empty(t, finished[0].Errors)

	require.Len(t, projections, 2)
	require.Equal(t, "teams", projections[0].Field)
	require.Equal(t, "Team", projections[0].Type)
	require.Equal(t, 2, projections[0].Objects)
	require.Equal(t, "people", projections[1].Field)
	require.NoError(t, projections[1].Err)
}
