package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/reqid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestSpansFollowRequest(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	bus := eventbus.New()
	detach := Attach(bus, tp.Tracer("test"))

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)

	eventbus.Emit(ctx, bus, events.HTTPStart{Request: req})
	eventbus.Emit(ctx, bus, events.GraphQLStart{OperationName: "Q", OperationType: "query"})
	eventbus.Emit(ctx, bus, events.QueryStart{Table: "sirens", Statement: "SELECT 1"})
	eventbus.Emit(ctx, bus, events.QueryFinish{Table: "sirens", Err: errors.New("boom")})
	eventbus.Emit(ctx, bus, events.PageFinish{Type: "Siren", Count: 1, TotalCount: 3})
	eventbus.Emit(ctx, bus, events.GraphQLFinish{OperationName: "Q", OperationType: "query"})
	eventbus.Emit(ctx, bus, events.HTTPFinish{Request: req, Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	query, gql, http := spans[0], spans[1], spans[2]

	require.Equal(t, "storage.query", query.Name())
	require.Equal(t, "graphql.operation", gql.Name())
	require.Equal(t, "http.request", http.Name())

	require.Equal(t, gql.SpanContext().SpanID(), query.Parent().SpanID())
	require.Equal(t, http.SpanContext().SpanID(), gql.Parent().SpanID())
	require.Equal(t, codes.Error, query.Status().Code)
	require.Len(t, gql.Events(), 1)
	require.Equal(t, "page", gql.Events()[0].Name)

	detach()
	eventbus.Emit(ctx, bus, events.HTTPStart{Request: req})
	require.Empty(t, rec.Started()[3:])
}

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "sirendb", eventbus.New())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}
