// Package otel turns eventbus events into OpenTelemetry spans.
package otel

import (
	"context"
	"sync"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "sirendb"

// Setup exports spans to the OTLP gRPC endpoint and subscribes to bus.
// If endpoint is empty, no telemetry is configured.
func Setup(ctx context.Context, endpoint, service string, bus *eventbus.Bus) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	detach := Attach(bus, tp.Tracer(tracerName))
	return func(ctx context.Context) error {
		detach()
		return tp.Shutdown(ctx)
	}, nil
}

// Attach starts spans on tracer for the events published on bus.
func Attach(bus *eventbus.Bus, tracer trace.Tracer) (detach func()) {
	s := &subscriber{tracer: tracer}
	return s.register(bus)
}

type subscriber struct {
	tracer     trace.Tracer
	httpSpans  sync.Map // rid -> trace.Span
	gqlSpans   sync.Map // rid -> trace.Span
	querySpans sync.Map // rid -> trace.Span
}

// parent returns ctx carrying the innermost open span of the request.
func (s *subscriber) parent(ctx context.Context, rid string, maps ...*sync.Map) context.Context {
	for _, m := range maps {
		if v, ok := m.Load(rid); ok {
			return trace.ContextWithSpan(ctx, v.(trace.Span))
		}
	}
	return ctx
}

func end(m *sync.Map, rid string, fn func(trace.Span)) {
	v, ok := m.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	fn(span)
	span.End()
}

func fail(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *subscriber) register(bus *eventbus.Bus) func() {
	unsubs := []func(){
		eventbus.On(bus, func(ctx context.Context, e events.HTTPStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(ctx, "http.request", trace.WithSpanKind(trace.SpanKindServer))
			span.SetAttributes(
				semconv.HTTPMethodKey.String(e.Request.Method),
				attribute.String("http.target", e.Request.URL.Path),
				attribute.String("request.id", rid),
			)
			s.httpSpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.HTTPFinish) {
			rid, _ := reqid.FromContext(ctx)
			end(&s.httpSpans, rid, func(span trace.Span) {
				span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
				if e.Status >= 500 {
					span.SetStatus(codes.Error, "server error")
				}
			})
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid, &s.httpSpans), "graphql.operation")
			span.SetAttributes(
				attribute.String("graphql.operation.name", e.OperationName),
				attribute.String("graphql.operation.type", e.OperationType),
			)
			s.gqlSpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.GraphQLFinish) {
			rid, _ := reqid.FromContext(ctx)
			end(&s.gqlSpans, rid, func(span trace.Span) {
				span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
			})
		}),

		eventbus.On(bus, func(ctx context.Context, e events.ProjectionFinish) {
			rid, _ := reqid.FromContext(ctx)
			if v, ok := s.gqlSpans.Load(rid); ok {
				v.(trace.Span).AddEvent("projection", trace.WithAttributes(
					attribute.String("graphql.field", e.Field),
					attribute.String("sirendb.type", e.Type),
					attribute.Int("sirendb.objects", e.Objects),
					attribute.Int("sirendb.cache_hits", e.CacheHits),
					attribute.Int("sirendb.resolver_calls", e.ResolverCalls),
				))
			}
		}),

		eventbus.On(bus, func(ctx context.Context, e events.PageFinish) {
			rid, _ := reqid.FromContext(ctx)
			if v, ok := s.gqlSpans.Load(rid); ok {
				v.(trace.Span).AddEvent("page", trace.WithAttributes(
					attribute.String("sirendb.type", e.Type),
					semconv.DBSQLTableKey.String(e.Table),
					attribute.Int("sirendb.count", e.Count),
					attribute.Int("sirendb.total_count", e.TotalCount),
				))
			}
		}),

		eventbus.On(bus, func(ctx context.Context, e events.QueryStart) {
			rid, _ := reqid.FromContext(ctx)
			_, span := s.tracer.Start(s.parent(ctx, rid, &s.gqlSpans, &s.httpSpans), "storage.query", trace.WithSpanKind(trace.SpanKindClient))
			span.SetAttributes(
				semconv.DBSQLTableKey.String(e.Table),
				semconv.DBStatementKey.String(e.Statement),
			)
			s.querySpans.Store(rid, span)
		}),

		eventbus.On(bus, func(ctx context.Context, e events.QueryFinish) {
			rid, _ := reqid.FromContext(ctx)
			end(&s.querySpans, rid, func(span trace.Span) {
				span.SetAttributes(attribute.Int("db.rows", e.Rows))
				fail(span, e.Err)
			})
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
