package executor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/paginate"
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/selection"
)

// resolveField produces the value of one field from its parent value.
func resolveField(state *executionState, objectType *language.Definition, fieldDef *language.FieldDefinition, fields []*language.Field, source any, args map[string]any) (any, error) {
	if objectType == state.schema.Query {
		return resolveRoot(state, fields, args)
	}

	switch src := source.(type) {
	case *projection.Object:
		v, ok := src.Get(schema.FieldName(fieldDef.Name))
		if !ok && fieldDef.Type.Elem != nil {
			return []any{}, nil
		}
		return v, nil
	case *paginate.Page:
		switch fieldDef.Name {
		case paginate.ItemsField:
			return src.Items, nil
		case "count":
			return src.Count, nil
		case "totalCount":
			return src.TotalCount, nil
		case "pageInfo":
			return &src.PageInfo, nil
		}
	case *paginate.PageInfo:
		switch fieldDef.Name {
		case "hasNext":
			return src.HasNext, nil
		case "lastCursor":
			if src.LastCursor == nil {
				return nil, nil
			}
			return *src.LastCursor, nil
		}
	}
	return nil, fmt.Errorf("executor: cannot resolve %s.%s from %T", objectType.Name, fieldDef.Name, source)
}

// resolveRoot builds the page of a root field. Each root field gets its own
// resolution so identity and memoization are scoped to it.
func resolveRoot(state *executionState, fields []*language.Field, args map[string]any) (any, error) {
	name := fields[0].Name
	exec := state.exec
	rf, ok := exec.reg.Root(name)
	if !ok {
		if name == schema.PlaceholderField {
			return true, nil
		}
		return nil, fmt.Errorf("executor: unknown root field %q", name)
	}
	td, ok := exec.reg.Lookup(rf.Type)
	if !ok {
		return nil, fmt.Errorf("executor: root field %q has unknown type %q", name, rf.Type)
	}

	req, err := paginate.ParseArgs(td, args)
	if err != nil {
		return nil, err
	}
	q, err := exec.src.Query(td.Table)
	if err != nil {
		return nil, err
	}

	paths := selection.Extract(state.document, mergeSelectionSets(fields), state.variableValues).Under(paginate.ItemsField)
	res := exec.engine.NewResolution(paths)
	page, err := paginate.Paginate(state.context, q, req, td, res)

	stats := res.Stats()
	eventbus.Publish(state.context, events.ProjectionFinish{
		Field:         name,
		Type:          td.Name,
		Objects:       stats.Objects,
		CacheHits:     stats.CacheHits,
		ResolverCalls: stats.ResolverCalls,
		Err:           err,
	})
	exec.logger.DebugContext(state.context, "root field resolved", "field", name, "resolution", res)
	if err != nil {
		return nil, err
	}
	return page, nil
}

// addFieldError records err at path. Validation errors are shown to the
// client; everything else is logged and replaced with a generic message.
func (state *executionState) addFieldError(err error, path Path) {
	var verr *paginate.ValidationError
	if errors.As(err, &verr) {
		state.errors = append(state.errors, GraphQLError{Message: verr.Message, Path: path, Extensions: withCode(CodeBadUserInput)})
		return
	}

	attrs := []any{slog.String("path", pathToString(path)), slog.Any("error", err)}
	var missing *projection.MissingFieldError
	if errors.As(err, &missing) {
		attrs = append(attrs, slog.String("type", missing.Type), slog.String("field", missing.Field), slog.String("key", missing.Key.String()))
	}
	state.exec.logger.ErrorContext(state.context, "field resolution failed", attrs...)
	state.errors = append(state.errors, GraphQLError{Message: "internal server error", Path: path, Extensions: withCode(CodeInternal)})
}
