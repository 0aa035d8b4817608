package executor

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"time"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

type Path []PathElement

type PathElement any

// executionState holds the state during query execution
type executionState struct {
	exec           *Executor
	schema         *language.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	errors         []GraphQLError
}

// Executor resolves query operations against one registry and source.
type Executor struct {
	reg    *schema.Registry
	src    storage.Source
	engine *projection.Engine
	logger *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger used for internal errors.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New returns an Executor reading rows from src and projecting them with engine.
func New(reg *schema.Registry, src storage.Source, engine *projection.Engine, opts ...Option) *Executor {
	e := &Executor{reg: reg, src: src, engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the executor serves.
func (e *Executor) Registry() *schema.Registry { return e.reg }

// ExecuteRequest runs the selected operation of document.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
) (result *ExecutionResult) {
	operation := getOperation(document, operationName)
	if operation == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{OperationName: operation.Name, OperationType: string(operation.Operation)})
	defer func() {
		errs := make([]error, len(result.Errors))
		for i, err := range result.Errors {
			errs[i] = err
		}
		eventbus.Publish(ctx, events.GraphQLFinish{
			OperationName: operation.Name,
			OperationType: string(operation.Operation),
			Errors:        errs,
			Duration:      time.Since(start),
		})
	}()

	if operation.Operation != language.Query {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}

	sch := e.reg.Schema()
	coercedVariableValues, gerr := language.CoerceVariables(sch, operation, variableValues)
	if gerr != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: gerr.Message, Extensions: withCode(CodeBadUserInput)}}}
	}

	state := &executionState{
		exec:           e,
		schema:         sch,
		document:       document,
		variableValues: coercedVariableValues,
		context:        ctx,
		errors:         []GraphQLError{},
	}
	data := executeSelectionSet(state, sch.Query, operation.SelectionSet, nil, Path{})
	return &ExecutionResult{Data: data, Errors: state.errors}
}

// executeSelectionSet completes every collected field of objectValue.
// It returns nil when a Non-Null field below a nested object is null.
func executeSelectionSet(state *executionState, objectType *language.Definition, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	groupedFields := collectFields(state, objectType, selectionSet)
	resultMap := make(map[string]any)

	for _, collectedField := range groupedFields.orderedFields() {
		responseName := collectedField.ResponseName
		fields := collectedField.Fields
		fieldPath := appendPath(path, responseName)

		fieldResult := executeFieldGroup(state, objectType, objectValue, fields, fieldPath)

		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.Fields.ForName(fields[0].Name)
		if fieldDef == nil {
			continue
		}

		if fieldDef.Type.NonNull && isNullish(fieldResult) {
			if len(path) > 0 {
				return nil
			}
			resultMap[responseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectType *language.Definition, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.Fields.ForName(fieldName)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name), path)
		return nil
	}

	argumentValues, ok := coerceArgumentValues(state, fieldDef, field.Arguments, path)
	if !ok {
		return nil
	}

	resolved, err := resolveField(state, objectType, fieldDef, fields, objectValue, argumentValues)
	if err != nil {
		state.addFieldError(err, path)
		return nil
	}
	return completeValue(state, fieldDef.Type, fields, resolved, path)
}

// completeValue completes a value
func completeValue(state *executionState, fieldType *language.Type, fields []*language.Field, result any, path Path) any {
	if fieldType.NonNull {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		inner := *fieldType
		inner.NonNull = false
		return completeValue(state, &inner, fields, result, path)
	}

	if isNullish(result) {
		return nil
	}

	if fieldType.Elem != nil {
		return completeListValue(state, fieldType, fields, result, path)
	}
	typeObj := state.schema.Types[fieldType.NamedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", fieldType.NamedType), path)
		return nil
	}

	switch typeObj.Kind {
	case language.Scalar, language.Enum:
		serialized, err := serializeLeafValue(typeObj, result)
		if err != nil {
			state.addFieldError(err, path)
			return nil
		}
		return serialized
	case language.Object:
		return completeObjectValue(state, typeObj, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path)
		return nil
	}
}

// completeListValue completes a list value
func completeListValue(state *executionState, listType *language.Type, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := listType.Elem
	completed := make([]any, len(items))
	for i, item := range items {
		v := completeValue(state, inner, fields, item, appendPath(path, i))
		if inner.NonNull && isNullish(v) {
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *language.Definition, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	return executeSelectionSet(state, objectType, sub, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// getOperation retrieves the operation from the document
func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func (state *executionState) addError(message string, path Path) {
	state.errors = append(state.errors, GraphQLError{Message: message, Path: path})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range state.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// mergeSelectionSets merges selection sets from multiple fields
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
