package executor

import (
	"fmt"
	"time"

	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/storage"
)

// coerceArgumentValues evaluates the arguments of a field against the
// coerced variables and fills in declared defaults. It reports false after
// recording an error.
func coerceArgumentValues(
	state *executionState,
	fieldDef *language.FieldDefinition,
	arguments language.ArgumentList,
	path Path,
) (map[string]any, bool) {
	coerced := make(map[string]any)
	for _, arg := range arguments {
		if fieldDef.Arguments.ForName(arg.Name) == nil {
			continue
		}
		v, err := arg.Value.Value(state.variableValues)
		if err != nil {
			state.errors = append(state.errors, GraphQLError{
				Message:    fmt.Sprintf("argument '%s' cannot be coerced: %v", arg.Name, err),
				Path:       path,
				Extensions: withCode(CodeBadUserInput),
			})
			return nil, false
		}
		coerced[arg.Name] = v
	}
	for _, argDef := range fieldDef.Arguments {
		if _, ok := coerced[argDef.Name]; ok {
			continue
		}
		if argDef.DefaultValue != nil {
			if v, err := argDef.DefaultValue.Value(nil); err == nil {
				coerced[argDef.Name] = v
				continue
			}
		}
		if argDef.Type.NonNull {
			state.errors = append(state.errors, GraphQLError{
				Message:    fmt.Sprintf("argument '%s' of required type was not provided", argDef.Name),
				Path:       path,
				Extensions: withCode(CodeBadUserInput),
			})
			return nil, false
		}
	}
	return coerced, true
}

// serializeLeafValue converts a projected value into the JSON form of a
// scalar or enum type.
func serializeLeafValue(def *language.Definition, value any) (any, error) {
	if def.Kind == language.Enum {
		s, ok := stringValue(value)
		if !ok || def.EnumValues.ForName(s) == nil {
			return nil, fmt.Errorf("executor: %v is not a value of enum %s", value, def.Name)
		}
		return s, nil
	}

	switch def.Name {
	case "Int":
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		}
	case "Float":
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		}
	case "String", "ID":
		if s, ok := stringValue(value); ok {
			return s, nil
		}
		if def.Name == "ID" {
			return fmt.Sprint(value), nil
		}
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case string(storage.TypeTime):
		switch v := value.(type) {
		case time.Time:
			return v.UTC().Format(time.RFC3339Nano), nil
		case string:
			return v, nil
		}
	default:
		return value, nil
	}
	return nil, fmt.Errorf("executor: cannot serialize %T as %s", value, def.Name)
}

func stringValue(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case *string:
		if s == nil {
			return "", false
		}
		return *s, true
	case []byte:
		return string(s), true
	case fmt.Stringer:
		return s.String(), true
	}
	return "", false
}
