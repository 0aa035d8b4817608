package executor

import (
	"github.com/sirendb/sirendb/internal/language"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func newCollectedFieldMap() *collectedFieldMap {
	return &collectedFieldMap{
		fields: make([]collectedField, 0),
		index:  make(map[string]int),
	}
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

func (cfm *collectedFieldMap) orderedFields() []collectedField {
	return cfm.fields
}

// collectFields groups the fields of selectionSet that apply to objectType
// by response name.
func collectFields(state *executionState, objectType *language.Definition, selectionSet language.SelectionSet) *collectedFieldMap {
	groupedFields := newCollectedFieldMap()
	visitedFragments := make(map[string]bool)
	collectFieldsImpl(state, objectType, selectionSet, groupedFields, visitedFragments)
	return groupedFields
}

func collectFieldsImpl(state *executionState, objectType *language.Definition, selectionSet language.SelectionSet, groupedFields *collectedFieldMap, visitedFragments map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			groupedFields.add(responseName, sel)

		case *language.InlineFragment:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			// All generated types are concrete objects.
			if sel.TypeCondition != "" && sel.TypeCondition != objectType.Name {
				continue
			}
			collectFieldsImpl(state, objectType, sel.SelectionSet, groupedFields, visitedFragments)

		case *language.FragmentSpread:
			if !shouldIncludeNode(state, sel.Directives) {
				continue
			}
			if visitedFragments[sel.Name] {
				continue
			}
			visitedFragments[sel.Name] = true

			fragmentDef := state.document.Fragments.ForName(sel.Name)
			if fragmentDef == nil {
				continue
			}
			if fragmentDef.TypeCondition != "" && fragmentDef.TypeCondition != objectType.Name {
				continue
			}
			if !shouldIncludeNode(state, fragmentDef.Directives) {
				continue
			}
			collectFieldsImpl(state, objectType, fragmentDef.SelectionSet, groupedFields, visitedFragments)
		}
	}
}

// shouldIncludeNode evaluates @skip and @include.
func shouldIncludeNode(state *executionState, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if b, ok := directiveCondition(state, skip); ok && b {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if b, ok := directiveCondition(state, include); ok && !b {
			return false
		}
	}
	return true
}

func directiveCondition(state *executionState, directive *language.Directive) (bool, bool) {
	arg := directive.Arguments.ForName("if")
	if arg == nil {
		return false, false
	}
	v, err := arg.Value.Value(state.variableValues)
	if err != nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
