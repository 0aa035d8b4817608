package schema

import (
	"sort"

	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/storage"
)

const (
	pageInfoType = "PageInfo"
	paginateType = "Paginate"
	sdlSource    = "sirendb.graphql"
)

// PlaceholderField is the Query field rendered when no root fields exist.
const PlaceholderField = "ok"

// PageType returns the name of the page type wrapping typeName.
func PageType(typeName string) string { return typeName + "Page" }

// SortEnumType returns the name of the sort enum of typeName.
func SortEnumType(typeName string) string { return typeName + "SortEnum" }

// FilterType returns the name of the filter input of typeName.
func FilterType(typeName string) string { return typeName + "Filter" }

// PageInfoType is the name of the shared page metadata type.
func PageInfoType() string { return pageInfoType }

func renderSDL(reg *Registry) string {
	return language.FormatSchema(schemaDocument(reg))
}

func loadSDL(sdl string) (*language.Schema, error) {
	return language.LoadSchema(sdlSource, sdl)
}

func schemaDocument(reg *Registry) *language.SchemaDocument {
	doc := &language.SchemaDocument{}
	add := func(d *language.Definition) { doc.Definitions = append(doc.Definitions, d) }

	add(&language.Definition{
		Kind:        language.Scalar,
		Name:        string(storage.TypeTime),
		Description: "An ISO-8601 encoded UTC date time.",
	})

	enumNames := make([]string, 0, len(reg.enums))
	for name := range reg.enums {
		enumNames = append(enumNames, name)
	}
	sort.Strings(enumNames)
	for _, name := range enumNames {
		def := &language.Definition{Kind: language.Enum, Name: name}
		for _, v := range reg.enums[name].Values {
			def.EnumValues = append(def.EnumValues, &language.EnumValueDefinition{Name: v})
		}
		add(def)
	}

	add(&language.Definition{
		Kind: language.InputObject,
		Name: paginateType,
		Fields: language.FieldList{
			{Name: "first", Type: language.NamedType("Int"), Description: "Return the first number amount of items."},
			{Name: "last", Type: language.NamedType("Int"), Description: "Return the last number amount of items."},
			{Name: "before", Type: language.NamedType("String"), Description: "Return items before the given cursor."},
			{Name: "after", Type: language.NamedType("String"), Description: "Return items after the given cursor."},
		},
	})
	add(&language.Definition{
		Kind: language.Object,
		Name: pageInfoType,
		Fields: language.FieldList{
			{Name: "hasNext", Type: language.NonNullNamedType("Boolean")},
			{Name: "lastCursor", Type: language.NamedType("String")},
		},
	})

	for _, td := range reg.types {
		add(objectDefinition(td))
		add(sortEnumDefinition(td))
		add(filterDefinition(td))
		add(pageDefinition(td))
	}

	query := &language.Definition{
		Kind:        language.Object,
		Name:        "Query",
		Description: "The root Query object for interacting with the GraphQL API.",
	}
	for _, rf := range reg.roots {
		query.Fields = append(query.Fields, &language.FieldDefinition{
			Name:        rf.Name,
			Description: rf.Description,
			Type:        language.NonNullNamedType(PageType(rf.Type)),
			Arguments: language.ArgumentDefinitionList{
				{Name: "paginate", Type: language.NamedType(paginateType)},
				{Name: "sort", Type: language.NamedType(SortEnumType(rf.Type))},
				{Name: "filter", Type: language.NamedType(FilterType(rf.Type))},
			},
		})
	}
	if len(query.Fields) == 0 {
		query.Fields = append(query.Fields, &language.FieldDefinition{
			Name:        PlaceholderField,
			Description: "Placeholder present while no query fields are registered.",
			Type:        language.NonNullNamedType("Boolean"),
		})
	}
	add(query)
	return doc
}

func objectDefinition(td *TypeDescriptor) *language.Definition {
	def := &language.Definition{Kind: language.Object, Name: td.Name, Description: td.Doc}
	for _, f := range td.Fields {
		def.Fields = append(def.Fields, &language.FieldDefinition{
			Name:        f.GraphQLName(),
			Description: f.Doc,
			Type:        fieldType(f),
		})
	}
	return def
}

func fieldType(f *FieldSpec) *language.Type {
	if f.IsList {
		return language.NonNullListType(language.NonNullNamedType(f.DeclaredType))
	}
	if f.Nullable {
		return language.NamedType(f.DeclaredType)
	}
	return language.NonNullNamedType(f.DeclaredType)
}

func sortEnumDefinition(td *TypeDescriptor) *language.Definition {
	def := &language.Definition{Kind: language.Enum, Name: SortEnumType(td.Name)}
	for _, k := range td.Sort.Keys {
		def.EnumValues = append(def.EnumValues, &language.EnumValueDefinition{Name: k.Label})
	}
	return def
}

func filterDefinition(td *TypeDescriptor) *language.Definition {
	def := &language.Definition{Kind: language.InputObject, Name: FilterType(td.Name)}
	for _, ff := range td.Filter.Fields {
		typ := string(ff.Type)
		if ff.Enum != "" {
			typ = ff.Enum
		}
		def.Fields = append(def.Fields, &language.FieldDefinition{
			Name: GraphQLName(ff.Name),
			Type: language.NamedType(typ),
		})
	}
	return def
}

func pageDefinition(td *TypeDescriptor) *language.Definition {
	return &language.Definition{
		Kind: language.Object,
		Name: PageType(td.Name),
		Fields: language.FieldList{
			{Name: "items", Type: language.NonNullListType(language.NonNullNamedType(td.Name))},
			{Name: "count", Type: language.NonNullNamedType("Int")},
			{Name: "totalCount", Type: language.NonNullNamedType("Int")},
			{Name: "pageInfo", Type: language.NonNullNamedType(pageInfoType)},
		},
	}
}
