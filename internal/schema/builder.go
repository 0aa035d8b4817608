package schema

import (
	"sort"

	"github.com/sirendb/sirendb/internal/storage"
)

// Thunk names the target type of a relationship whose table is registered later.
type Thunk func() string

// Computed declares a field produced by a resolver instead of a column read.
type Computed struct {
	Name string
	// Type is the GraphQL named type, either a scalar or a registered type name.
	Type     string
	List     bool
	Nullable bool
	Default  *Default
	Doc      string
}

// TableOption customizes how a table becomes a type.
type TableOption func(*tableConfig)

type tableConfig struct {
	only     []string
	late     map[string]Thunk
	computed []Computed
	filterBy []string
	doc      string
}

// Only restricts the exposed columns and relationships to fields.
// Computed fields are always exposed.
func Only(fields ...string) TableOption {
	return func(c *tableConfig) { c.only = append(c.only, fields...) }
}

// Late binds the relationship field to a type that may be registered after this one.
func Late(field string, thunk Thunk) TableOption {
	return func(c *tableConfig) {
		if c.late == nil {
			c.late = make(map[string]Thunk)
		}
		c.late[field] = thunk
	}
}

// WithComputed declares computed fields on the type.
func WithComputed(fields ...Computed) TableOption {
	return func(c *tableConfig) { c.computed = append(c.computed, fields...) }
}

// FilterBy borrows the named direct fields into the type's filter input.
// Without it every exposed direct field is filterable.
func FilterBy(fields ...string) TableOption {
	return func(c *tableConfig) { c.filterBy = append(c.filterBy, fields...) }
}

// Doc sets the type description.
func Doc(text string) TableOption {
	return func(c *tableConfig) { c.doc = text }
}

type slot struct {
	name     string
	table    *storage.Table
	doc      string
	fields   []*FieldSpec
	sources  map[string]string
	filterBy []string
	// computed fields whose Type may name an object type
	computedTypes map[*FieldSpec]string
}

type lateBinding struct {
	owner string
	field *FieldSpec
	// table the relationship points at
	table    string
	thunk    Thunk
	resolved bool
	// name is the thunk's result, recorded on the single call.
	name   string
	handle Handle
}

// Builder collects types at startup. It is not safe for concurrent use.
type Builder struct {
	slots      []*slot
	byName     map[string]Handle
	byTable    map[string]Handle
	late       []*lateBinding
	roots      []RootField
	enums      map[string]*storage.Enum
	violations []*Violation

	frozen *Registry
	err    error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		byName:  make(map[string]Handle),
		byTable: make(map[string]Handle),
		enums:   make(map[string]*storage.Enum),
	}
}

func (b *Builder) mustBeOpen() {
	if b.frozen != nil || b.err != nil {
		panic("schema: builder used after Freeze")
	}
}

// Table registers typeName backed by t and returns its handle.
func (b *Builder) Table(typeName string, t *storage.Table, opts ...TableOption) Handle {
	b.mustBeOpen()
	var cfg tableConfig
	for _, o := range opts {
		o(&cfg)
	}

	if h, ok := b.byName[typeName]; ok {
		b.violations = append(b.violations, violationDuplicateType(typeName))
		return h
	}
	h := Handle(len(b.slots))
	s := &slot{
		name:          typeName,
		table:         t,
		doc:           cfg.doc,
		sources:       make(map[string]string),
		filterBy:      cfg.filterBy,
		computedTypes: make(map[*FieldSpec]string),
	}
	if s.doc == "" {
		s.doc = t.Doc
	}
	b.slots = append(b.slots, s)
	b.byName[typeName] = h
	if prev, ok := b.byTable[t.Name]; ok {
		b.violations = append(b.violations, violationDuplicateTable(t.Name, b.slots[prev].name, typeName))
	} else {
		b.byTable[t.Name] = h
	}

	exposed := exposure(cfg.only)
	for _, name := range cfg.only {
		_, isCol := t.Column(name)
		_, isRel := t.Relationship(name)
		if !isCol && !isRel {
			b.violations = append(b.violations, violationUnknownOnlyField(typeName, name))
		}
	}

	for _, col := range t.Columns {
		if !exposed(col.Name) {
			continue
		}
		f := &FieldSpec{
			Name:         col.Name,
			Column:       col.Name,
			Kind:         DirectField,
			Required:     !col.Nullable && !col.HasDefault,
			Nullable:     col.Nullable,
			DeclaredType: columnGraphQLType(col),
			Target:       NoHandle,
			Doc:          col.Doc,
		}
		if col.HasDefault {
			f.Default = &Default{Value: col.Default}
		}
		if col.Enum != nil {
			b.enums[col.Enum.Name] = col.Enum
		}
		b.addField(s, f, "column")
	}

	for _, rel := range t.Relationships {
		if !exposed(rel.Name) {
			continue
		}
		// To-one relationships render nullable: cycle breaking may cut them.
		f := &FieldSpec{
			Name:     rel.Name,
			Column:   rel.Name,
			Kind:     RelationshipField,
			IsList:   rel.List,
			Nullable: !rel.List,
			Target:   NoHandle,
			Doc:      rel.Doc,
		}
		if rel.List {
			f.Default = EmptyList()
		} else if col, ok := t.Column(rel.LocalColumn); ok {
			f.Required = !col.Nullable
		}
		if target, ok := b.byTable[rel.Target]; ok {
			f.Target = target
		} else if thunk, ok := cfg.late[rel.Name]; ok {
			b.late = append(b.late, &lateBinding{owner: typeName, field: f, table: rel.Target, thunk: thunk})
		} else {
			b.violations = append(b.violations, violationUnknownTarget(typeName, rel.Name, rel.Target))
		}
		b.addField(s, f, "relationship")
	}

	for _, c := range cfg.computed {
		f := &FieldSpec{
			Name:         c.Name,
			Kind:         ComputedField,
			IsList:       c.List,
			Nullable:     c.Nullable && !c.List,
			Default:      c.Default,
			DeclaredType: c.Type,
			Target:       NoHandle,
			Doc:          c.Doc,
		}
		if c.List && f.Default == nil {
			f.Default = EmptyList()
		}
		f.Required = !c.Nullable && f.Default == nil
		s.computedTypes[f] = c.Type
		b.addField(s, f, "computed")
	}
	return h
}

// addField appends f to s. A computed field replaces a direct field of the
// same name in place; any other collision is a violation.
func (b *Builder) addField(s *slot, f *FieldSpec, source string) {
	prev, exists := s.sources[f.Name]
	if !exists {
		s.fields = append(s.fields, f)
		s.sources[f.Name] = source
		return
	}
	if source == "computed" && prev == "column" {
		for i, existing := range s.fields {
			if existing.Name == f.Name {
				s.fields[i] = f
				break
			}
		}
		s.sources[f.Name] = source
		return
	}
	b.violations = append(b.violations, violationDuplicateField(s.name, f.Name, prev, source))
}

// Query adds paginated root fields declared by contributor.
func (b *Builder) Query(contributor string, fields ...RootField) {
	b.mustBeOpen()
	for _, rf := range fields {
		rf.Contributor = contributor
		dup := false
		for _, existing := range b.roots {
			if existing.Name == rf.Name {
				b.violations = append(b.violations, violationDuplicateRoot(rf.Name, existing.Contributor, contributor))
				dup = true
				break
			}
		}
		if !dup {
			b.roots = append(b.roots, rf)
		}
	}
}

func (b *Builder) resolve(lb *lateBinding) (Handle, bool) {
	if lb.resolved {
		return lb.handle, lb.handle != NoHandle
	}
	lb.resolved = true
	lb.handle = NoHandle
	lb.name = lb.thunk()
	if h, ok := b.byName[lb.name]; ok {
		lb.handle = h
	}
	return lb.handle, lb.handle != NoHandle
}

// Freeze resolves every late binding, orders fields and builds the immutable
// Registry. Calling Freeze again returns the same result.
func (b *Builder) Freeze() (*Registry, error) {
	if b.frozen != nil || b.err != nil {
		return b.frozen, b.err
	}
	violations := append([]*Violation(nil), b.violations...)

	for _, lb := range b.late {
		h, ok := b.resolve(lb)
		if !ok {
			violations = append(violations, violationUnresolvedReference(lb.owner, lb.field.Name, lb.name))
			continue
		}
		if got := b.slots[h].table.Name; got != lb.table {
			violations = append(violations, violationLateTableMismatch(lb.owner, lb.field.Name, lb.name, got, lb.table))
			continue
		}
		lb.field.Target = h
	}

	reg := &Registry{
		types:  make([]*TypeDescriptor, len(b.slots)),
		byName: make(map[string]Handle, len(b.slots)),
		enums:  b.enums,
	}
	for i, s := range b.slots {
		td, vs := b.describe(Handle(i), s)
		violations = append(violations, vs...)
		reg.types[i] = td
		reg.byName[s.name] = Handle(i)
	}

	roots := append([]RootField(nil), b.roots...)
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })
	for _, rf := range roots {
		if _, ok := b.byName[rf.Type]; !ok {
			violations = append(violations, violationUnknownRootType(rf.Name, rf.Type))
		}
	}
	reg.roots = roots

	if len(violations) > 0 {
		b.err = SchemaDefinitionError(violations)
		return nil, b.err
	}

	reg.sdl = renderSDL(reg)
	s, err := loadSDL(reg.sdl)
	if err != nil {
		b.err = SchemaDefinitionError{violationInvalidSDL(err)}
		return nil, b.err
	}
	reg.schema = s
	b.frozen = reg
	return reg, nil
}

func (b *Builder) describe(h Handle, s *slot) (*TypeDescriptor, []*Violation) {
	var violations []*Violation
	for f, typeName := range s.computedTypes {
		if target, ok := b.byName[typeName]; ok {
			f.Target = target
			f.Nullable = f.Nullable || !f.IsList
		}
	}
	for _, f := range s.fields {
		if f.Kind == RelationshipField && f.Target != NoHandle {
			f.DeclaredType = b.slots[f.Target].name
		}
	}

	td := &TypeDescriptor{
		Name:   s.name,
		Handle: h,
		Table:  s.table.Name,
		Doc:    s.doc,
		Fields: orderFields(s.fields),
		index:  make(map[string]int, len(s.fields)),
	}
	for i, f := range td.Fields {
		td.index[f.Name] = i
	}

	if s.table.PrimaryKey == "" {
		violations = append(violations, violationNoPrimaryKey(s.name, s.table.Name))
	} else {
		td.Sort = buildSort(s.table, td)
	}

	filter, vs := buildFilter(s, td)
	td.Filter = filter
	violations = append(violations, vs...)
	return td, violations
}

// orderFields moves every field without a default ahead of the defaulted
// ones, keeping declaration order inside each group.
func orderFields(fields []*FieldSpec) []*FieldSpec {
	out := make([]*FieldSpec, 0, len(fields))
	for _, f := range fields {
		if !f.HasDefault() {
			out = append(out, f)
		}
	}
	for _, f := range fields {
		if f.HasDefault() {
			out = append(out, f)
		}
	}
	return out
}

func buildSort(t *storage.Table, td *TypeDescriptor) SortSpec {
	var spec SortSpec
	add := func(column string) {
		spec.Keys = append(spec.Keys,
			SortKey{Label: SortLabel(column, true), Column: column, Direction: storage.Asc},
			SortKey{Label: SortLabel(column, false), Column: column, Direction: storage.Desc},
		)
	}
	add(t.PrimaryKey)
	for _, f := range td.Fields {
		if f.Kind == DirectField && f.Column != t.PrimaryKey {
			add(f.Column)
		}
	}
	spec.Default = SortLabel(t.PrimaryKey, true)
	return spec
}

func buildFilter(s *slot, td *TypeDescriptor) (FilterSpec, []*Violation) {
	var (
		spec       FilterSpec
		violations []*Violation
	)
	names := s.filterBy
	if len(names) == 0 {
		for _, f := range s.fields {
			if f.Kind == DirectField {
				names = append(names, f.Name)
			}
		}
	}
	for _, name := range names {
		f, ok := td.Field(name)
		if !ok {
			violations = append(violations, violationBadBorrow(s.name, name, "no such field"))
			continue
		}
		if f.Kind != DirectField {
			violations = append(violations, violationBadBorrow(s.name, name, "only direct fields can be filtered"))
			continue
		}
		col, _ := s.table.Column(f.Column)
		ff := FilterField{Name: f.Name, Column: f.Column, Type: col.Type}
		if col.Enum != nil {
			ff.Enum = col.Enum.Name
		}
		spec.Fields = append(spec.Fields, ff)
	}
	return spec, violations
}

func exposure(only []string) func(string) bool {
	if len(only) == 0 {
		return func(string) bool { return true }
	}
	set := make(map[string]struct{}, len(only))
	for _, n := range only {
		set[n] = struct{}{}
	}
	return func(name string) bool {
		_, ok := set[name]
		return ok
	}
}

func columnGraphQLType(col storage.Column) string {
	if col.Type == storage.TypeEnum && col.Enum != nil {
		return col.Enum.Name
	}
	return string(col.Type)
}
