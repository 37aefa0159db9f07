package tool

// ActionBuilder provides a fluent way to declare an action's parameter
// catalog without hand-writing ActionDescriptor literals everywhere a
// local tool is defined.
type ActionBuilder struct {
	name        string
	description string
	required    []string
	optional    []string
}

// NewAction starts building an action descriptor.
func NewAction(name, description string) *ActionBuilder {
	return &ActionBuilder{name: name, description: description}
}

// Require appends required parameter names, in declared order.
func (b *ActionBuilder) Require(names ...string) *ActionBuilder {
	b.required = append(b.required, names...)
	return b
}

// Optional appends optional parameter names, in declared order.
func (b *ActionBuilder) Optional(names ...string) *ActionBuilder {
	b.optional = append(b.optional, names...)
	return b
}

// Build finalizes the descriptor.
func (b *ActionBuilder) Build() ActionDescriptor {
	return ActionDescriptor{
		Name:        b.name,
		Description: b.description,
		Required:    b.required,
		Optional:    b.optional,
	}
}
