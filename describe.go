package props

import (
	"context"
	"fmt"
)

// PropertyDescriptor summarises one declared property for introspection.
type PropertyDescriptor struct {
	Name       string    `json:"name"`
	Scope      ScopeName `json:"scope"`
	Bound      bool      `json:"bound"`
	HasDefault bool      `json:"has_default"`
	Pre        bool      `json:"pre"`
	Store      bool      `json:"store"`
	Post       bool      `json:"post"`
	Type       string    `json:"type,omitempty"`
}

// Describe lists the declared properties in declaration order. Type is the
// Go type of the current stored value, empty when nothing is stored.
func (p *Properties) Describe(ctx context.Context) []PropertyDescriptor {
	out := make([]PropertyDescriptor, 0, len(p.registry.order))
	for _, desc := range p.registry.descriptors() {
		entry := PropertyDescriptor{
			Name:       desc.name,
			Scope:      p.boundScope(desc),
			Bound:      desc.scope != "",
			HasDefault: desc.hasValue,
			Pre:        desc.slots.Pre != nil,
			Store:      desc.slots.Store != nil,
			Post:       desc.slots.Post != nil,
		}
		if value, ok, err := p.read(ctx, desc); err == nil && ok {
			entry.Type = typeName(value)
		}
		out = append(out, entry)
	}
	return out
}

// GlobalHandlers reports which stages have a global override.
func (p *Properties) GlobalHandlers() (pre, store, post bool) {
	return p.global.Pre != nil, p.global.Store != nil, p.global.Post != nil
}

func typeName(value any) string {
	if value == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", value)
}
