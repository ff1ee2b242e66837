package props

import (
	"context"
	"fmt"
)

// Definition declares one property. The zero value with a Name declares a
// property without a default, node handlers or a scope override.
type Definition struct {
	Name string

	value    any
	hasValue bool
	scope    ScopeName
	slots    HandlerSlots
}

// DefinitionOption configures a Definition.
type DefinitionOption func(*Definition)

// Define builds a Definition for name.
func Define(name string, opts ...DefinitionOption) Definition {
	def := Definition{Name: name}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&def)
	}
	return def
}

// Default sets the value assigned at construction when config omits the name.
// A nil value is a valid default.
func Default(value any) DefinitionOption {
	return func(def *Definition) {
		def.value = value
		def.hasValue = true
	}
}

// InScope binds the property to scope instead of the default scope.
func InScope(scope ScopeName) DefinitionOption {
	return func(def *Definition) {
		def.scope = scope
	}
}

// WithPre sets the property's pre-stage handler.
func WithPre(handler Handler) DefinitionOption {
	return func(def *Definition) {
		def.slots.Pre = handler
	}
}

// WithStore sets the property's store-stage handler.
func WithStore(handler Handler) DefinitionOption {
	return func(def *Definition) {
		def.slots.Store = handler
	}
}

// WithPost sets the property's post-stage handler.
func WithPost(handler Handler) DefinitionOption {
	return func(def *Definition) {
		def.slots.Post = handler
	}
}

type descriptor struct {
	name     string
	value    any
	hasValue bool
	scope    ScopeName // empty follows the default scope
	slots    HandlerSlots
}

// registry keeps descriptors in declaration order. Keys are fixed once built.
type registry struct {
	order  []string
	byName map[string]*descriptor
}

func (r registry) lookup(name string) (*descriptor, bool) {
	desc, ok := r.byName[name]
	return desc, ok
}

func (r registry) descriptors() []*descriptor {
	out := make([]*descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// declare builds the registry. Nameless or duplicate definitions are skipped;
// a bad scope falls back to the default with a warning.
func (p *Properties) declare(defs []Definition) {
	p.registry = registry{byName: make(map[string]*descriptor, len(defs))}
	for _, def := range defs {
		if def.Name == "" {
			continue
		}
		if _, exists := p.registry.byName[def.Name]; exists {
			continue
		}
		desc := &descriptor{
			name:     def.Name,
			value:    def.value,
			hasValue: def.hasValue,
			slots:    def.slots,
		}
		if def.scope != "" {
			if def.scope.Valid() {
				desc.scope = def.scope
			} else {
				p.host.Warn(newPropertyError("declare", def.Name, def.scope, ErrInvalidScope).Error())
			}
		}
		p.registry.order = append(p.registry.order, def.Name)
		p.registry.byName[def.Name] = desc
	}
}

// initialize primes each property from config, else from its default, using
// the full assignment chain.
func (p *Properties) initialize(ctx context.Context, config map[string]any) {
	for _, desc := range p.registry.descriptors() {
		if value, ok := config[desc.name]; ok {
			_ = p.assign(ctx, Assignment{Name: desc.name, Value: value, Source: SourceConfig})
			continue
		}
		if desc.hasValue {
			_ = p.assign(ctx, Assignment{Name: desc.name, Value: desc.value, Source: SourceDefault})
		}
	}
}

// IsKnown reports whether name was declared.
func (p *Properties) IsKnown(name string) bool {
	_, ok := p.registry.lookup(name)
	return ok
}

// Names returns the declared property names in declaration order.
func (p *Properties) Names() []string {
	return append([]string(nil), p.registry.order...)
}

// Handle registers handler for stage on each named property. With no names
// the handler becomes the global override for that stage. Validation runs
// before any slot changes, so a rejected call registers nothing.
func (p *Properties) Handle(stage Stage, handler Handler, names ...string) error {
	if !stage.valid() {
		return p.reject(newPropertyError("handle", "", "", fmt.Errorf("%w: %d", ErrInvalidStage, int(stage))))
	}
	if handler == nil {
		return p.reject(newPropertyError("handle", describeNames(names), "", ErrInvalidHandler))
	}
	if len(names) == 0 {
		p.global.set(stage, handler)
		return nil
	}
	targets := make([]*descriptor, 0, len(names))
	for _, name := range names {
		desc, ok := p.registry.lookup(name)
		if !ok {
			return p.reject(newPropertyError("handle", name, "", ErrUnknownProperty))
		}
		targets = append(targets, desc)
	}
	for _, desc := range targets {
		desc.slots.set(stage, handler)
	}
	return nil
}

// PreHandle registers a pre-stage handler.
func (p *Properties) PreHandle(handler Handler, names ...string) error {
	return p.Handle(StagePre, handler, names...)
}

// StoreHandle registers a store-stage handler. The handler is responsible
// for persisting the value, usually through SetRaw.
func (p *Properties) StoreHandle(handler Handler, names ...string) error {
	return p.Handle(StageStore, handler, names...)
}

// PostHandle registers a post-stage handler.
func (p *Properties) PostHandle(handler Handler, names ...string) error {
	return p.Handle(StagePost, handler, names...)
}

func describeNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return fmt.Sprint(names)
	}
}
