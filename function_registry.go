package props

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Function is a callable exposed to rule expressions, directly by name in
// expr and through call(name, ...) in every engine.
type Function func(args ...any) (any, error)

type namedFunction struct {
	name string
	fn   Function
}

// FunctionRegistry holds rule functions. Lookups ignore case; Names reports
// the spelling used at registration.
type FunctionRegistry struct {
	mu      sync.RWMutex
	entries map[string]namedFunction
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{entries: map[string]namedFunction{}}
}

// Register adds fn under name. Registering the same name twice fails.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("props: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("props: function %q is nil", name)
	}
	key := strings.ToLower(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.entries == nil {
		r.entries = map[string]namedFunction{}
	}
	if existing, ok := r.entries[key]; ok {
		return fmt.Errorf("props: function %q already registered as %q", name, existing.name)
	}
	r.entries[key] = namedFunction{name: name, fn: fn}
	return nil
}

// Has reports whether name is registered.
func (r *FunctionRegistry) Has(name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	_, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	return ok
}

// Len returns the number of registered functions.
func (r *FunctionRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clone copies the registry. Evaluators keep a clone, so functions added
// afterwards are not visible to rules already built.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := &FunctionRegistry{entries: make(map[string]namedFunction, len(r.entries))}
	for key, entry := range r.entries {
		out.entries[key] = entry
	}
	return out
}

// Call runs the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("props: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.entries[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("props: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns the registered names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, entry := range r.entries {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// WithFunctionRegistry exposes registry to rule handlers built from the
// default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *propsConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn under name for rule handlers. Invalid or
// duplicate registrations are dropped.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *propsConfig) {
		if cfg.functions == nil {
			cfg.functions = NewFunctionRegistry()
		}
		_ = cfg.functions.Register(name, fn)
	}
}
