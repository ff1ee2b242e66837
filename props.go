package props

import (
	"context"

	"github.com/goliatone/go-props/pkg/activity"
	"github.com/goliatone/go-props/pkg/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// New declares defs, applies opts and primes every property from config (or
// its declared default) through the assignment chain. Handlers registered
// after New returns do not observe those initial assignments.
func New(ctx context.Context, host Host, config map[string]any, defs []Definition, opts ...Option) *Properties {
	if ctx == nil {
		ctx = context.Background()
	}
	if host == nil {
		host = noopHost{}
	}
	cfg := applyOptions(opts)
	if cfg.nodeID == "" {
		cfg.nodeID = uuid.NewString()
	}

	p := &Properties{
		host:         host,
		defaultScope: ScopeNode,
		stores:       cfg.stores.withDefaults(),
		cfg:          cfg,
	}
	if cfg.defaultScope != "" {
		if cfg.defaultScope.Valid() {
			p.defaultScope = cfg.defaultScope
		} else {
			p.host.Warn(newPropertyError("new", "", cfg.defaultScope, ErrInvalidScope).Error())
		}
	}

	p.declare(defs)
	for _, reg := range cfg.globals {
		_ = p.Handle(reg.stage, reg.handler)
	}
	p.initialize(ctx, config)
	return p
}

// NodeID returns the identifier used for activity events and spans.
func (p *Properties) NodeID() string {
	return p.cfg.nodeID
}

// WithNodeID sets the node identifier. A random UUID is used when empty.
func WithNodeID(id string) Option {
	return func(cfg *propsConfig) {
		cfg.nodeID = id
	}
}

// WithStores supplies the scope stores. Nil entries get private in-memory
// stores; share a Flow or Global store between nodes to share values.
func WithStores(stores Stores) Option {
	return func(cfg *propsConfig) {
		cfg.stores = stores
	}
}

// WithDefaultScope binds every property without an explicit scope to scope.
func WithDefaultScope(scope ScopeName) Option {
	return func(cfg *propsConfig) {
		cfg.defaultScope = scope
	}
}

// WithGlobalHandler registers a global override for stage before the
// initial assignments run.
func WithGlobalHandler(stage Stage, handler Handler) Option {
	return func(cfg *propsConfig) {
		cfg.globals = append(cfg.globals, globalRegistration{stage: stage, handler: handler})
	}
}

// WithTracer configures the tracer used for Input and assignment spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *propsConfig) {
		cfg.tracer = tracer
	}
}

// WithActivity emits property lifecycle events to hooks.
func WithActivity(hooks activity.Hooks, config activity.Config) Option {
	emitter := activity.NewEmitter(hooks, config)
	return func(cfg *propsConfig) {
		cfg.emitter = emitter
	}
}

// WithProgramCache shares a compiled program cache with rule handlers built
// from the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *propsConfig) {
		cfg.programCache = cache
	}
}

func (p *Properties) tracer() trace.Tracer {
	if p.cfg.tracer != nil {
		return p.cfg.tracer
	}
	return noop.NewTracerProvider().Tracer("github.com/goliatone/go-props")
}

func (s Stores) withDefaults() Stores {
	if s.Node == nil {
		s.Node = store.NewMemoryStore()
	}
	if s.Flow == nil {
		s.Flow = store.NewMemoryStore()
	}
	if s.Global == nil {
		s.Global = store.NewMemoryStore()
	}
	return s
}
