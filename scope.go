package props

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ScopeName identifies a storage domain with its own lifetime.
type ScopeName string

const (
	// ScopeNode is private to one node instance.
	ScopeNode ScopeName = "node"
	// ScopeFlow is shared by the nodes of one flow.
	ScopeFlow ScopeName = "flow"
	// ScopeGlobal is shared by every node.
	ScopeGlobal ScopeName = "global"
)

// Valid reports whether s is one of node, flow or global.
func (s ScopeName) Valid() bool {
	switch s {
	case ScopeNode, ScopeFlow, ScopeGlobal:
		return true
	default:
		return false
	}
}

// ParseScope converts value into a ScopeName, ignoring case and whitespace.
func ParseScope(value string) (ScopeName, error) {
	scope := ScopeName(strings.ToLower(strings.TrimSpace(value)))
	if !scope.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, value)
	}
	return scope, nil
}

// Store is one scope's key/value storage. Implementations shared between
// nodes guard their own state.
type Store interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
}

// Deleter is implemented by stores that can remove a key. SetScope uses it to
// clear a stale copy when a property without a value moves into the store.
type Deleter interface {
	Delete(ctx context.Context, key string) error
}

// Stores provides the store backing each scope.
type Stores struct {
	Node   Store
	Flow   Store
	Global Store
}

func (s Stores) lookup(scope ScopeName) Store {
	switch scope {
	case ScopeFlow:
		return s.Flow
	case ScopeGlobal:
		return s.Global
	default:
		return s.Node
	}
}

// ScopeOf returns the scope name is currently bound to. Unknown names report
// the default scope.
func (p *Properties) ScopeOf(name string) ScopeName {
	desc, ok := p.registry.lookup(name)
	if !ok {
		return p.defaultScope
	}
	return p.boundScope(desc)
}

// DefaultScope returns the scope used by properties without an explicit
// binding.
func (p *Properties) DefaultScope() ScopeName {
	return p.defaultScope
}

func (p *Properties) boundScope(desc *descriptor) ScopeName {
	if desc.scope != "" {
		return desc.scope
	}
	return p.defaultScope
}

// Get reads name from its bound scope. Unknown names and store failures are
// reported to the host and read as absent.
func (p *Properties) Get(ctx context.Context, name string) (any, bool) {
	desc, ok := p.registry.lookup(name)
	if !ok {
		_ = p.reject(newPropertyError("get", name, "", ErrUnknownProperty))
		return nil, false
	}
	value, found, err := p.read(ctx, desc)
	if err != nil {
		_ = p.reject(err)
		return nil, false
	}
	return value, found
}

// SetRaw writes value into the bound scope without running any handlers.
// Store-stage overrides use it to persist.
func (p *Properties) SetRaw(ctx context.Context, name string, value any) error {
	desc, ok := p.registry.lookup(name)
	if !ok {
		return p.reject(newPropertyError("set_raw", name, "", ErrUnknownProperty))
	}
	if err := p.write(ctx, desc, value); err != nil {
		return p.reject(err)
	}
	return nil
}

func (p *Properties) read(ctx context.Context, desc *descriptor) (any, bool, error) {
	return p.readScope(ctx, p.boundScope(desc), desc.name)
}

func (p *Properties) write(ctx context.Context, desc *descriptor, value any) error {
	return p.writeScope(ctx, p.boundScope(desc), desc.name, value)
}

func (p *Properties) readScope(ctx context.Context, scope ScopeName, name string) (any, bool, error) {
	value, ok, err := p.stores.lookup(scope).Get(ctx, name)
	if err != nil {
		return nil, false, newPropertyError("get", name, scope, fmt.Errorf("props: store read: %w", err))
	}
	return value, ok, nil
}

func (p *Properties) writeScope(ctx context.Context, scope ScopeName, name string, value any) error {
	if err := p.stores.lookup(scope).Set(ctx, name, value); err != nil {
		return newPropertyError("set", name, scope, fmt.Errorf("props: store write: %w", err))
	}
	return nil
}

// clearScope removes name from scope when its store supports deletion.
func (p *Properties) clearScope(ctx context.Context, scope ScopeName, name string) error {
	deleter, ok := p.stores.lookup(scope).(Deleter)
	if !ok {
		return nil
	}
	if err := deleter.Delete(ctx, name); err != nil {
		return newPropertyError("set_scope", name, scope, fmt.Errorf("props: store delete: %w", err))
	}
	return nil
}

// SetScope rebinds the named properties to scope, carrying each current value
// from the old scope into the new one. With no names the default scope
// changes and every property without an explicit binding migrates. Handlers
// do not run: a migration is not an assignment. A property without a value
// clears any copy already held under its key in the new scope, so it still
// reads as absent afterwards. Stores that do not implement Deleter keep that
// copy.
func (p *Properties) SetScope(ctx context.Context, scope ScopeName, names ...string) error {
	if !scope.Valid() {
		return p.reject(newPropertyError("set_scope", describeNames(names), scope, ErrInvalidScope))
	}

	var targets []*descriptor
	if len(names) == 0 {
		for _, desc := range p.registry.descriptors() {
			if desc.scope == "" {
				targets = append(targets, desc)
			}
		}
	} else {
		for _, name := range names {
			desc, ok := p.registry.lookup(name)
			if !ok {
				return p.reject(newPropertyError("set_scope", name, scope, ErrUnknownProperty))
			}
			targets = append(targets, desc)
		}
	}

	ctx, span := p.tracer().Start(ctx, "props.set_scope", trace.WithAttributes(
		attribute.String("props.node_id", p.cfg.nodeID),
		attribute.String("props.scope", string(scope)),
		attribute.Int("props.targets", len(targets)),
	))
	defer span.End()

	type pending struct {
		desc  *descriptor
		from  ScopeName
		value any
		found bool
	}
	moves := make([]pending, 0, len(targets))
	for _, desc := range targets {
		from := p.boundScope(desc)
		value, found, err := p.readScope(ctx, from, desc.name)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return p.reject(err)
		}
		moves = append(moves, pending{desc: desc, from: from, value: value, found: found})
	}

	if len(names) == 0 {
		p.defaultScope = scope
	} else {
		for _, move := range moves {
			move.desc.scope = scope
		}
	}

	var firstErr error
	for _, move := range moves {
		start := time.Now()
		var err error
		if move.from != scope {
			if move.found {
				err = p.writeScope(ctx, scope, move.desc.name, move.value)
			} else {
				err = p.clearScope(ctx, scope, move.desc.name)
			}
		}
		p.logger().LogAssignment(AssignmentLogEvent{
			Op:       OpRescope,
			NodeID:   p.cfg.nodeID,
			Property: move.desc.name,
			Source:   SourceMigration,
			Scope:    scope,
			From:     move.from,
			Duration: time.Since(start),
			Err:      err,
		})
		if err != nil {
			span.RecordError(err)
			if firstErr == nil {
				firstErr = p.reject(err)
			} else {
				_ = p.reject(err)
			}
			continue
		}
		if !move.found {
			continue
		}
		p.emit(ctx, activity.BuildPropertyRescopedEvent(activity.PropertyEventInput{
			NodeID:   p.cfg.nodeID,
			Property: move.desc.name,
			Source:   SourceMigration.String(),
			NewValue: move.value,
			Scope:    activity.ScopeContext{Name: string(scope), Previous: string(move.from)},
		}))
	}
	if firstErr != nil {
		span.SetStatus(codes.Error, firstErr.Error())
	}
	return firstErr
}
