package props

import (
	"context"

	"github.com/goliatone/go-props/internal/hydrate"
)

// Snapshot reads every declared property from its bound scope. Properties
// with no stored value are omitted; read failures are reported to the host.
func (p *Properties) Snapshot(ctx context.Context) map[string]any {
	out := make(map[string]any, len(p.registry.order))
	for _, desc := range p.registry.descriptors() {
		value, ok, err := p.read(ctx, desc)
		if err != nil {
			_ = p.reject(err)
			continue
		}
		if ok {
			out[desc.name] = value
		}
	}
	return out
}

// Decode hydrates T from the current snapshot, matching property names to
// JSON field names.
func Decode[T any](ctx context.Context, p *Properties) (T, error) {
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{Node: p.NodeID()}, p.Snapshot(ctx))
}

// DecodeStrict is Decode but fails when a stored property has no matching
// field in T.
func DecodeStrict[T any](ctx context.Context, p *Properties) (T, error) {
	decoder := hydrate.NewDecoder(hydrate.WithDisallowUnknownFields[T]())
	return decoder.Decode(hydrate.Context{Node: p.NodeID()}, p.Snapshot(ctx))
}
