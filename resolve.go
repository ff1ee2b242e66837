package props

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Resolve derives the assignments carried by msg. Field-match runs first, in
// declaration order, then topic-match. Both always run, so a property named
// by a field and by the topic is assigned twice and the payload wins.
// Unknown fields and topics are ignored.
func (p *Properties) Resolve(msg Message) []Assignment {
	if len(msg) == 0 {
		return nil
	}
	var out []Assignment
	for _, name := range p.registry.order {
		if value, ok := msg[name]; ok {
			out = append(out, Assignment{Name: name, Value: value, Message: msg, Source: SourceField})
		}
	}
	if topic, ok := msg.Topic(); ok && p.IsKnown(topic) {
		out = append(out, Assignment{Name: topic, Value: msg.Payload(), Message: msg, Source: SourceTopic})
	}
	return out
}

// Input dispatches every assignment resolved from msg in order. It reports
// whether msg matched any property. Failures are reported to the host, never
// returned, so a misconfigured property cannot halt the message stream.
func (p *Properties) Input(ctx context.Context, msg Message) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	assignments := p.Resolve(msg)
	ctx, span := p.tracer().Start(ctx, "props.input", trace.WithAttributes(
		attribute.String("props.node_id", p.cfg.nodeID),
		attribute.Int("props.assignments", len(assignments)),
	))
	defer span.End()

	for _, a := range assignments {
		_ = p.assign(ctx, a)
	}
	return len(assignments) > 0
}
