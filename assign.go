package props

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Set assigns value to name through the pre, store and post stages. msg is
// handed to every handler and may be nil.
func (p *Properties) Set(ctx context.Context, name string, value any, msg Message) error {
	return p.assign(ctx, Assignment{Name: name, Value: value, Message: msg, Source: SourceDirect})
}

func (p *Properties) assign(ctx context.Context, a Assignment) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := p.tracer().Start(ctx, "props.assign", trace.WithAttributes(
		attribute.String("props.node_id", p.cfg.nodeID),
		attribute.String("props.property", a.Name),
		attribute.String("props.source", a.Source.String()),
	))
	defer span.End()

	start := time.Now()
	err := p.runChain(ctx, a)
	if err != nil && !errors.Is(err, ErrRejected) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	p.logger().LogAssignment(AssignmentLogEvent{
		Op:       OpAssign,
		NodeID:   p.cfg.nodeID,
		Property: a.Name,
		Source:   a.Source,
		Scope:    p.ScopeOf(a.Name),
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// runChain resolves each stage to the property's handler, then the global
// override, then (store stage only) the built-in scoped write.
func (p *Properties) runChain(ctx context.Context, a Assignment) error {
	desc, ok := p.registry.lookup(a.Name)
	if !ok {
		return p.reject(newPropertyError("set", a.Name, "", ErrUnknownProperty))
	}

	var previous any
	if p.cfg.emitter.Enabled() {
		previous, _, _ = p.read(ctx, desc)
	}

	for _, stage := range stageOrder {
		handler := desc.slots.get(stage)
		if handler == nil {
			handler = p.global.get(stage)
		}
		if handler != nil {
			if err := handler(ctx, a.Value, a.Message, a.Name); err != nil {
				stageErr := &StageError{Stage: stage, Property: a.Name, Err: err}
				if errors.Is(err, ErrRejected) {
					return stageErr
				}
				return p.reject(stageErr)
			}
			continue
		}
		if stage == StageStore {
			if err := p.write(ctx, desc, a.Value); err != nil {
				return p.reject(err)
			}
		}
	}

	p.emit(ctx, activity.BuildPropertyAssignedEvent(activity.PropertyEventInput{
		NodeID:   p.cfg.nodeID,
		Property: a.Name,
		Source:   a.Source.String(),
		OldValue: previous,
		NewValue: a.Value,
		Scope:    activity.ScopeContext{Name: string(p.boundScope(desc))},
	}))
	return nil
}

// emit forwards event to the configured activity hooks. Hook failures are
// reported to the host and never interrupt dispatch.
func (p *Properties) emit(ctx context.Context, event activity.Event) {
	if !p.cfg.emitter.Enabled() {
		return
	}
	if err := p.cfg.emitter.Emit(ctx, event); err != nil {
		p.host.Warn("props: activity: " + err.Error())
	}
}
