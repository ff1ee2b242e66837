package activity

import (
	"context"
	"strings"
)

// DefaultChannel is applied to events emitted without a channel.
const DefaultChannel = "properties"

// Config controls activity emission.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter applies defaults and forwards events to hooks.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter constructs an emitter. It is enabled only when cfg.Enabled is
// set and at least one non-nil hook is supplied.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	compact := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			compact = append(compact, hook)
		}
	}
	return &Emitter{
		hooks:   compact,
		enabled: cfg.Enabled && len(compact) > 0,
		channel: channel,
	}
}

// Enabled reports whether Emit will reach any hook. A nil emitter is disabled.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Channel returns the default channel.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Emit forwards event to the hooks, filling in the default channel.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}
