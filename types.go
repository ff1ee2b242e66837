package props

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-props/pkg/activity"
	"go.opentelemetry.io/otel/trace"
)

// Properties manages a fixed set of named properties for one node. A value is
// not safe for concurrent use: the host delivers one message at a time.
type Properties struct {
	host         Host
	registry     registry
	global       HandlerSlots
	defaultScope ScopeName
	stores       Stores

	cfg propsConfig
}

// Handler runs one stage of an assignment. Returning an error stops the
// remaining stages of that assignment.
type Handler func(ctx context.Context, value any, msg Message, name string) error

// Stage identifies a slot in the assignment chain.
type Stage int

const (
	// StagePre runs before the value is stored.
	StagePre Stage = iota
	// StageStore replaces the built-in scoped write when overridden.
	StageStore
	// StagePost runs after the value is stored.
	StagePost
)

var stageOrder = [...]Stage{StagePre, StageStore, StagePost}

func (s Stage) String() string {
	switch s {
	case StagePre:
		return "pre"
	case StageStore:
		return "store"
	case StagePost:
		return "post"
	default:
		return "unknown"
	}
}

func (s Stage) valid() bool {
	return s >= StagePre && s <= StagePost
}

// ParseStage converts a stage label into a Stage. The empty string and
// "default" both name the store stage.
func ParseStage(value string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pre":
		return StagePre, nil
	case "", "default", "store":
		return StageStore, nil
	case "post":
		return StagePost, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidStage, value)
	}
}

// HandlerSlots holds at most one handler per stage. A nil field means the
// stage is not overridden.
type HandlerSlots struct {
	Pre   Handler
	Store Handler
	Post  Handler
}

func (s HandlerSlots) get(stage Stage) Handler {
	switch stage {
	case StagePre:
		return s.Pre
	case StageStore:
		return s.Store
	case StagePost:
		return s.Post
	default:
		return nil
	}
}

func (s *HandlerSlots) set(stage Stage, handler Handler) {
	switch stage {
	case StagePre:
		s.Pre = handler
	case StageStore:
		s.Store = handler
	case StagePost:
		s.Post = handler
	}
}

// Message is an inbound event. Only two shapes are recognised: named fields,
// and the topic/payload pair.
type Message map[string]any

const (
	// FieldTopic is the routing key checked by topic-match.
	FieldTopic = "topic"
	// FieldPayload carries the value for topic-match.
	FieldPayload = "payload"
)

// Topic returns the message topic when it is a string.
func (m Message) Topic() (string, bool) {
	raw, ok := m[FieldTopic]
	if !ok {
		return "", false
	}
	topic, ok := raw.(string)
	return topic, ok
}

// Payload returns the payload field, nil when missing.
func (m Message) Payload() any {
	return m[FieldPayload]
}

// Has reports whether field is present, even with a nil value.
func (m Message) Has(field string) bool {
	_, ok := m[field]
	return ok
}

// Source records where an assignment came from.
type Source int

const (
	// SourceDirect marks a call to Set.
	SourceDirect Source = iota
	// SourceConfig marks an initial value taken from config.
	SourceConfig
	// SourceDefault marks an initial value taken from the declared default.
	SourceDefault
	// SourceField marks a message field named after the property.
	SourceField
	// SourceTopic marks a topic/payload message.
	SourceTopic
	// SourceMigration marks a value carried across scopes by SetScope.
	SourceMigration
)

func (s Source) String() string {
	switch s {
	case SourceDirect:
		return "direct"
	case SourceConfig:
		return "config"
	case SourceDefault:
		return "default"
	case SourceField:
		return "field"
	case SourceTopic:
		return "topic"
	case SourceMigration:
		return "migration"
	default:
		return "unknown"
	}
}

// Assignment is one (property, value, message) tuple produced by Resolve.
type Assignment struct {
	Name    string
	Value   any
	Message Message
	Source  Source
}

// Host is the owning node's diagnostic channel.
type Host interface {
	Warn(message string)
}

// HostFunc adapts a function to Host.
type HostFunc func(message string)

// Warn implements Host.
func (f HostFunc) Warn(message string) {
	if f != nil {
		f(message)
	}
}

type noopHost struct{}

func (noopHost) Warn(string) {}

// RuleContext carries inputs needed when evaluating a rule expression.
type RuleContext struct {
	Value    any
	Message  Message
	Property string
	Scope    ScopeName
	Now      *time.Time
	Args     map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Message == nil {
		ctx.Message = Message{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) scopeLabel() string {
	if ctx.Scope != "" {
		return string(ctx.Scope)
	}
	return "unknown"
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}

// Option configures a Properties value at construction.
type Option func(*propsConfig)

type globalRegistration struct {
	stage   Stage
	handler Handler
}

type propsConfig struct {
	nodeID          string
	stores          Stores
	defaultScope    ScopeName
	globals         []globalRegistration
	logger          Logger
	evaluatorLogger EvaluatorLogger
	tracer          trace.Tracer
	emitter         *activity.Emitter
	programCache    ProgramCache
	functions       *FunctionRegistry
}

func applyOptions(opts []Option) propsConfig {
	cfg := propsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
