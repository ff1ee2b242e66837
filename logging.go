package props

import "time"

// Op names the operation an AssignmentLogEvent describes.
type Op string

const (
	// OpAssign is one run of the assignment chain.
	OpAssign Op = "assign"
	// OpRescope is one property moved by SetScope.
	OpRescope Op = "rescope"
)

// AssignmentLogEvent describes one assignment or scope migration.
type AssignmentLogEvent struct {
	Op       Op
	NodeID   string
	Property string
	Source   Source
	Scope    ScopeName
	From     ScopeName // previous scope, rescope only
	Duration time.Duration
	Err      error
}

// Logger records assignment events.
type Logger interface {
	LogAssignment(AssignmentLogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(AssignmentLogEvent)

// LogAssignment implements Logger.
func (f LoggerFunc) LogAssignment(event AssignmentLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) LogAssignment(AssignmentLogEvent) {}

// MultiLogger fans events out to each non-nil logger.
func MultiLogger(loggers ...Logger) Logger {
	out := make(multiLogger, 0, len(loggers))
	for _, logger := range loggers {
		if logger != nil {
			out = append(out, logger)
		}
	}
	return out
}

type multiLogger []Logger

func (m multiLogger) LogAssignment(event AssignmentLogEvent) {
	for _, logger := range m {
		logger.LogAssignment(event)
	}
}

// WithLogger attaches an assignment logger.
func WithLogger(logger Logger) Option {
	return func(cfg *propsConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

func (p *Properties) logger() Logger {
	if p.cfg.logger != nil {
		return p.cfg.logger
	}
	return noopLogger{}
}
