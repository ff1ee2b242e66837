package props

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownProperty indicates an operation referenced an undeclared name.
	ErrUnknownProperty = errors.New("props: unknown property")
	// ErrInvalidHandler indicates a nil handler was registered.
	ErrInvalidHandler = errors.New("props: handler is not a function")
	// ErrInvalidScope indicates a scope outside node, flow and global.
	ErrInvalidScope = errors.New("props: scope is not allowed")
	// ErrInvalidStage indicates a stage outside pre, store and post.
	ErrInvalidStage = errors.New("props: stage is not allowed")
	// ErrRejected is returned by guard handlers to stop an assignment quietly.
	ErrRejected = errors.New("props: assignment rejected")
)

// PropertyError captures the operation and property a rejection applies to.
type PropertyError struct {
	Op       string
	Property string
	Scope    string
	Err      error
}

func (e *PropertyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%v: op=%s", e.Err, e.Op))
	if e.Property != "" {
		b.WriteString(fmt.Sprintf(" property=%q", e.Property))
	}
	if e.Scope != "" {
		b.WriteString(fmt.Sprintf(" scope=%q", e.Scope))
	}
	return b.String()
}

func (e *PropertyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageError reports a handler failure for one stage of an assignment.
type StageError struct {
	Stage    Stage
	Property string
	Err      error
}

func (e *StageError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("props: %s handler for %q: %v", e.Stage, e.Property, e.Err)
}

func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newPropertyError(op, property string, scope ScopeName, err error) *PropertyError {
	return &PropertyError{
		Op:       op,
		Property: property,
		Scope:    string(scope),
		Err:      err,
	}
}

// reject reports err on the host's diagnostic channel and hands it back so
// callers can return it.
func (p *Properties) reject(err error) error {
	if err == nil {
		return nil
	}
	p.host.Warn(err.Error())
	return err
}
