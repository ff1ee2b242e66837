package activity

import (
	"strings"
	"time"
)

const (
	VerbPropertyAssigned = "property.assigned"
	VerbPropertyRescoped = "property.rescoped"

	ObjectTypeProperty = "property"
)

// ScopeContext names the scope a property lives in and, for rescopes, the
// scope it left.
type ScopeContext struct {
	Name     string
	Previous string
}

// PropertyEventInput carries the fields shared by property events.
type PropertyEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	NodeID     string
	Channel    string
	Metadata   map[string]any
	Property   string
	Source     string
	OldValue   any
	NewValue   any
	Scope      ScopeContext
	OccurredAt time.Time
}

// BuildPropertyAssignedEvent describes a completed assignment chain.
func BuildPropertyAssignedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbPropertyAssigned, input)
}

// BuildPropertyRescopedEvent describes a value migrated between scopes.
func BuildPropertyRescopedEvent(input PropertyEventInput) Event {
	return buildPropertyEvent(VerbPropertyRescoped, input)
}

func buildPropertyEvent(verb string, input PropertyEventInput) Event {
	meta := cloneMap(input.Metadata)
	if meta == nil {
		meta = map[string]any{}
	}
	property := strings.TrimSpace(input.Property)
	if property != "" {
		meta["property"] = property
	}
	if input.Source != "" {
		meta["source"] = input.Source
	}
	if input.Scope.Name != "" {
		meta["scope"] = input.Scope.Name
	}
	if input.Scope.Previous != "" {
		meta["previous_scope"] = input.Scope.Previous
	}
	if input.OldValue != nil {
		meta["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		meta["new_value"] = input.NewValue
	}
	if len(meta) == 0 {
		meta = nil
	}

	nodeID := strings.TrimSpace(input.NodeID)
	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		NodeID:     nodeID,
		ObjectType: ObjectTypeProperty,
		ObjectID:   propertyObjectID(nodeID, property),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   meta,
		OccurredAt: input.OccurredAt,
	}
}

// propertyObjectID is "<node>/<property>", falling back to the property name
// and then the object type.
func propertyObjectID(nodeID, property string) string {
	switch {
	case nodeID != "" && property != "":
		return nodeID + "/" + property
	case property != "":
		return property
	default:
		return ObjectTypeProperty
	}
}
