package jobs

import (
	"fmt"
	"strings"
)

// EventType of a record change
type EventType string

// enum of all event types
const (
	EventCreated EventType = "created"
	EventStatus  EventType = "status"
	EventDeleted EventType = "deleted"
)

// Event describes a successful mutation
type Event struct {
	Type       EventType
	Record     Record
	PrevStatus string // set for EventStatus only
}

func (e Event) String() string {
	switch e.Type {
	case EventCreated:
		return fmt.Sprintf("job %q added (%s), source: %s", e.Record.JobRole, e.Record.ID, e.Record.Source)
	case EventStatus:
		return fmt.Sprintf("job %q (%s) status changed: %s -> %s", e.Record.JobRole, e.Record.ID, e.PrevStatus, e.Record.Status)
	case EventDeleted:
		return fmt.Sprintf("job %q (%s) deleted", e.Record.JobRole, e.Record.ID)
	default:
		return fmt.Sprintf("job %q (%s) %s", e.Record.JobRole, e.Record.ID, e.Type)
	}
}

// RolePolicy defines how many records DeleteByRole removes. Roles are not unique.
type RolePolicy string

// enum of role deletion policies
const (
	RolePolicyFirst RolePolicy = "first" // first match in storage order
	RolePolicyAll   RolePolicy = "all"   // every match
)

// ParseRolePolicy converts string to RolePolicy, case-insensitive
func ParseRolePolicy(s string) (RolePolicy, error) {
	switch RolePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case RolePolicyFirst:
		return RolePolicyFirst, nil
	case RolePolicyAll:
		return RolePolicyAll, nil
	}
	return "", fmt.Errorf("unknown role policy %q", s)
}
