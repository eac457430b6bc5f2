package audit

import (
	"encoding/json"
	"errors"
	"time"
)

// Action names the kind of access mutation an entry records.
type Action string

const (
	ActionRoleCreated       Action = "role_created"
	ActionRoleUpdated       Action = "role_updated"
	ActionRoleDeleted       Action = "role_deleted"
	ActionPermissionsSynced Action = "permissions_synced"
	ActionUserRolesAssigned Action = "user_roles_assigned"
	ActionUserRoleAdded     Action = "user_role_added"
	ActionUserRoleRemoved   Action = "user_role_removed"
)

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	switch a {
	case ActionRoleCreated, ActionRoleUpdated, ActionRoleDeleted, ActionPermissionsSynced,
		ActionUserRolesAssigned, ActionUserRoleAdded, ActionUserRoleRemoved:
		return true
	}
	return false
}

// Target types recorded in auditable_type.
const (
	TargetRole = "role"
	TargetUser = "user"
)

// Record is an entry to be written in the same transaction as its mutation.
type Record struct {
	ActorID    int64
	Action     Action
	TargetType string
	TargetID   int64
	Before     map[string]any
	After      map[string]any
}

// Validate checks the record before it is written.
func (r Record) Validate() error {
	if r.ActorID <= 0 {
		return errors.New("audit: actor required")
	}
	if !r.Action.Valid() {
		return errors.New("audit: unknown action " + string(r.Action))
	}
	if r.TargetType != TargetRole && r.TargetType != TargetUser {
		return errors.New("audit: unknown target type " + r.TargetType)
	}
	if r.TargetID <= 0 {
		return errors.New("audit: target required")
	}
	return nil
}

// Actor is the display info joined onto an entry.
type Actor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Entry is one row of role_audit_logs.
type Entry struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Action        Action          `json:"action"`
	AuditableType string          `json:"auditable_type"`
	AuditableID   int64           `json:"auditable_id"`
	OldValues     json.RawMessage `json:"old_values"`
	NewValues     json.RawMessage `json:"new_values"`
	CreatedAt     time.Time       `json:"created_at"`
	User          *Actor          `json:"user"`
}

// Filters narrows audit queries. Zero values match everything.
type Filters struct {
	Action     Action
	TargetType string
	From       time.Time
	To         time.Time
}
