package rbac

import "time"

const (
	// TopAuthorityLevel is the hierarchy level that dominates every other level.
	TopAuthorityLevel = 1
	// LowestAuthorityLevel is the effective level of a principal without roles.
	LowestAuthorityLevel = 99
	// GuardWeb is the only guard roles and permissions are issued under.
	GuardWeb = "web"
)

// Role represents a named permission grouping ranked by hierarchy level.
type Role struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	GuardName        string    `json:"guard_name"`
	HierarchyLevel   int       `json:"hierarchy_level"`
	IsSystem         bool      `json:"is_system"`
	Description      string    `json:"description"`
	Icon             string    `json:"icon"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Permissions      []string  `json:"permissions,omitempty"`
	PermissionsCount int       `json:"permissions_count"`
	UsersCount       int       `json:"users_count"`
}

// Ref reduces the role to the fields needed for hierarchy decisions.
func (r Role) Ref() RoleRef {
	return RoleRef{ID: r.ID, Name: r.Name, HierarchyLevel: r.HierarchyLevel, Icon: r.Icon}
}

// Snapshot is the audit representation of a role.
func (r Role) Snapshot() map[string]any {
	snap := map[string]any{
		"id":              r.ID,
		"name":            r.Name,
		"hierarchy_level": r.HierarchyLevel,
		"is_system":       r.IsSystem,
		"description":     r.Description,
		"icon":            r.Icon,
	}
	if r.Permissions != nil {
		snap["permissions"] = r.Permissions
	}
	return snap
}

// Permission represents an atomic capability.
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	GuardName   string    `json:"guard_name"`
	Description string    `json:"description"`
	RolesCount  int       `json:"roles_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleRef is the minimal view of a role held by a principal.
type RoleRef struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	HierarchyLevel int    `json:"hierarchy_level"`
	Icon           string `json:"icon,omitempty"`
}

// Principal is a user as seen by authorization checks: scope, roles and the
// union of permissions granted directly or through roles.
type Principal struct {
	ID          int64
	Name        string
	Email       string
	OrgID       *int64
	CompanyID   *int64
	Roles       []RoleRef
	Permissions []string
}

// RoleNames returns the names of the principal's roles in stored order.
func (p Principal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, role := range p.Roles {
		names = append(names, role.Name)
	}
	return names
}
