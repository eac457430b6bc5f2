package users

import "github.com/odyssey-erp/odyssey-hrms/internal/rbac"

const (
	msgUserNotFound   = "User not found"
	msgAccessOutside  = "You cannot access users outside your organization/company"
	msgManageOutside  = "You cannot manage users outside your organization/company"
	msgManageAbove    = "You cannot manage roles for a user with higher priority than your own role"
	msgAssignAboveAny = "You cannot assign roles with higher priority than your own: "
	msgAssignAbove    = "You cannot assign a role with higher priority than your own role"
	msgRemoveAbove    = "You cannot remove a role with higher priority than your own role"
	msgUnknownRoles   = "The selected roles are invalid: "
)

// User is the administrative view of a user and their roles.
type User struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	Email           string         `json:"email"`
	OrgID           *int64         `json:"org_id"`
	CompanyID       *int64         `json:"company_id"`
	Roles           []rbac.RoleRef `json:"roles"`
	PrimaryRole     *string        `json:"primary_role"`
	PrimaryRoleIcon *string        `json:"primary_role_icon"`
	RolesList       []string       `json:"roles_list"`
	PermissionsList []string       `json:"permissions_list,omitempty"`
}

// NewUser projects a principal into the view. Roles are expected in
// hierarchy order so the first one is the primary role.
func NewUser(p rbac.Principal, withPermissions bool) User {
	u := User{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		OrgID:     p.OrgID,
		CompanyID: p.CompanyID,
		Roles:     p.Roles,
		RolesList: p.RoleNames(),
	}
	if u.Roles == nil {
		u.Roles = []rbac.RoleRef{}
	}
	if len(p.Roles) > 0 {
		primary := p.Roles[0]
		for _, role := range p.Roles[1:] {
			if role.HierarchyLevel < primary.HierarchyLevel {
				primary = role
			}
		}
		u.PrimaryRole = &primary.Name
		u.PrimaryRoleIcon = &primary.Icon
	}
	if withPermissions {
		u.PermissionsList = p.Permissions
		if u.PermissionsList == nil {
			u.PermissionsList = []string{}
		}
	}
	return u
}

// ListFilter narrows the user listing.
type ListFilter struct {
	Search  string
	Role    string
	Page    int
	PerPage int
}

// AssignInput replaces the full role set of a user.
type AssignInput struct {
	Roles []string `json:"roles" validate:"required,dive,required,max=255"`
}

// RoleInput names a single role to add or remove.
type RoleInput struct {
	Role string `json:"role" validate:"required,max=255"`
}
