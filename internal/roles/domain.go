package roles

const (
	msgCreateAbove      = "You cannot create a role with higher priority than your own role"
	msgEditAbove        = "You cannot edit a role with higher priority than your own role"
	msgLevelAbove       = "You cannot set a hierarchy level higher than your own role"
	msgRenameSystem     = "Cannot rename system roles"
	msgDeleteAbove      = "You cannot delete a role with higher priority than your own role"
	msgDeleteSystem     = "Cannot delete system roles"
	msgPermissionsAbove = "You cannot modify permissions of a role with higher priority than your own role"
	msgUngranted        = "You cannot grant permissions you do not possess: "
	msgRoleNotFound     = "Role not found"
	msgNameTaken        = "The name has already been taken."
	msgUnknownPerms     = "The selected permissions are invalid: "
)

// CreateInput describes a new custom role.
type CreateInput struct {
	Name           string  `json:"name" validate:"required,max=255"`
	HierarchyLevel *int    `json:"hierarchy_level" validate:"omitempty,min=1,max=99"`
	Description    *string `json:"description"`
	Icon           *string `json:"icon" validate:"omitempty,max=255"`
}

// UpdateInput carries the fields to change; nil fields are left as is.
type UpdateInput struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=255"`
	HierarchyLevel *int    `json:"hierarchy_level" validate:"omitempty,min=1,max=99"`
	Description    *string `json:"description"`
	Icon           *string `json:"icon" validate:"omitempty,max=255"`
}

// SyncInput is the full replacement permission set for a role.
type SyncInput struct {
	Permissions []string `json:"permissions" validate:"required,dive,required,max=255"`
}
