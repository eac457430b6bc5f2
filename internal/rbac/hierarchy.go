package rbac

// EffectiveLevel returns the most privileged (lowest) hierarchy level across
// roles, or LowestAuthorityLevel when the principal holds none.
func EffectiveLevel(p Principal) int {
	return levelOf(p.Roles)
}

func levelOf(roles []RoleRef) int {
	level := LowestAuthorityLevel
	for _, role := range roles {
		if role.HierarchyLevel < level {
			level = role.HierarchyLevel
		}
	}
	return level
}

// IsTopAuthority reports whether the principal holds a level 1 role.
func IsTopAuthority(p Principal) bool {
	return EffectiveLevel(p) == TopAuthorityLevel
}

// Dominates reports whether an actor at principalLevel may act on something
// ranked at targetLevel. Lower numbers carry more authority.
func Dominates(principalLevel, targetLevel int) bool {
	return principalLevel == TopAuthorityLevel || targetLevel > principalLevel
}

// CanManageLevel applies Dominates with the principal's effective level.
func CanManageLevel(p Principal, targetLevel int) bool {
	return Dominates(EffectiveLevel(p), targetLevel)
}

// ValidLevel reports whether level is inside the accepted hierarchy range.
func ValidLevel(level int) bool {
	return level >= TopAuthorityLevel && level <= LowestAuthorityLevel
}
