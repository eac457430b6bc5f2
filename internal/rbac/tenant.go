package rbac

// Scope narrows which users a principal may see. Nil dimensions are unrestricted.
type Scope struct {
	Unrestricted bool
	OrgID        *int64
	CompanyID    *int64
}

// TenantScope derives the visibility scope of caller.
func TenantScope(caller Principal) Scope {
	if IsTopAuthority(caller) {
		return Scope{Unrestricted: true}
	}
	return Scope{OrgID: caller.OrgID, CompanyID: caller.CompanyID}
}

// Allows reports whether target falls within the scope.
func (s Scope) Allows(target Principal) bool {
	if s.Unrestricted {
		return true
	}
	if s.OrgID != nil && !sameID(s.OrgID, target.OrgID) {
		return false
	}
	if s.CompanyID != nil && !sameID(s.CompanyID, target.CompanyID) {
		return false
	}
	return true
}

// Filters returns the column constraints a listing query must apply.
func (s Scope) Filters() map[string]int64 {
	filters := make(map[string]int64, 2)
	if s.Unrestricted {
		return filters
	}
	if s.OrgID != nil {
		filters["org_id"] = *s.OrgID
	}
	if s.CompanyID != nil {
		filters["company_id"] = *s.CompanyID
	}
	return filters
}

// CanAccessUser reports whether caller may see target at all.
func CanAccessUser(caller, target Principal) bool {
	return TenantScope(caller).Allows(target)
}

// CanManageUser reports whether caller outranks target. Users without roles
// are manageable by anyone who can access them.
func CanManageUser(caller, target Principal) bool {
	if IsTopAuthority(caller) {
		return true
	}
	if len(target.Roles) == 0 {
		return true
	}
	return EffectiveLevel(target) > EffectiveLevel(caller)
}

func sameID(a, b *int64) bool {
	return b != nil && *a == *b
}
