package governance

import (
	"sort"
	"time"

	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
)

// DefaultOverprivilegedThreshold is the permission count above which a
// non-top-authority role is reported as overprivileged.
const DefaultOverprivilegedThreshold = 50

// InventoryRole is one row of the role inventory.
type InventoryRole struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Icon             string    `json:"icon"`
	HierarchyLevel   int       `json:"hierarchy_level"`
	IsSystem         bool      `json:"is_system"`
	UsersCount       int       `json:"users_count"`
	PermissionsCount int       `json:"permissions_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UnusedRole is a custom role nobody holds.
type UnusedRole struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	PermissionsCount int       `json:"permissions_count"`
	CreatedAt        time.Time `json:"created_at"`
}

// OverprivilegedRole is a role below top authority carrying too many permissions.
type OverprivilegedRole struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	HierarchyLevel   int    `json:"hierarchy_level"`
	PermissionsCount int    `json:"permissions_count"`
	UsersCount       int    `json:"users_count"`
}

// OrphanPermission is a permission no role owns.
type OrphanPermission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// LevelBucket groups roles sharing a hierarchy level.
type LevelBucket struct {
	HierarchyLevel int `json:"hierarchy_level"`
	Count          int `json:"count"`
	TotalUsers     int `json:"total_users"`
}

// Summary carries the headline counts of a health report.
type Summary struct {
	TotalRoles               int `json:"total_roles"`
	SystemRoles              int `json:"system_roles"`
	CustomRoles              int `json:"custom_roles"`
	TotalPermissions         int `json:"total_permissions"`
	UnusedRolesCount         int `json:"unused_roles_count"`
	OverprivilegedRolesCount int `json:"overprivileged_roles_count"`
	OrphanPermissionsCount   int `json:"orphan_permissions_count"`
}

// Report is the governance health report.
type Report struct {
	Summary             Summary              `json:"summary"`
	UnusedRoles         []UnusedRole         `json:"unused_roles"`
	OverprivilegedRoles []OverprivilegedRole `json:"overprivileged_roles"`
	OrphanPermissions   []OrphanPermission   `json:"orphan_permissions"`
	RoleDistribution    []LevelBucket        `json:"role_distribution"`
	HealthScore         int                  `json:"health_score"`
	GeneratedAt         time.Time            `json:"generated_at"`
}

// Inventory projects roles, already ordered by level then name, into inventory rows.
func Inventory(roles []rbac.Role) []InventoryRole {
	out := make([]InventoryRole, 0, len(roles))
	for _, role := range roles {
		out = append(out, InventoryRole{
			ID:               role.ID,
			Name:             role.Name,
			Description:      role.Description,
			Icon:             role.Icon,
			HierarchyLevel:   role.HierarchyLevel,
			IsSystem:         role.IsSystem,
			UsersCount:       role.UsersCount,
			PermissionsCount: role.PermissionsCount,
			CreatedAt:        role.CreatedAt,
			UpdatedAt:        role.UpdatedAt,
		})
	}
	return out
}

// BuildReport derives the health report from live role and permission counts.
func BuildReport(roles []rbac.Role, perms []rbac.Permission, threshold int) Report {
	if threshold <= 0 {
		threshold = DefaultOverprivilegedThreshold
	}
	report := Report{
		UnusedRoles:         []UnusedRole{},
		OverprivilegedRoles: []OverprivilegedRole{},
		OrphanPermissions:   []OrphanPermission{},
		RoleDistribution:    []LevelBucket{},
	}

	buckets := make(map[int]*LevelBucket)
	for _, role := range roles {
		report.Summary.TotalRoles++
		if role.IsSystem {
			report.Summary.SystemRoles++
		} else {
			report.Summary.CustomRoles++
		}
		if !role.IsSystem && role.UsersCount == 0 {
			report.UnusedRoles = append(report.UnusedRoles, UnusedRole{
				ID:               role.ID,
				Name:             role.Name,
				PermissionsCount: role.PermissionsCount,
				CreatedAt:        role.CreatedAt,
			})
		}
		if role.HierarchyLevel > rbac.TopAuthorityLevel && role.PermissionsCount > threshold {
			report.OverprivilegedRoles = append(report.OverprivilegedRoles, OverprivilegedRole{
				ID:               role.ID,
				Name:             role.Name,
				HierarchyLevel:   role.HierarchyLevel,
				PermissionsCount: role.PermissionsCount,
				UsersCount:       role.UsersCount,
			})
		}
		bucket, ok := buckets[role.HierarchyLevel]
		if !ok {
			bucket = &LevelBucket{HierarchyLevel: role.HierarchyLevel}
			buckets[role.HierarchyLevel] = bucket
		}
		bucket.Count++
		bucket.TotalUsers += role.UsersCount
	}
	for _, bucket := range buckets {
		report.RoleDistribution = append(report.RoleDistribution, *bucket)
	}
	sort.Slice(report.RoleDistribution, func(i, j int) bool {
		return report.RoleDistribution[i].HierarchyLevel < report.RoleDistribution[j].HierarchyLevel
	})

	for _, perm := range perms {
		report.Summary.TotalPermissions++
		if perm.RolesCount == 0 {
			report.OrphanPermissions = append(report.OrphanPermissions, OrphanPermission{
				ID:        perm.ID,
				Name:      perm.Name,
				CreatedAt: perm.CreatedAt,
			})
		}
	}

	report.Summary.UnusedRolesCount = len(report.UnusedRoles)
	report.Summary.OverprivilegedRolesCount = len(report.OverprivilegedRoles)
	report.Summary.OrphanPermissionsCount = len(report.OrphanPermissions)
	report.HealthScore = HealthScore(report.Summary)
	return report
}

// HealthScore is 100 minus 5 per unused role, 10 per overprivileged role and
// one per orphan permission up to ten, floored at zero.
func HealthScore(s Summary) int {
	orphans := s.OrphanPermissionsCount
	if orphans > 10 {
		orphans = 10
	}
	score := 100 - 5*s.UnusedRolesCount - 10*s.OverprivilegedRolesCount - orphans
	if score < 0 {
		return 0
	}
	return score
}
