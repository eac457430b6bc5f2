package rbac

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims a permission or role name and puts it in NFC. Names are
// otherwise compared exactly, as stored: "view_reports" and "VIEW_REPORTS"
// are different permissions.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizeNames normalizes and dedupes names preserving first-seen order.
// Blank entries are dropped.
func NormalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = NormalizeName(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// HasPermission reports whether p holds perm.
func HasPermission(p Principal, perm string) bool {
	return len(MissingPermissions(p, []string{perm})) == 0
}

// MissingPermissions returns the requested names p does not hold, in request order.
func MissingPermissions(p Principal, requested []string) []string {
	held := make(map[string]struct{}, len(p.Permissions))
	for _, perm := range p.Permissions {
		held[NormalizeName(perm)] = struct{}{}
	}
	var missing []string
	for _, name := range NormalizeNames(requested) {
		if _, ok := held[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := permissionSet(granted)
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

func permissionSet(granted []string) map[string]struct{} {
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[NormalizeName(p)] = struct{}{}
	}
	return set
}
