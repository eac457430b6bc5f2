package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeNames(t *testing.T) {
	got := NormalizeNames([]string{" view_reports ", "", "VIEW_REPORTS", "manage_payroll", "view_reports"})
	assert.Equal(t, []string{"view_reports", "VIEW_REPORTS", "manage_payroll"}, got)

	composed := NormalizeNames([]string{"caf\u00e9", "cafe\u0301"})
	assert.Equal(t, []string{"caf\u00e9"}, composed)
}

func TestMissingPermissions(t *testing.T) {
	p := Principal{Permissions: []string{"view_reports", "roles.view"}}

	assert.Equal(t, []string{"manage_payroll"}, MissingPermissions(p, []string{"view_reports", "manage_payroll"}))
	assert.Empty(t, MissingPermissions(p, []string{" roles.view"}))
	assert.Empty(t, MissingPermissions(p, nil))
	assert.True(t, HasPermission(p, "view_reports"))
	assert.False(t, HasPermission(p, "VIEW_REPORTS"))
	assert.Equal(t, []string{"Roles.View"}, MissingPermissions(p, []string{"Roles.View"}))
	assert.False(t, HasPermission(p, "users.edit"))
}
