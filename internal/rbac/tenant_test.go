package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func id(v int64) *int64 { return &v }

func TestCanAccessUser(t *testing.T) {
	admin := principalWithLevels(1)
	admin.OrgID = id(1)

	hr := principalWithLevels(5)
	hr.OrgID = id(1)
	hr.CompanyID = id(7)

	sameCompany := Principal{ID: 2, OrgID: id(1), CompanyID: id(7)}
	otherCompany := Principal{ID: 3, OrgID: id(1), CompanyID: id(8)}
	otherOrg := Principal{ID: 4, OrgID: id(2), CompanyID: id(7)}
	unscoped := Principal{ID: 5}

	assert.True(t, CanAccessUser(admin, otherOrg))
	assert.True(t, CanAccessUser(hr, sameCompany))
	assert.False(t, CanAccessUser(hr, otherCompany))
	assert.False(t, CanAccessUser(hr, otherOrg))
	assert.False(t, CanAccessUser(hr, unscoped))

	orgOnly := principalWithLevels(5)
	orgOnly.OrgID = id(1)
	assert.True(t, CanAccessUser(orgOnly, otherCompany))
	assert.False(t, CanAccessUser(orgOnly, otherOrg))

	noScope := principalWithLevels(10)
	assert.True(t, CanAccessUser(noScope, otherOrg))
}

func TestCanManageUser(t *testing.T) {
	hr := principalWithLevels(5)

	assert.True(t, CanManageUser(hr, Principal{ID: 9}))
	assert.True(t, CanManageUser(hr, principalWithLevels(10)))
	assert.False(t, CanManageUser(hr, principalWithLevels(5)))
	assert.False(t, CanManageUser(hr, principalWithLevels(50, 3)))
	assert.True(t, CanManageUser(principalWithLevels(1), principalWithLevels(1)))
}

func TestScopeFilters(t *testing.T) {
	assert.Empty(t, TenantScope(principalWithLevels(1)).Filters())

	hr := principalWithLevels(5)
	hr.OrgID = id(3)
	assert.Equal(t, map[string]int64{"org_id": 3}, TenantScope(hr).Filters())

	hr.CompanyID = id(4)
	assert.Equal(t, map[string]int64{"org_id": 3, "company_id": 4}, TenantScope(hr).Filters())
}
