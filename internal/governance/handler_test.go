package governance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

type fixedSessions struct{}

func (fixedSessions) Resolve(_ context.Context, token string) (int64, error) {
	switch token {
	case "auditor":
		return 2, nil
	case "staff":
		return 3, nil
	}
	return 0, shared.ErrUnauthenticated
}

type fixedPrincipals struct{}

func (fixedPrincipals) LoadPrincipal(_ context.Context, id int64) (rbac.Principal, error) {
	if id == 2 {
		return rbac.Principal{ID: 2, Roles: []rbac.RoleRef{{ID: 2, Name: "hr", HierarchyLevel: 5}}, Permissions: []string{shared.PermRolesAudit}}, nil
	}
	return rbac.Principal{ID: 3, Roles: []rbac.RoleRef{{ID: 4, Name: "staff", HierarchyLevel: 50}}}, nil
}

func serve(t *testing.T, token, path string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	page := audit.Page{Data: []audit.Entry{}, Meta: shared.NewPagination(1, 20, 0).Meta()}
	mw := rbac.Middleware{Sessions: fixedSessions{}, Principals: fixedPrincipals{}}
	h := NewHandler(nil, NewService(seedRoles(), stubAudits{page: page}, nil, nil, Config{}), mw)

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	r.Route("/admin/roles", h.MountRoutes)

	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body map[string]json.RawMessage
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	}
	return rec, body
}

func TestHealthEndpoint(t *testing.T) {
	rec, body := serve(t, "auditor", "/admin/roles/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Role health metrics retrieved successfully"`, string(body["message"]))

	var report Report
	require.NoError(t, json.Unmarshal(body["data"], &report))
	assert.Equal(t, 2, report.Summary.TotalRoles)
	assert.Equal(t, 95, report.HealthScore)
}

func TestInventoryEndpoint(t *testing.T) {
	rec, body := serve(t, "auditor", "/admin/roles/inventory")
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []InventoryRole
	require.NoError(t, json.Unmarshal(body["data"], &rows))
	assert.Len(t, rows, 2)
}

func TestAuditLogsMountedUnderGovernance(t *testing.T) {
	rec, body := serve(t, "auditor", "/admin/roles/audit-logs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"Role audit logs retrieved successfully"`, string(body["message"]))
}

func TestGovernanceRequiresAuditPermission(t *testing.T) {
	rec, _ := serve(t, "staff", "/admin/roles/health")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = serve(t, "staff", "/admin/roles/audit-logs/export.csv")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
