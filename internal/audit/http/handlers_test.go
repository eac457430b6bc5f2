package audithttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

type stubLogService struct {
	page        audit.Page
	exportRows  []audit.Entry
	lastFilters audit.Filters
	lastPage    int
	lastPerPage int
}

func (s *stubLogService) AuditLogs(_ context.Context, filters audit.Filters, page, perPage int) (audit.Page, error) {
	s.lastFilters, s.lastPage, s.lastPerPage = filters, page, perPage
	return s.page, nil
}

func (s *stubLogService) ExportAuditLogs(_ context.Context, filters audit.Filters) ([]audit.Entry, error) {
	s.lastFilters = filters
	return s.exportRows, nil
}

func newRouter(svc *stubLogService) http.Handler {
	r := chi.NewRouter()
	NewHandler(nil, svc, nil).MountRoutes(r)
	return r
}

func TestListEnvelope(t *testing.T) {
	svc := &stubLogService{page: audit.Page{
		Data: []audit.Entry{{ID: 3, UserID: 1, Action: audit.ActionRoleCreated, AuditableType: audit.TargetRole, AuditableID: 9}},
		Meta: shared.NewPagination(1, 20, 1).Meta(),
	}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-logs?per_page=5&page=2&action=role_created", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, svc.lastPage)
	assert.Equal(t, 5, svc.lastPerPage)
	assert.Equal(t, audit.ActionRoleCreated, svc.lastFilters.Action)

	var body struct {
		Success bool       `json:"success"`
		Data    audit.Page `json:"data"`
		Message string     `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Role audit logs retrieved successfully", body.Message)
	require.Len(t, body.Data.Data, 1)
	assert.Equal(t, 1, body.Data.Meta.LastPage)
}

func TestListRejectsUnknownAction(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubLogService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-logs?action=role_renamed", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListRejectsInvertedRange(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(&stubLogService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-logs?from=2026-02-01&to=2026-01-01", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestExportCSV(t *testing.T) {
	svc := &stubLogService{exportRows: []audit.Entry{{
		ID: 1, UserID: 1, Action: audit.ActionUserRoleAdded, AuditableType: audit.TargetUser, AuditableID: 4,
		CreatedAt: time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC),
	}}}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv?type=user", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "user", svc.lastFilters.TargetType)
	assert.True(t, strings.Contains(rec.Body.String(), "user_role_added"))
}

func TestExportRateLimited(t *testing.T) {
	router := newRouter(&stubLogService{})
	var last int
	for i := 0; i < exportLimit+1; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/audit-logs/export.csv", nil)
		req.RemoteAddr = "10.1.1.1:1234"
		router.ServeHTTP(rec, req)
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
