package audithttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

const maxDateRangeHours = 24 * 366

// LogService defines the business contract for audit log reads.
type LogService interface {
	AuditLogs(ctx context.Context, filters audit.Filters, page, perPage int) (audit.Page, error)
	ExportAuditLogs(ctx context.Context, filters audit.Filters) ([]audit.Entry, error)
}

// Exporter writes audit log exports.
type Exporter interface {
	WriteCSV(entries []audit.Entry) ([]byte, error)
}

// Handler serves the role audit log.
type Handler struct {
	logger   *slog.Logger
	service  LogService
	exporter Exporter
}

// NewHandler constructs the audit log handler.
func NewHandler(logger *slog.Logger, service LogService, exporter Exporter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = audit.CSVExporter{}
	}
	return &Handler{logger: logger, service: service, exporter: exporter}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page := queryInt(r, "page")
	perPage := queryInt(r, "per_page")
	result, err := h.service.AuditLogs(r.Context(), filters, page, perPage)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, result, "Role audit logs retrieved successfully")
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	entries, err := h.service.ExportAuditLogs(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	csvBytes, err := h.exporter.WriteCSV(entries)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"role-audit-logs.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	var filters audit.Filters
	if v := strings.TrimSpace(q.Get("action")); v != "" {
		action := audit.Action(v)
		if !action.Valid() {
			return audit.Filters{}, shared.ValidationFields("The given data was invalid", map[string]string{"action": "unknown action"})
		}
		filters.Action = action
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		if v != audit.TargetRole && v != audit.TargetUser {
			return audit.Filters{}, shared.ValidationFields("The given data was invalid", map[string]string{"type": "must be role or user"})
		}
		filters.TargetType = v
	}
	var err error
	if filters.From, err = parseDate(q.Get("from")); err != nil {
		return audit.Filters{}, shared.ValidationFields("The given data was invalid", map[string]string{"from": "expected YYYY-MM-DD"})
	}
	if filters.To, err = parseDate(q.Get("to")); err != nil {
		return audit.Filters{}, shared.ValidationFields("The given data was invalid", map[string]string{"to": "expected YYYY-MM-DD"})
	}
	if !filters.From.IsZero() && !filters.To.IsZero() {
		if filters.From.After(filters.To) || filters.To.Sub(filters.From) > maxDateRangeHours*time.Hour {
			return audit.Filters{}, shared.ValidationFields("The given data was invalid", map[string]string{"range": "invalid date range"})
		}
	}
	return filters, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", raw)
}

func queryInt(r *http.Request, key string) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return v
}
