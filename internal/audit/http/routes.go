package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/odyssey-hrms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// CSV exports scan the whole filtered log, so they get their own budget per caller.
const (
	exportLimit  = 10
	exportWindow = time.Minute
)

// MountRoutes registers the audit listing and the CSV export.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	r.Get("/audit-logs", h.handleList)
	r.With(exportLimiter()).Get("/audit-logs/export.csv", h.handleExport)
}

func exportLimiter() func(http.Handler) http.Handler {
	return httprate.Limit(exportLimit, exportWindow,
		httprate.WithKeyFuncs(callerKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "Too many export requests")
		}),
	)
}

// callerKey buckets authenticated callers by user id and falls back to the client IP.
func callerKey(r *http.Request) (string, error) {
	if id, ok := shared.UserIDFromContext(r.Context()); ok {
		return "audit-export:user:" + strconv.FormatInt(id, 10), nil
	}
	ip, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "audit-export:ip:" + ip, nil
}
