package governance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/odyssey-erp/odyssey-hrms/internal/audit/http"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Handler serves /admin/roles governance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	audit   *audithttp.Handler
}

// NewHandler builds the governance handler. Audit log routes share its permission gate.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: service,
		rbac:    rbac,
		audit:   audithttp.NewHandler(logger, service, nil),
	}
}

// MountRoutes registers governance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermRolesAudit))
		r.Get("/inventory", h.inventory)
		r.Get("/health", h.health)
		h.audit.MountRoutes(r)
	})
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Inventory(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, rows, "Role inventory retrieved successfully")
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Health(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, report, "Role health metrics retrieved successfully")
}
