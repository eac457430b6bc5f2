package users

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-hrms/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Handler manages /admin/users endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers user administration routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermUsersView, shared.PermUsersEdit))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.showUser)
		r.Get("/{id}/roles", h.userRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermUsersEdit))
		r.Post("/{id}/roles", h.assignRoles)
		r.Post("/{id}/roles/add", h.addRole)
		r.Post("/{id}/roles/remove", h.removeRole)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.caller(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Role:    strings.TrimSpace(q.Get("role")),
		Page:    atoi(q.Get("page")),
		PerPage: atoi(q.Get("per_page")),
	}
	page, err := h.service.List(r.Context(), caller, filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, page, "Users retrieved successfully")
}

func (h *Handler) showUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), caller, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, "User retrieved successfully")
}

func (h *Handler) userRoles(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	roles, err := h.service.Roles(r.Context(), caller, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, roles, "User roles retrieved successfully")
}

func (h *Handler) assignRoles(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in AssignInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, err := h.service.AssignRoles(r.Context(), caller, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, "Roles assigned successfully")
}

func (h *Handler) addRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.service.AddRole, "Role added successfully")
}

func (h *Handler) removeRole(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.service.RemoveRole, "Role removed successfully")
}

type roleChange func(ctx context.Context, caller rbac.Principal, id int64, in RoleInput) (User, error)

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request, apply roleChange, message string) {
	caller, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var in RoleInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, err := apply(r.Context(), caller, id, in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.OK(w, http.StatusOK, user, message)
}

func (h *Handler) caller(w http.ResponseWriter, r *http.Request) (rbac.Principal, bool) {
	p, ok := rbac.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthenticated")
	}
	return p, ok
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (rbac.Principal, int64, bool) {
	caller, ok := h.caller(w, r)
	if !ok {
		return rbac.Principal{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, r, h.logger, shared.NotFound(msgUserNotFound))
		return rbac.Principal{}, 0, false
	}
	return caller, id, true
}

func atoi(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}
