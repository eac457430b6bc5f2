package users

import (
	"context"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Store is the persistence contract the service depends on.
type Store interface {
	LoadPrincipal(ctx context.Context, id int64) (rbac.Principal, error)
	List(ctx context.Context, scope rbac.Scope, filter ListFilter, offset, limit int) ([]rbac.Principal, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Invalidator is notified after a committed change to role membership.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Page is a paginated user listing.
type Page struct {
	Data []User          `json:"data"`
	Meta shared.PageMeta `json:"meta"`
}

// Service manages user role membership on behalf of an explicit caller.
type Service struct {
	store          Store
	invalidator    Invalidator
	logger         *slog.Logger
	defaultPerPage int
}

// NewService constructs a Service.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger, defaultPerPage int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultPerPage <= 0 {
		defaultPerPage = 15
	}
	return &Service{store: store, invalidator: invalidator, logger: logger, defaultPerPage: defaultPerPage}
}

// List returns users visible to caller.
func (s *Service) List(ctx context.Context, caller rbac.Principal, filter ListFilter) (Page, error) {
	page, perPage := shared.NormalizePage(filter.Page, filter.PerPage, s.defaultPerPage)
	offset := shared.NewPagination(page, perPage, 0).Offset()
	principals, total, err := s.store.List(ctx, rbac.TenantScope(caller), filter, offset, perPage)
	if err != nil {
		return Page{}, err
	}
	data := make([]User, 0, len(principals))
	for _, p := range principals {
		data = append(data, NewUser(p, false))
	}
	return Page{Data: data, Meta: shared.NewPagination(page, perPage, total).Meta()}, nil
}

// Get returns a single user with effective permissions.
func (s *Service) Get(ctx context.Context, caller rbac.Principal, id int64) (User, error) {
	target, err := s.store.LoadPrincipal(ctx, id)
	if err != nil {
		return User{}, err
	}
	if !rbac.CanAccessUser(caller, target) {
		return User{}, shared.Unauthorized(msgAccessOutside)
	}
	return NewUser(target, true), nil
}

// Roles returns the roles held by a user, most privileged first.
func (s *Service) Roles(ctx context.Context, caller rbac.Principal, id int64) ([]rbac.RoleRef, error) {
	user, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return user.Roles, nil
}

// AssignRoles replaces the user's role set. An empty list strips every role.
// Repeating an identical assignment is still audited.
func (s *Service) AssignRoles(ctx context.Context, caller rbac.Principal, id int64, in AssignInput) (User, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return User{}, err
	}
	requested := rbac.NormalizeNames(in.Roles)

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := lockManageable(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		roles, err := resolveRoles(ctx, tx, requested)
		if err != nil {
			return err
		}
		var above []string
		for _, role := range roles {
			if !rbac.CanManageLevel(caller, role.HierarchyLevel) {
				above = append(above, role.Name)
			}
		}
		if len(above) > 0 {
			return shared.Unauthorized(msgAssignAboveAny + strings.Join(above, ", "))
		}

		ids := make([]int64, 0, len(roles))
		names := make([]string, 0, len(roles))
		for _, role := range roles {
			ids = append(ids, role.ID)
			names = append(names, role.Name)
		}
		if err := tx.ReplaceRoles(ctx, target.ID, ids); err != nil {
			return err
		}
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     audit.ActionUserRolesAssigned,
			TargetType: audit.TargetUser,
			TargetID:   target.ID,
			Before:     map[string]any{"roles": target.RoleNames()},
			After:      map[string]any{"roles": names},
		})
	})
	if err != nil {
		return User{}, err
	}
	return s.afterCommit(ctx, id)
}

// AddRole grants one role to the user.
func (s *Service) AddRole(ctx context.Context, caller rbac.Principal, id int64, in RoleInput) (User, error) {
	return s.changeRole(ctx, caller, id, in, audit.ActionUserRoleAdded)
}

// RemoveRole revokes one role from the user.
func (s *Service) RemoveRole(ctx context.Context, caller rbac.Principal, id int64, in RoleInput) (User, error) {
	return s.changeRole(ctx, caller, id, in, audit.ActionUserRoleRemoved)
}

func (s *Service) changeRole(ctx context.Context, caller rbac.Principal, id int64, in RoleInput, action audit.Action) (User, error) {
	in.Role = rbac.NormalizeName(in.Role)
	if err := shared.ValidateStruct(in); err != nil {
		return User{}, err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		target, err := lockManageable(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		roles, err := resolveRoles(ctx, tx, []string{in.Role})
		if err != nil {
			return err
		}
		role := roles[0]

		before := target.RoleNames()
		var after []string
		if action == audit.ActionUserRoleAdded {
			if !rbac.CanManageLevel(caller, role.HierarchyLevel) {
				return shared.Unauthorized(msgAssignAbove)
			}
			if err := tx.AttachRole(ctx, target.ID, role.ID); err != nil {
				return err
			}
			after = withRole(target.Roles, role)
		} else {
			if !rbac.CanManageLevel(caller, role.HierarchyLevel) {
				return shared.Unauthorized(msgRemoveAbove)
			}
			if err := tx.DetachRole(ctx, target.ID, role.ID); err != nil {
				return err
			}
			after = withoutRole(target.Roles, role.ID)
		}
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     action,
			TargetType: audit.TargetUser,
			TargetID:   target.ID,
			Before:     map[string]any{"roles": before},
			After:      map[string]any{"roles": after},
		})
	})
	if err != nil {
		return User{}, err
	}
	return s.afterCommit(ctx, id)
}

func (s *Service) afterCommit(ctx context.Context, id int64) (User, error) {
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.logger.Warn("users: invalidate governance cache", slog.Any("error", err))
		}
	}
	target, err := s.store.LoadPrincipal(ctx, id)
	if err != nil {
		return User{}, err
	}
	return NewUser(target, false), nil
}

// lockManageable loads the target under a row lock and applies the tenant
// and hierarchy checks shared by every membership change.
func lockManageable(ctx context.Context, tx TxRepository, caller rbac.Principal, id int64) (rbac.Principal, error) {
	target, err := tx.LockUser(ctx, id)
	if err != nil {
		return rbac.Principal{}, err
	}
	if !rbac.CanAccessUser(caller, target) {
		return rbac.Principal{}, shared.Unauthorized(msgManageOutside)
	}
	if !rbac.CanManageUser(caller, target) {
		return rbac.Principal{}, shared.Unauthorized(msgManageAbove)
	}
	return target, nil
}

func resolveRoles(ctx context.Context, tx TxRepository, names []string) ([]rbac.Role, error) {
	roles, err := tx.RolesByName(ctx, names)
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		known[role.Name] = struct{}{}
	}
	var unknown []string
	for _, name := range names {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		msg := msgUnknownRoles + strings.Join(unknown, ", ")
		return nil, shared.ValidationFields(msg, map[string]string{"roles": msg})
	}
	return roles, nil
}

func appendAudit(ctx context.Context, tx TxRepository, rec audit.Record) error {
	if err := tx.AppendAudit(ctx, rec); err != nil {
		return shared.Consistency(err)
	}
	return nil
}

func withRole(held []rbac.RoleRef, role rbac.Role) []string {
	names := rbac.Principal{Roles: held}.RoleNames()
	for _, ref := range held {
		if ref.ID == role.ID {
			return names
		}
	}
	return append(names, role.Name)
}

func withoutRole(held []rbac.RoleRef, roleID int64) []string {
	names := make([]string, 0, len(held))
	for _, ref := range held {
		if ref.ID != roleID {
			names = append(names, ref.Name)
		}
	}
	return names
}
