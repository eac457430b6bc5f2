package roles

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Store is the persistence contract the service depends on.
type Store interface {
	List(ctx context.Context, search string) ([]rbac.Role, error)
	Get(ctx context.Context, id int64) (rbac.Role, error)
	RolePermissions(ctx context.Context, id int64) ([]rbac.Permission, error)
	ListPermissions(ctx context.Context) ([]rbac.Permission, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// Invalidator is notified after a committed change to roles or permissions.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service applies role and permission mutations on behalf of an explicit caller.
type Service struct {
	store       Store
	invalidator Invalidator
	logger      *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, invalidator Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, invalidator: invalidator, logger: logger}
}

// List returns roles with live permission and user counts.
func (s *Service) List(ctx context.Context, search string) ([]rbac.Role, error) {
	roles, err := s.store.List(ctx, search)
	if err != nil {
		return nil, err
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	return roles, nil
}

// Get returns a single role with its permission names.
func (s *Service) Get(ctx context.Context, id int64) (rbac.Role, error) {
	return s.store.Get(ctx, id)
}

// RolePermissions returns the permissions attached to a role.
func (s *Service) RolePermissions(ctx context.Context, id int64) ([]rbac.Permission, error) {
	perms, err := s.store.RolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	return perms, nil
}

// PermissionUsage returns every permission with the number of roles owning it.
func (s *Service) PermissionUsage(ctx context.Context) ([]rbac.Permission, error) {
	perms, err := s.store.ListPermissions(ctx)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []rbac.Permission{}
	}
	return perms, nil
}

// Create persists a custom role. The level defaults to the lowest authority.
func (s *Service) Create(ctx context.Context, caller rbac.Principal, in CreateInput) (rbac.Role, error) {
	in.Name = rbac.NormalizeName(in.Name)
	if err := shared.ValidateStruct(in); err != nil {
		return rbac.Role{}, err
	}
	level := rbac.LowestAuthorityLevel
	if in.HierarchyLevel != nil {
		level = *in.HierarchyLevel
	}
	if !rbac.CanManageLevel(caller, level) {
		return rbac.Role{}, shared.Unauthorized(msgCreateAbove)
	}

	role := rbac.Role{
		Name:           in.Name,
		GuardName:      rbac.GuardWeb,
		HierarchyLevel: level,
		Description:    deref(in.Description),
		Icon:           deref(in.Icon),
		Permissions:    []string{},
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := ensureNameFree(ctx, tx, role.Name, 0); err != nil {
			return err
		}
		created, err := tx.InsertRole(ctx, role)
		if err != nil {
			return nameTakenAsValidation(err)
		}
		role = created
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     audit.ActionRoleCreated,
			TargetType: audit.TargetRole,
			TargetID:   role.ID,
			After:      role.Snapshot(),
		})
	})
	if err != nil {
		return rbac.Role{}, err
	}
	s.invalidate(ctx)
	return role, nil
}

// Update changes a role. The caller must outrank both the current and the
// requested level; system roles keep their name.
func (s *Service) Update(ctx context.Context, caller rbac.Principal, id int64, in UpdateInput) (rbac.Role, error) {
	if in.Name != nil {
		trimmed := rbac.NormalizeName(*in.Name)
		in.Name = &trimmed
	}
	if err := shared.ValidateStruct(in); err != nil {
		return rbac.Role{}, err
	}

	var updated rbac.Role
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockRole(ctx, id)
		if err != nil {
			return err
		}
		renaming := in.Name != nil && *in.Name != current.Name
		if current.IsSystem && renaming {
			return shared.Forbidden(msgRenameSystem)
		}
		if !rbac.CanManageLevel(caller, current.HierarchyLevel) {
			return shared.Unauthorized(msgEditAbove)
		}
		if in.HierarchyLevel != nil && !rbac.CanManageLevel(caller, *in.HierarchyLevel) {
			return shared.Unauthorized(msgLevelAbove)
		}
		if renaming {
			if err := ensureNameFree(ctx, tx, *in.Name, current.ID); err != nil {
				return err
			}
		}

		next := current
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.HierarchyLevel != nil {
			next.HierarchyLevel = *in.HierarchyLevel
		}
		if in.Description != nil {
			next.Description = *in.Description
		}
		if in.Icon != nil {
			next.Icon = *in.Icon
		}
		updated, err = tx.UpdateRole(ctx, next)
		if err != nil {
			return nameTakenAsValidation(err)
		}
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     audit.ActionRoleUpdated,
			TargetType: audit.TargetRole,
			TargetID:   current.ID,
			Before:     current.Snapshot(),
			After:      updated.Snapshot(),
		})
	})
	if err != nil {
		return rbac.Role{}, err
	}
	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a custom role and its associations.
func (s *Service) Delete(ctx context.Context, caller rbac.Principal, id int64) error {
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockRole(ctx, id)
		if err != nil {
			return err
		}
		if current.IsSystem {
			return shared.Forbidden(msgDeleteSystem)
		}
		if !rbac.CanManageLevel(caller, current.HierarchyLevel) {
			return shared.Unauthorized(msgDeleteAbove)
		}
		if err := tx.DeleteRole(ctx, current.ID); err != nil {
			return err
		}
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     audit.ActionRoleDeleted,
			TargetType: audit.TargetRole,
			TargetID:   current.ID,
			Before:     current.Snapshot(),
		})
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// SyncPermissions replaces a role's permission set. Concurrent syncs on the
// same role serialise on the row lock; the last commit wins.
func (s *Service) SyncPermissions(ctx context.Context, caller rbac.Principal, id int64, in SyncInput) (rbac.Role, error) {
	if err := shared.ValidateStruct(in); err != nil {
		return rbac.Role{}, err
	}
	requested := rbac.NormalizeNames(in.Permissions)

	var synced rbac.Role
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockRole(ctx, id)
		if err != nil {
			return err
		}
		if !rbac.CanManageLevel(caller, current.HierarchyLevel) {
			return shared.Unauthorized(msgPermissionsAbove)
		}

		found, err := tx.FindPermissions(ctx, requested)
		if err != nil {
			return err
		}
		if unknown := unknownNames(requested, found); len(unknown) > 0 {
			return shared.ValidationFields(msgUnknownPerms+strings.Join(unknown, ", "), map[string]string{
				"permissions": msgUnknownPerms + strings.Join(unknown, ", "),
			})
		}
		if !rbac.IsTopAuthority(caller) {
			if missing := rbac.MissingPermissions(caller, requested); len(missing) > 0 {
				return shared.Unauthorized(msgUngranted + strings.Join(missing, ", "))
			}
		}

		ids := make([]int64, 0, len(found))
		names := make([]string, 0, len(found))
		for _, p := range found {
			ids = append(ids, p.ID)
			names = append(names, p.Name)
		}
		sort.Strings(names)
		if err := tx.ReplacePermissions(ctx, current.ID, ids); err != nil {
			return err
		}

		synced = current
		synced.Permissions = names
		synced.PermissionsCount = len(names)
		return appendAudit(ctx, tx, audit.Record{
			ActorID:    caller.ID,
			Action:     audit.ActionPermissionsSynced,
			TargetType: audit.TargetRole,
			TargetID:   current.ID,
			Before:     map[string]any{"permissions": current.Permissions},
			After:      map[string]any{"permissions": names},
		})
	})
	if err != nil {
		return rbac.Role{}, err
	}
	s.invalidate(ctx)
	return synced, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil {
		s.logger.Warn("roles: invalidate governance cache", slog.Any("error", err))
	}
}

func ensureNameFree(ctx context.Context, tx TxRepository, name string, exceptID int64) error {
	taken, err := tx.NameTaken(ctx, name, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return shared.ValidationFields(msgNameTaken, map[string]string{"name": msgNameTaken})
	}
	return nil
}

func nameTakenAsValidation(err error) error {
	if errors.Is(err, ErrNameTaken) {
		return shared.ValidationFields(msgNameTaken, map[string]string{"name": msgNameTaken})
	}
	return err
}

// appendAudit marks audit write failures so the rollback surfaces as a consistency error.
func appendAudit(ctx context.Context, tx TxRepository, rec audit.Record) error {
	if err := tx.AppendAudit(ctx, rec); err != nil {
		return shared.Consistency(err)
	}
	return nil
}

func unknownNames(requested []string, found []rbac.Permission) []string {
	known := make(map[string]struct{}, len(found))
	for _, p := range found {
		known[p.Name] = struct{}{}
	}
	var unknown []string
	for _, name := range requested {
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
