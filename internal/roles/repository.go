package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// ErrNameTaken reports a unique violation on roles.name.
var ErrNameTaken = errors.New("roles: name taken")

// Repository provides PostgreSQL backed persistence for roles and permissions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations that must share one transaction with
// their audit entry.
type TxRepository interface {
	LockRole(ctx context.Context, id int64) (rbac.Role, error)
	LockRoleByName(ctx context.Context, name string) (rbac.Role, error)
	MergeRoleUsers(ctx context.Context, fromID, toID int64) ([]int64, error)
	NameTaken(ctx context.Context, name string, exceptID int64) (bool, error)
	InsertRole(ctx context.Context, role rbac.Role) (rbac.Role, error)
	UpdateRole(ctx context.Context, role rbac.Role) (rbac.Role, error)
	DeleteRole(ctx context.Context, id int64) error
	FindPermissions(ctx context.Context, names []string) ([]rbac.Permission, error)
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
	AppendAudit(ctx context.Context, rec audit.Record) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx runs fn inside a READ COMMITTED transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const roleColumns = `r.id, r.name, r.guard_name, r.hierarchy_level, r.is_system, r.description, r.icon, r.created_at, r.updated_at,
       (SELECT COUNT(*) FROM role_permissions rp WHERE rp.role_id = r.id),
       (SELECT COUNT(*) FROM user_roles ur WHERE ur.role_id = r.id)`

// List returns roles ordered by hierarchy level then name, optionally filtered
// by a case-insensitive substring of the name.
func (r *Repository) List(ctx context.Context, search string) ([]rbac.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles r`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE r.name ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY r.hierarchy_level ASC, r.name ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("roles: list: %w", err)
	}
	defer rows.Close()

	var out []rbac.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

// Get loads a role with its permission names.
func (r *Repository) Get(ctx context.Context, id int64) (rbac.Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, id))
	if err != nil {
		return rbac.Role{}, err
	}
	role.Permissions, err = permissionNames(ctx, r.pool, id)
	if err != nil {
		return rbac.Role{}, err
	}
	return role, nil
}

// RolePermissions returns the permissions attached to a role.
func (r *Repository) RolePermissions(ctx context.Context, id int64) ([]rbac.Permission, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("roles: role exists: %w", err)
	}
	if !exists {
		return nil, shared.NotFound(msgRoleNotFound)
	}
	return queryPermissions(ctx, r.pool, `SELECT p.id, p.name, p.guard_name, p.description, p.created_at,
       (SELECT COUNT(*) FROM role_permissions x WHERE x.permission_id = p.id)
FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.name`, id)
}

// ListPermissions returns every permission with the number of roles granting it.
func (r *Repository) ListPermissions(ctx context.Context) ([]rbac.Permission, error) {
	return queryPermissions(ctx, r.pool, `SELECT p.id, p.name, p.guard_name, p.description, p.created_at, COUNT(rp.role_id)
FROM permissions p
LEFT JOIN role_permissions rp ON rp.permission_id = p.id
GROUP BY p.id
ORDER BY p.name`)
}

func (t *txRepo) LockRole(ctx context.Context, id int64) (rbac.Role, error) {
	var locked int64
	if err := t.tx.QueryRow(ctx, `SELECT id FROM roles WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, shared.NotFound(msgRoleNotFound)
		}
		return rbac.Role{}, fmt.Errorf("roles: lock role: %w", err)
	}
	role, err := scanRole(t.tx.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles r WHERE r.id = $1`, id))
	if err != nil {
		return rbac.Role{}, err
	}
	role.Permissions, err = permissionNames(ctx, t.tx, id)
	if err != nil {
		return rbac.Role{}, err
	}
	return role, nil
}

func (t *txRepo) LockRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	var id int64
	if err := t.tx.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1`, name).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, shared.NotFound(msgRoleNotFound)
		}
		return rbac.Role{}, fmt.Errorf("roles: find role: %w", err)
	}
	return t.LockRole(ctx, id)
}

// MergeRoleUsers moves every holder of fromID onto toID without duplicating
// existing memberships and returns the moved user ids.
func (t *txRepo) MergeRoleUsers(ctx context.Context, fromID, toID int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `DELETE FROM user_roles WHERE role_id = $1 RETURNING user_id`, fromID)
	if err != nil {
		return nil, fmt.Errorf("roles: detach legacy holders: %w", err)
	}
	moved, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("roles: detach legacy holders: %w", err)
	}
	if len(moved) == 0 {
		return moved, nil
	}
	_, err = t.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT UNNEST($1::bigint[]), $2
ON CONFLICT DO NOTHING`, moved, toID)
	if err != nil {
		return nil, fmt.Errorf("roles: attach canonical role: %w", err)
	}
	return moved, nil
}

func (t *txRepo) NameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1 AND id <> $2)`, name, exceptID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("roles: name taken: %w", err)
	}
	return taken, nil
}

func (t *txRepo) InsertRole(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO roles (name, guard_name, hierarchy_level, is_system, description, icon)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at, updated_at`,
		role.Name, role.GuardName, role.HierarchyLevel, role.IsSystem, role.Description, role.Icon,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return rbac.Role{}, mapWriteErr("insert role", err)
	}
	return role, nil
}

func (t *txRepo) UpdateRole(ctx context.Context, role rbac.Role) (rbac.Role, error) {
	err := t.tx.QueryRow(ctx, `UPDATE roles
SET name = $2, hierarchy_level = $3, description = $4, icon = $5, updated_at = NOW()
WHERE id = $1
RETURNING updated_at`,
		role.ID, role.Name, role.HierarchyLevel, role.Description, role.Icon,
	).Scan(&role.UpdatedAt)
	if err != nil {
		return rbac.Role{}, mapWriteErr("update role", err)
	}
	return role, nil
}

func (t *txRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("roles: delete role: %w", err)
	}
	return nil
}

func (t *txRepo) FindPermissions(ctx context.Context, names []string) ([]rbac.Permission, error) {
	if len(names) == 0 {
		return nil, nil
	}
	return queryPermissions(ctx, t.tx, `SELECT p.id, p.name, p.guard_name, p.description, p.created_at, 0
FROM permissions p
WHERE p.name = ANY($1)
ORDER BY p.name`, names)
}

func (t *txRepo) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	if permissionIDs == nil {
		permissionIDs = []int64{}
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND NOT (permission_id = ANY($2))`, roleID, permissionIDs); err != nil {
		return fmt.Errorf("roles: detach permissions: %w", err)
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id)
SELECT $1, UNNEST($2::bigint[])
ON CONFLICT DO NOTHING`, roleID, permissionIDs)
	if err != nil {
		return fmt.Errorf("roles: attach permissions: %w", err)
	}
	return nil
}

func (t *txRepo) AppendAudit(ctx context.Context, rec audit.Record) error {
	return audit.Insert(ctx, t.tx, rec)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func permissionNames(ctx context.Context, q querier, roleID int64) ([]string, error) {
	rows, err := q.Query(ctx, `SELECT p.name FROM permissions p
JOIN role_permissions rp ON rp.permission_id = p.id
WHERE rp.role_id = $1
ORDER BY p.name`, roleID)
	if err != nil {
		return nil, fmt.Errorf("roles: permission names: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("roles: permission names: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func queryPermissions(ctx context.Context, q querier, sql string, args ...any) ([]rbac.Permission, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("roles: permissions: %w", err)
	}
	defer rows.Close()

	var out []rbac.Permission
	for rows.Next() {
		var p rbac.Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.GuardName, &p.Description, &p.CreatedAt, &p.RolesCount); err != nil {
			return nil, fmt.Errorf("roles: scan permission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanRole(row pgx.Row) (rbac.Role, error) {
	var role rbac.Role
	err := row.Scan(&role.ID, &role.Name, &role.GuardName, &role.HierarchyLevel, &role.IsSystem,
		&role.Description, &role.Icon, &role.CreatedAt, &role.UpdatedAt, &role.PermissionsCount, &role.UsersCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Role{}, shared.NotFound(msgRoleNotFound)
		}
		return rbac.Role{}, fmt.Errorf("roles: scan role: %w", err)
	}
	return role, nil
}

func mapWriteErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrNameTaken
	}
	return fmt.Errorf("roles: %s: %w", op, err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
