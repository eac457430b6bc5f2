package users

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// Repository provides PostgreSQL backed access to users and their roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes user-role mutations that share a transaction with
// their audit entry.
type TxRepository interface {
	LockUser(ctx context.Context, id int64) (rbac.Principal, error)
	RolesByName(ctx context.Context, names []string) ([]rbac.Role, error)
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error
	AttachRole(ctx context.Context, userID, roleID int64) error
	DetachRole(ctx context.Context, userID, roleID int64) error
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

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// LoadPrincipal loads a user with roles, scope and effective permissions.
func (r *Repository) LoadPrincipal(ctx context.Context, id int64) (rbac.Principal, error) {
	return loadPrincipal(ctx, r.pool, id, false)
}

// List returns one page of users inside scope and the total match count. The
// count and the page are read from one snapshot.
func (r *Repository) List(ctx context.Context, scope rbac.Scope, filter ListFilter, offset, limit int) ([]rbac.Principal, int, error) {
	var (
		out   []rbac.Principal
		total int
	)
	err := db.ReadSnapshot(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		out, total, err = listPage(ctx, tx, scope, filter, offset, limit)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func listPage(ctx context.Context, q querier, scope rbac.Scope, filter ListFilter, offset, limit int) ([]rbac.Principal, int, error) {
	where, args := listClause(scope, filter)

	var total int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT u.id, u.name, u.email, u.org_id, u.company_id FROM users u%s
ORDER BY u.name ASC, u.id ASC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var (
		out []rbac.Principal
		ids []int64
	)
	for rows.Next() {
		var p rbac.Principal
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.OrgID, &p.CompanyID); err != nil {
			return nil, 0, fmt.Errorf("users: scan: %w", err)
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()
	if len(ids) == 0 {
		return out, total, nil
	}

	byUser, err := rolesForUsers(ctx, q, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range out {
		out[i].Roles = byUser[out[i].ID]
	}
	return out, total, nil
}

func (t *txRepo) LockUser(ctx context.Context, id int64) (rbac.Principal, error) {
	return loadPrincipal(ctx, t.tx, id, true)
}

func (t *txRepo) RolesByName(ctx context.Context, names []string) ([]rbac.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows, err := t.tx.Query(ctx, `SELECT id, name, guard_name, hierarchy_level, is_system, description, icon
FROM roles WHERE name = ANY($1)
ORDER BY hierarchy_level ASC, name ASC
FOR SHARE`, names)
	if err != nil {
		return nil, fmt.Errorf("users: roles by name: %w", err)
	}
	defer rows.Close()

	var out []rbac.Role
	for rows.Next() {
		var role rbac.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.GuardName, &role.HierarchyLevel, &role.IsSystem, &role.Description, &role.Icon); err != nil {
			return nil, fmt.Errorf("users: scan role: %w", err)
		}
		out = append(out, role)
	}
	return out, rows.Err()
}

func (t *txRepo) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if roleIDs == nil {
		roleIDs = []int64{}
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND NOT (role_id = ANY($2))`, userID, roleIDs); err != nil {
		return fmt.Errorf("users: detach roles: %w", err)
	}
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, UNNEST($2::bigint[])
ON CONFLICT DO NOTHING`, userID, roleIDs)
	if err != nil {
		return fmt.Errorf("users: attach roles: %w", err)
	}
	return nil
}

func (t *txRepo) AttachRole(ctx context.Context, userID, roleID int64) error {
	if _, err := t.tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, userID, roleID); err != nil {
		return fmt.Errorf("users: attach role: %w", err)
	}
	return nil
}

func (t *txRepo) DetachRole(ctx context.Context, userID, roleID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID); err != nil {
		return fmt.Errorf("users: detach role: %w", err)
	}
	return nil
}

func (t *txRepo) AppendAudit(ctx context.Context, rec audit.Record) error {
	return audit.Insert(ctx, t.tx, rec)
}

func loadPrincipal(ctx context.Context, q querier, id int64, lock bool) (rbac.Principal, error) {
	sql := `SELECT id, name, email, org_id, company_id FROM users WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var p rbac.Principal
	if err := q.QueryRow(ctx, sql, id).Scan(&p.ID, &p.Name, &p.Email, &p.OrgID, &p.CompanyID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rbac.Principal{}, shared.NotFound(msgUserNotFound)
		}
		return rbac.Principal{}, fmt.Errorf("users: load: %w", err)
	}
	byUser, err := rolesForUsers(ctx, q, []int64{id})
	if err != nil {
		return rbac.Principal{}, err
	}
	p.Roles = byUser[id]

	rows, err := q.Query(ctx, `SELECT p.name FROM permissions p
WHERE p.id IN (
    SELECT rp.permission_id FROM role_permissions rp
    JOIN user_roles ur ON ur.role_id = rp.role_id
    WHERE ur.user_id = $1
    UNION
    SELECT up.permission_id FROM user_permissions up WHERE up.user_id = $1
)
ORDER BY p.name`, id)
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("users: permissions: %w", err)
	}
	p.Permissions, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return rbac.Principal{}, fmt.Errorf("users: permissions: %w", err)
	}
	return p, nil
}

func rolesForUsers(ctx context.Context, q querier, ids []int64) (map[int64][]rbac.RoleRef, error) {
	rows, err := q.Query(ctx, `SELECT ur.user_id, r.id, r.name, r.hierarchy_level, r.icon
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = ANY($1)
ORDER BY r.hierarchy_level ASC, r.name ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("users: roles: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]rbac.RoleRef, len(ids))
	for rows.Next() {
		var (
			userID int64
			ref    rbac.RoleRef
		)
		if err := rows.Scan(&userID, &ref.ID, &ref.Name, &ref.HierarchyLevel, &ref.Icon); err != nil {
			return nil, fmt.Errorf("users: scan role: %w", err)
		}
		out[userID] = append(out[userID], ref)
	}
	return out, rows.Err()
}

func listClause(scope rbac.Scope, filter ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	filters := scope.Filters()
	columns := make([]string, 0, len(filters))
	for column := range filters {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		args = append(args, filters[column])
		conds = append(conds, fmt.Sprintf("u.%s = $%d", column, len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conds = append(conds, fmt.Sprintf("(u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args)))
	}
	if role := strings.TrimSpace(filter.Role); role != "" {
		args = append(args, role)
		conds = append(conds, fmt.Sprintf(`EXISTS (SELECT 1 FROM user_roles ur JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = u.id AND r.name = $%d)`, len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
