package roles

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

type memState struct {
	roles   map[int64]rbac.Role
	perms   map[string]rbac.Permission
	users   map[int64]int
	members map[int64][]int64
	audits  []audit.Record
	nextID  int64
}

func (s memState) clone() memState {
	out := memState{
		roles:   make(map[int64]rbac.Role, len(s.roles)),
		perms:   s.perms,
		users:   s.users,
		members: make(map[int64][]int64, len(s.members)),
		audits:  append([]audit.Record(nil), s.audits...),
		nextID:  s.nextID,
	}
	for id, ids := range s.members {
		out.members[id] = append([]int64(nil), ids...)
	}
	for id, role := range s.roles {
		role.Permissions = append([]string(nil), role.Permissions...)
		out.roles[id] = role
	}
	return out
}

// memStore serialises transactions with a mutex and applies a cloned state
// only when fn succeeds.
type memStore struct {
	mu       sync.Mutex
	state    memState
	auditErr error
}

func newMemStore(permNames ...string) *memStore {
	st := &memStore{state: memState{
		roles:   map[int64]rbac.Role{},
		perms:   map[string]rbac.Permission{},
		users:   map[int64]int{},
		members: map[int64][]int64{},
		nextID:  1,
	}}
	for i, name := range permNames {
		st.state.perms[name] = rbac.Permission{ID: int64(i + 1), Name: name, GuardName: rbac.GuardWeb}
	}
	return st
}

func (m *memStore) seedRole(name string, level int, system bool, perms ...string) rbac.Role {
	m.mu.Lock()
	defer m.mu.Unlock()
	role := rbac.Role{
		ID: m.state.nextID, Name: name, GuardName: rbac.GuardWeb, HierarchyLevel: level, IsSystem: system,
		Permissions: append([]string{}, perms...), PermissionsCount: len(perms),
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	sort.Strings(role.Permissions)
	m.state.roles[role.ID] = role
	m.state.nextID++
	return role
}

func (m *memStore) assign(roleID int64, userIDs ...int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.members[roleID] = append(m.state.members[roleID], userIDs...)
	m.state.users[roleID] = len(m.state.members[roleID])
}

func (m *memStore) members(roleID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.state.members[roleID]...)
}

func (m *memStore) role(id int64) (rbac.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.state.roles[id]
	return role, ok
}

func (m *memStore) audits() []audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Record(nil), m.state.audits...)
}

func (m *memStore) roleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.roles)
}

func (m *memStore) List(_ context.Context, search string) ([]rbac.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rbac.Role
	for _, role := range m.state.roles {
		if search != "" && !strings.Contains(strings.ToLower(role.Name), strings.ToLower(search)) {
			continue
		}
		role.UsersCount = m.state.users[role.ID]
		role.PermissionsCount = len(role.Permissions)
		role.Permissions = nil
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HierarchyLevel != out[j].HierarchyLevel {
			return out[i].HierarchyLevel < out[j].HierarchyLevel
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memStore) Get(_ context.Context, id int64) (rbac.Role, error) {
	role, ok := m.role(id)
	if !ok {
		return rbac.Role{}, shared.NotFound(msgRoleNotFound)
	}
	return role, nil
}

func (m *memStore) RolePermissions(_ context.Context, id int64) ([]rbac.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.state.roles[id]
	if !ok {
		return nil, shared.NotFound(msgRoleNotFound)
	}
	var out []rbac.Permission
	for _, name := range role.Permissions {
		out = append(out, m.state.perms[name])
	}
	return out, nil
}

func (m *memStore) ListPermissions(_ context.Context) ([]rbac.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rbac.Permission
	for _, p := range m.state.perms {
		for _, role := range m.state.roles {
			for _, name := range role.Permissions {
				if name == p.Name {
					p.RolesCount++
				}
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{state: m.state.clone(), auditErr: m.auditErr}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	state    memState
	auditErr error
}

func (t *memTx) LockRole(_ context.Context, id int64) (rbac.Role, error) {
	role, ok := t.state.roles[id]
	if !ok {
		return rbac.Role{}, shared.NotFound(msgRoleNotFound)
	}
	role.UsersCount = t.state.users[id]
	return role, nil
}

func (t *memTx) LockRoleByName(ctx context.Context, name string) (rbac.Role, error) {
	for id, role := range t.state.roles {
		if role.Name == name {
			return t.LockRole(ctx, id)
		}
	}
	return rbac.Role{}, shared.NotFound(msgRoleNotFound)
}

func (t *memTx) MergeRoleUsers(_ context.Context, fromID, toID int64) ([]int64, error) {
	moved := t.state.members[fromID]
	for _, userID := range moved {
		held := false
		for _, existing := range t.state.members[toID] {
			held = held || existing == userID
		}
		if !held {
			t.state.members[toID] = append(t.state.members[toID], userID)
		}
	}
	delete(t.state.members, fromID)
	return moved, nil
}

func (t *memTx) NameTaken(_ context.Context, name string, exceptID int64) (bool, error) {
	for id, role := range t.state.roles {
		if role.Name == name && id != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertRole(_ context.Context, role rbac.Role) (rbac.Role, error) {
	role.ID = t.state.nextID
	t.state.nextID++
	role.CreatedAt = time.Now()
	role.UpdatedAt = role.CreatedAt
	t.state.roles[role.ID] = role
	return role, nil
}

func (t *memTx) UpdateRole(_ context.Context, role rbac.Role) (rbac.Role, error) {
	role.UpdatedAt = time.Now()
	t.state.roles[role.ID] = role
	return role, nil
}

func (t *memTx) DeleteRole(_ context.Context, id int64) error {
	delete(t.state.roles, id)
	return nil
}

func (t *memTx) FindPermissions(_ context.Context, names []string) ([]rbac.Permission, error) {
	var out []rbac.Permission
	for _, name := range names {
		if p, ok := t.state.perms[name]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *memTx) ReplacePermissions(_ context.Context, roleID int64, ids []int64) error {
	role := t.state.roles[roleID]
	role.Permissions = role.Permissions[:0:0]
	for _, p := range t.state.perms {
		for _, id := range ids {
			if p.ID == id {
				role.Permissions = append(role.Permissions, p.Name)
			}
		}
	}
	sort.Strings(role.Permissions)
	role.PermissionsCount = len(role.Permissions)
	t.state.roles[roleID] = role
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, rec audit.Record) error {
	if t.auditErr != nil {
		return t.auditErr
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	t.state.audits = append(t.state.audits, rec)
	return nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	calls int
}

func (c *countingInvalidator) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingInvalidator) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
