package users

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

type memUser struct {
	principal rbac.Principal
	roleIDs   map[int64]struct{}
}

type memState struct {
	users  map[int64]memUser
	audits []audit.Record
}

func (s memState) clone() memState {
	out := memState{users: make(map[int64]memUser, len(s.users)), audits: append([]audit.Record(nil), s.audits...)}
	for id, u := range s.users {
		ids := make(map[int64]struct{}, len(u.roleIDs))
		for rid := range u.roleIDs {
			ids[rid] = struct{}{}
		}
		out.users[id] = memUser{principal: u.principal, roleIDs: ids}
	}
	return out
}

type memStore struct {
	mu       sync.Mutex
	roles    map[string]rbac.Role
	state    memState
	auditErr error
}

func newMemStore(roles ...rbac.Role) *memStore {
	st := &memStore{roles: map[string]rbac.Role{}, state: memState{users: map[int64]memUser{}}}
	for _, role := range roles {
		st.roles[role.Name] = role
	}
	return st
}

func (m *memStore) addUser(p rbac.Principal, roleNames ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := map[int64]struct{}{}
	for _, name := range roleNames {
		ids[m.roles[name].ID] = struct{}{}
	}
	m.state.users[p.ID] = memUser{principal: p, roleIDs: ids}
}

func (m *memStore) audits() []audit.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audit.Record(nil), m.state.audits...)
}

func (m *memStore) principal(state memState, id int64) (rbac.Principal, bool) {
	u, ok := state.users[id]
	if !ok {
		return rbac.Principal{}, false
	}
	p := u.principal
	p.Roles = nil
	for _, role := range m.roles {
		if _, held := u.roleIDs[role.ID]; held {
			p.Roles = append(p.Roles, role.Ref())
		}
	}
	sort.Slice(p.Roles, func(i, j int) bool {
		if p.Roles[i].HierarchyLevel != p.Roles[j].HierarchyLevel {
			return p.Roles[i].HierarchyLevel < p.Roles[j].HierarchyLevel
		}
		return p.Roles[i].Name < p.Roles[j].Name
	})
	return p, true
}

func (m *memStore) LoadPrincipal(_ context.Context, id int64) (rbac.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.principal(m.state, id)
	if !ok {
		return rbac.Principal{}, shared.NotFound(msgUserNotFound)
	}
	return p, nil
}

func (m *memStore) List(_ context.Context, scope rbac.Scope, filter ListFilter, offset, limit int) ([]rbac.Principal, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, errors.New("OFFSET must not be negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []rbac.Principal
	for id := range m.state.users {
		p, _ := m.principal(m.state, id)
		if !scope.Allows(p) {
			continue
		}
		if filter.Search != "" && !strings.Contains(p.Name, filter.Search) && !strings.Contains(p.Email, filter.Search) {
			continue
		}
		if filter.Role != "" {
			found := false
			for _, name := range p.RoleNames() {
				found = found || name == filter.Role
			}
			if !found {
				continue
			}
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (m *memStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memTx{store: m, state: m.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

type memTx struct {
	store *memStore
	state memState
}

func (t *memTx) LockUser(_ context.Context, id int64) (rbac.Principal, error) {
	p, ok := t.store.principal(t.state, id)
	if !ok {
		return rbac.Principal{}, shared.NotFound(msgUserNotFound)
	}
	return p, nil
}

func (t *memTx) RolesByName(_ context.Context, names []string) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, name := range names {
		if role, ok := t.store.roles[name]; ok {
			out = append(out, role)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HierarchyLevel < out[j].HierarchyLevel })
	return out, nil
}

func (t *memTx) ReplaceRoles(_ context.Context, userID int64, roleIDs []int64) error {
	u := t.state.users[userID]
	u.roleIDs = map[int64]struct{}{}
	for _, id := range roleIDs {
		u.roleIDs[id] = struct{}{}
	}
	t.state.users[userID] = u
	return nil
}

func (t *memTx) AttachRole(_ context.Context, userID, roleID int64) error {
	t.state.users[userID].roleIDs[roleID] = struct{}{}
	return nil
}

func (t *memTx) DetachRole(_ context.Context, userID, roleID int64) error {
	delete(t.state.users[userID].roleIDs, roleID)
	return nil
}

func (t *memTx) AppendAudit(_ context.Context, rec audit.Record) error {
	if t.store.auditErr != nil {
		return t.store.auditErr
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	t.state.audits = append(t.state.audits, rec)
	return nil
}
