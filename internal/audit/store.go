package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is satisfied by pgx.Tx so entries share the mutation's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Insert appends rec through q. Callers must pass the transaction that holds
// the mutation being described.
func Insert(ctx context.Context, q Execer, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	oldValues, err := marshalSnapshot(rec.Before)
	if err != nil {
		return fmt.Errorf("audit: encode old values: %w", err)
	}
	newValues, err := marshalSnapshot(rec.After)
	if err != nil {
		return fmt.Errorf("audit: encode new values: %w", err)
	}
	_, err = q.Exec(ctx, `INSERT INTO role_audit_logs (user_id, action, auditable_type, auditable_id, old_values, new_values)
VALUES ($1, $2, $3, $4, $5, $6)`, rec.ActorID, string(rec.Action), rec.TargetType, rec.TargetID, oldValues, newValues)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

func marshalSnapshot(snap map[string]any) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	return json.Marshal(snap)
}

// Repository reads role_audit_logs joined with actor display info.
type Repository interface {
	List(ctx context.Context, filters Filters, offset, limit int) ([]Entry, int, error)
	ListAll(ctx context.Context, filters Filters) ([]Entry, error)
	Revision(ctx context.Context) (int64, error)
}

// PgRepository implements Repository on a pgx pool.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const selectEntries = `SELECT l.id, l.user_id, l.action, l.auditable_type, l.auditable_id, l.old_values, l.new_values, l.created_at,
       u.id, u.name, u.email
FROM role_audit_logs l
LEFT JOIN users u ON u.id = l.user_id`

// List returns one page of entries, most recent first, and the total count.
func (r *PgRepository) List(ctx context.Context, filters Filters, offset, limit int) ([]Entry, int, error) {
	where, args := filterClause(filters)
	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM role_audit_logs l"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count: %w", err)
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf("%s%s ORDER BY l.created_at DESC, l.id DESC LIMIT $%d OFFSET $%d", selectEntries, where, len(args)-1, len(args))
	entries, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListAll returns every matching entry, most recent first.
func (r *PgRepository) ListAll(ctx context.Context, filters Filters) ([]Entry, error) {
	where, args := filterClause(filters)
	return r.query(ctx, selectEntries+where+" ORDER BY l.created_at DESC, l.id DESC", args...)
}

// Revision counts the log's entries. Rows are never updated or deleted, so
// every committed mutation advances it, whatever order ids were drawn in.
func (r *PgRepository) Revision(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM role_audit_logs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("audit: revision: %w", err)
	}
	return n, nil
}

func (r *PgRepository) query(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry                Entry
		action               string
		oldValues, newValues []byte
		actorID              pgtype.Int8
		actorName            pgtype.Text
		actorEmail           pgtype.Text
	)
	if err := row.Scan(&entry.ID, &entry.UserID, &action, &entry.AuditableType, &entry.AuditableID,
		&oldValues, &newValues, &entry.CreatedAt, &actorID, &actorName, &actorEmail); err != nil {
		return Entry{}, fmt.Errorf("audit: scan: %w", err)
	}
	entry.Action = Action(action)
	entry.OldValues = rawOrNull(oldValues)
	entry.NewValues = rawOrNull(newValues)
	if actorID.Valid {
		entry.User = &Actor{ID: actorID.Int64, Name: actorName.String, Email: actorEmail.String}
	}
	return entry, nil
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

func filterClause(filters Filters) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filters.Action != "" {
		add("l.action = $%d", string(filters.Action))
	}
	if filters.TargetType != "" {
		add("l.auditable_type = $%d", filters.TargetType)
	}
	if !filters.From.IsZero() {
		add("l.created_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		add("l.created_at < $%d", filters.To.Add(24*time.Hour))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
