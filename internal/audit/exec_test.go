package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
)

type recordingExec struct {
	sql  string
	args []any
}

type fakeExec struct {
	calls []recordingExec
	err   error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, recordingExec{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}
