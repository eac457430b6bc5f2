package audit

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"
)

// CSVExporter writes audit entries as CSV.
type CSVExporter struct{}

// WriteCSV encodes entries with a header row.
func (CSVExporter) WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "created_at", "actor_id", "actor_email", "action", "auditable_type", "auditable_id", "old_values", "new_values"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		email := ""
		if e.User != nil {
			email = e.User.Email
		}
		record := []string{
			strconv.FormatInt(e.ID, 10),
			e.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatInt(e.UserID, 10),
			email,
			string(e.Action),
			e.AuditableType,
			strconv.FormatInt(e.AuditableID, 10),
			string(e.OldValues),
			string(e.NewValues),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
