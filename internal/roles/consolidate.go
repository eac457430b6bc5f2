package roles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
)

// LegacyRole pairs a pre-hierarchy role name with the system role replacing it.
type LegacyRole struct {
	Legacy    string
	Canonical string
}

// LegacyRoles lists the renames applied when older installations are upgraded.
var LegacyRoles = []LegacyRole{
	{Legacy: "administrator", Canonical: "admin"},
	{Legacy: "hr_officer", Canonical: "hr"},
	{Legacy: "manager", Canonical: "company"},
	{Legacy: "staff_member", Canonical: "staff"},
}

// ConsolidationResult reports what happened to one legacy pair.
type ConsolidationResult struct {
	Legacy     string  `json:"legacy"`
	Canonical  string  `json:"canonical"`
	Skipped    bool    `json:"skipped"`
	MovedUsers []int64 `json:"moved_users"`
}

var errDryRun = errors.New("roles: dry run")

// ConsolidateLegacyRoles folds each legacy role into its canonical role. A pair
// is skipped when either side is missing. Each pair commits on its own; with
// dryRun every transaction is rolled back after computing the result.
func (s *Service) ConsolidateLegacyRoles(ctx context.Context, actorID int64, mappings []LegacyRole, dryRun bool) ([]ConsolidationResult, error) {
	if !dryRun && actorID <= 0 {
		return nil, shared.ValidationFields("An acting user is required", map[string]string{"actor": "An acting user is required"})
	}
	if mappings == nil {
		mappings = LegacyRoles
	}

	results := make([]ConsolidationResult, 0, len(mappings))
	changed := false
	for _, pair := range mappings {
		result := ConsolidationResult{Legacy: pair.Legacy, Canonical: pair.Canonical, MovedUsers: []int64{}}
		err := s.store.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			legacy, err := tx.LockRoleByName(ctx, pair.Legacy)
			if err != nil {
				return err
			}
			canonical, err := tx.LockRoleByName(ctx, pair.Canonical)
			if err != nil {
				return err
			}
			moved, err := tx.MergeRoleUsers(ctx, legacy.ID, canonical.ID)
			if err != nil {
				return err
			}
			if moved != nil {
				result.MovedUsers = moved
			}
			if err := tx.DeleteRole(ctx, legacy.ID); err != nil {
				return err
			}
			if dryRun {
				return errDryRun
			}
			before := legacy.Snapshot()
			before["merged_into"] = canonical.Name
			before["users"] = result.MovedUsers
			return appendAudit(ctx, tx, audit.Record{
				ActorID:    actorID,
				Action:     audit.ActionRoleDeleted,
				TargetType: audit.TargetRole,
				TargetID:   legacy.ID,
				Before:     before,
			})
		})
		switch {
		case errors.Is(err, shared.ErrNotFound):
			result.Skipped = true
			result.MovedUsers = []int64{}
		case errors.Is(err, errDryRun):
		case err != nil:
			return results, err
		default:
			changed = true
		}
		s.logger.Info("roles: legacy consolidation",
			slog.String("legacy", pair.Legacy),
			slog.String("canonical", pair.Canonical),
			slog.Bool("skipped", result.Skipped),
			slog.Int("moved_users", len(result.MovedUsers)),
			slog.Bool("dry_run", dryRun),
		)
		results = append(results, result)
	}
	if changed {
		s.invalidate(ctx)
	}
	return results, nil
}
