package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/odyssey-hrms/internal/roles"
)

// Consolidator folds legacy roles into their canonical counterparts.
type Consolidator interface {
	ConsolidateLegacyRoles(ctx context.Context, actorID int64, mappings []roles.LegacyRole, dryRun bool) ([]roles.ConsolidationResult, error)
}

// ConsolidateOptions defines flags for the consolidate-roles command.
type ConsolidateOptions struct {
	ActorID    int64
	DryRun     bool
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

// ConsolidateSummary is the JSON output of consolidate-roles.
type ConsolidateSummary struct {
	DryRun  bool                        `json:"dry_run"`
	Results []roles.ConsolidationResult `json:"results"`
}

// ConsolidateCommand runs the legacy role consolidation and prints the outcome.
func ConsolidateCommand(ctx context.Context, c Consolidator, opts ConsolidateOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if !opts.DryRun && opts.ActorID <= 0 {
		_, _ = fmt.Fprintln(opts.Stderr, "consolidate-roles: --actor is required unless --dry-run is set")
		return 1
	}
	results, err := c.ConsolidateLegacyRoles(ctx, opts.ActorID, roles.LegacyRoles, opts.DryRun)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "consolidate-roles: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		if err := json.NewEncoder(opts.Stdout).Encode(ConsolidateSummary{DryRun: opts.DryRun, Results: results}); err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "consolidate-roles: encode json: %v\n", err)
			return 1
		}
		return 0
	}
	renderConsolidateHuman(opts.Stdout, opts.DryRun, results)
	return 0
}

func renderConsolidateHuman(out io.Writer, dryRun bool, results []roles.ConsolidationResult) {
	if dryRun {
		_, _ = fmt.Fprintln(out, "Dry run, nothing was written.")
	}
	for _, r := range results {
		if r.Skipped {
			_, _ = fmt.Fprintf(out, " - %s -> %s: skipped (role missing)\n", r.Legacy, r.Canonical)
			continue
		}
		_, _ = fmt.Fprintf(out, " - %s -> %s: %d user(s) moved\n", r.Legacy, r.Canonical, len(r.MovedUsers))
	}
}
