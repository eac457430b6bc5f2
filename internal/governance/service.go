package governance

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
)

// RoleSource supplies live role and permission counts.
type RoleSource interface {
	List(ctx context.Context, search string) ([]rbac.Role, error)
	PermissionUsage(ctx context.Context) ([]rbac.Permission, error)
}

// AuditSource supplies audit log pages and exports.
type AuditSource interface {
	Query(ctx context.Context, filters audit.Filters, page, perPage int) (audit.Page, error)
	Export(ctx context.Context, filters audit.Filters) ([]audit.Entry, error)
	Revision(ctx context.Context) (int64, error)
}

// Config tunes the governance service.
type Config struct {
	OverprivilegedThreshold int
	Logger                  *slog.Logger
}

// Service serves read-only governance views. Nothing here mutates or audits.
type Service struct {
	roles     RoleSource
	audits    AuditSource
	cache     *Cache
	metrics   *Metrics
	logger    *slog.Logger
	threshold int
	group     singleflight.Group
	now       func() time.Time
}

// NewService wires the governance service. cache and metrics may be nil.
func NewService(roles RoleSource, audits AuditSource, cache *Cache, metrics *Metrics, cfg Config) *Service {
	threshold := cfg.OverprivilegedThreshold
	if threshold <= 0 {
		threshold = DefaultOverprivilegedThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		roles:     roles,
		audits:    audits,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
		threshold: threshold,
		now:       time.Now,
	}
}

// Inventory lists every role with live user and permission counts.
func (s *Service) Inventory(ctx context.Context) ([]InventoryRole, error) {
	roles, err := s.roles.List(ctx, "")
	if err != nil {
		return nil, err
	}
	return Inventory(roles), nil
}

// Health returns the health report. Reports are cached per audit log
// revision and cache generation, so any committed mutation yields a fresh
// build even when its invalidation was lost. Without Redis the report is
// built on every call.
func (s *Service) Health(ctx context.Context) (Report, error) {
	rev, err := s.audits.Revision(ctx)
	if err != nil {
		return Report{}, err
	}
	parts := []string{"governance", "health", strconv.Itoa(s.threshold), strconv.FormatInt(rev, 10)}
	key, err := s.cache.BuildKey(ctx, parts...)
	cached := err == nil
	if !cached {
		s.logger.Warn("governance cache unavailable, building uncached report", slog.Any("error", err))
		key = strings.Join(parts, ":")
	}
	res, err, _ := s.group.Do(key, func() (any, error) {
		if !cached {
			return s.build(ctx)
		}
		var report Report
		err := s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (any, error) {
			return s.build(ctx)
		})
		return report, err
	})
	if err != nil {
		return Report{}, err
	}
	return res.(Report), nil
}

// Refresh drops cached reports, rebuilds the report and publishes its gauges.
func (s *Service) Refresh(ctx context.Context) (Report, error) {
	if _, err := s.cache.Bump(ctx); err != nil {
		return Report{}, err
	}
	return s.ObserveHealth(ctx)
}

// ObserveHealth publishes the gauges of the current report without invalidating it.
func (s *Service) ObserveHealth(ctx context.Context) (Report, error) {
	report, err := s.Health(ctx)
	if err != nil {
		return Report{}, err
	}
	s.metrics.Observe(report)
	return report, nil
}

// FollowInvalidations keeps the gauges current as other processes bump the
// cache. Failures are logged and the next bump retries.
func (s *Service) FollowInvalidations(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return s.cache.Watch(ctx, func(ctx context.Context, gen int64) {
		if _, err := s.ObserveHealth(ctx); err != nil {
			logger.Warn("governance gauges stale", slog.Int64("generation", gen), slog.Any("error", err))
		}
	})
}

// AuditLogs returns a page of the audit log, most recent first.
func (s *Service) AuditLogs(ctx context.Context, filters audit.Filters, page, perPage int) (audit.Page, error) {
	return s.audits.Query(ctx, filters, page, perPage)
}

// ExportAuditLogs returns every audit entry matching filters.
func (s *Service) ExportAuditLogs(ctx context.Context, filters audit.Filters) ([]audit.Entry, error) {
	return s.audits.Export(ctx, filters)
}

func (s *Service) build(ctx context.Context) (Report, error) {
	roles, err := s.roles.List(ctx, "")
	if err != nil {
		return Report{}, err
	}
	perms, err := s.roles.PermissionUsage(ctx)
	if err != nil {
		return Report{}, err
	}
	report := BuildReport(roles, perms, s.threshold)
	report.GeneratedAt = s.now().UTC()
	return report, nil
}
