package app

import (
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-hrms/internal/audit"
	"github.com/odyssey-erp/odyssey-hrms/internal/governance"
	"github.com/odyssey-erp/odyssey-hrms/internal/observability"
	"github.com/odyssey-erp/odyssey-hrms/internal/rbac"
	"github.com/odyssey-erp/odyssey-hrms/internal/roles"
	"github.com/odyssey-erp/odyssey-hrms/internal/shared"
	"github.com/odyssey-erp/odyssey-hrms/internal/users"
	"github.com/odyssey-erp/odyssey-hrms/jobs"
)

// Services holds the wired domain services shared by the API and the worker.
type Services struct {
	Sessions   *shared.SessionStore
	Principals *users.Repository
	Roles      *roles.Service
	Users      *users.Service
	Audit      *audit.Service
	Governance *governance.Service
	Cache      *governance.Cache
}

// NewServices wires repositories and services over pool and redisClient.
// Governance gauges register against registerer.
func NewServices(cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, registerer prometheus.Registerer) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	govCache := governance.NewCache(redisClient, cfg.GovernanceCacheTTL, logger)

	userRepo := users.NewRepository(pool)
	roleService := roles.NewService(roles.NewRepository(pool), govCache, logger)
	auditService := audit.NewService(audit.NewRepository(pool), cfg.AuditDefaultPerPage)

	return &Services{
		Sessions:   shared.NewSessionStore(redisClient, cfg.SessionPrefix, cfg.SessionTTL),
		Principals: userRepo,
		Roles:      roleService,
		Users:      users.NewService(userRepo, govCache, logger, cfg.UsersDefaultPerPage),
		Audit:      auditService,
		Governance: governance.NewService(roleService, auditService, govCache, governance.NewMetrics(registerer),
			governance.Config{OverprivilegedThreshold: cfg.OverprivilegedThreshold, Logger: logger}),
		Cache: govCache,
	}
}

// Handler builds the HTTP API on top of the services.
func (s *Services) Handler(cfg *Config, logger *slog.Logger, metrics *observability.Metrics, jobHandler *jobs.Handler) http.Handler {
	mw := rbac.Middleware{Sessions: s.Sessions, Principals: s.Principals, Logger: logger}
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		RBACMiddleware:    mw,
		RolesHandler:      roles.NewHandler(logger, s.Roles, mw),
		UsersHandler:      users.NewHandler(logger, s.Users, mw),
		GovernanceHandler: governance.NewHandler(logger, s.Governance, mw),
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})
}
