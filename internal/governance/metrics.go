package governance

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics publishes the latest health report as gauges.
type Metrics struct {
	unused         prometheus.Gauge
	overprivileged prometheus.Gauge
	orphans        prometheus.Gauge
	score          prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// NewMetrics registers governance gauges. A nil registerer uses the default
// Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultMetrics = buildMetrics(prometheus.DefaultRegisterer)
		})
		return defaultMetrics
	}
	return buildMetrics(registerer)
}

// Observe records the counts of report.
func (m *Metrics) Observe(report Report) {
	if m == nil {
		return
	}
	m.unused.Set(float64(report.Summary.UnusedRolesCount))
	m.overprivileged.Set(float64(report.Summary.OverprivilegedRolesCount))
	m.orphans.Set(float64(report.Summary.OrphanPermissionsCount))
	m.score.Set(float64(report.HealthScore))
}

func buildMetrics(registerer prometheus.Registerer) *Metrics {
	unused := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hrms_governance_unused_roles",
		Help: "Custom roles with no users assigned.",
	})
	overprivileged := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hrms_governance_overprivileged_roles",
		Help: "Non-admin roles holding more permissions than the threshold.",
	})
	orphans := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hrms_governance_orphan_permissions",
		Help: "Permissions not owned by any role.",
	})
	score := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hrms_governance_health_score",
		Help: "Derived role health score between 0 and 100.",
	})
	registerer.MustRegister(unused, overprivileged, orphans, score)
	return &Metrics{unused: unused, overprivileged: overprivileged, orphans: orphans, score: score}
}
