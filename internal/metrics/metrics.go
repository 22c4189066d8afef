package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	// Cart and session
	CartMutations   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	PendingReplayed prometheus.Counter
	PersistFailures prometheus.Counter

	ChangelogAppended prometheus.Counter
	ChangelogFailures prometheus.Counter

	// Checkout
	CheckoutCompleted prometheus.Counter
	CheckoutFailed    *prometheus.CounterVec
	OrderValue        prometheus.Histogram

	// Recovery
	Applied            prometheus.Counter
	Skipped            prometheus.Counter
	TTRSec             prometheus.Gauge
	LastManifestAgeSec prometheus.Gauge
	SnapshotsPublished prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "storefront_cart_mutations_total"}, []string{"op"})
	active := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storefront_active_sessions"})
	pending := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_pending_replayed_total"})
	persistFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_cart_persist_failures_total"})

	changelogAppended := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_changelog_appended_total"})
	changelogFail := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_changelog_failures_total"})

	completed := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_checkout_completed_total"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "storefront_checkout_failed_total"}, []string{"reason"})
	orderValue := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storefront_order_value_inr",
		Buckets: []float64{1000, 2500, 5000, 10000, 25000, 50000, 100000},
	})

	applied := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_replay_applied_total"})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_replay_skipped_total"})
	ttr := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storefront_recovery_ttr_seconds"})
	lastAge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "storefront_last_manifest_age_seconds"})
	snapshots := prometheus.NewCounter(prometheus.CounterOpts{Name: "storefront_snapshots_published_total"})

	r.MustRegister(mutations, active, pending, persistFail, changelogAppended, changelogFail,
		completed, failed, orderValue, applied, skipped, ttr, lastAge, snapshots)
	return &Registry{
		reg:                r,
		CartMutations:      mutations,
		ActiveSessions:     active,
		PendingReplayed:    pending,
		PersistFailures:    persistFail,
		ChangelogAppended:  changelogAppended,
		ChangelogFailures:  changelogFail,
		CheckoutCompleted:  completed,
		CheckoutFailed:     failed,
		OrderValue:         orderValue,
		Applied:            applied,
		Skipped:            skipped,
		TTRSec:             ttr,
		LastManifestAgeSec: lastAge,
		SnapshotsPublished: snapshots,
	}
}

// Gather exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gather() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
