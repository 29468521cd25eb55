// Package metrics provides Prometheus metrics for tree models.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattsolo1/grove-datatree/pkg/tree"
	"github.com/mattsolo1/grove-datatree/pkg/treemodel"
)

var (
	modelEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtree_model_events_total",
			Help: "Total number of model events emitted",
		},
		[]string{"kind"},
	)

	modelEventNodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtree_model_event_nodes_total",
			Help: "Total number of node positions reported by model events",
		},
		[]string{"kind"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dtree_refresh_duration_seconds",
			Help:    "Time to refresh the dirty nodes of a model",
			Buckets: prometheus.DefBuckets,
		},
	)

	refreshedNodesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dtree_refreshed_nodes_total",
			Help: "Total number of dirty nodes processed by refreshes",
		},
	)

	dirtyNodes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dtree_dirty_nodes",
			Help: "Number of nodes waiting for a refresh",
		},
	)

	watchEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dtree_watch_events_total",
			Help: "Total filesystem events routed to the model",
		},
		[]string{"result"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument counts the model's events. The returned function removes the listeners.
func Instrument(m *treemodel.Model) func() {
	items := func(kind string) func(tree.ItemsChange) {
		return func(c tree.ItemsChange) {
			modelEventsTotal.WithLabelValues(kind).Inc()
			modelEventNodesTotal.WithLabelValues(kind).Add(float64(len(c.Indices)))
		}
	}
	subs := []treemodel.Subscription{
		m.OnNodesRemoved(items("removed")),
		m.OnNodesInserted(items("inserted")),
		m.OnStructureChanged(func(tree.StructureChange) {
			modelEventsTotal.WithLabelValues("structure").Inc()
		}),
		m.OnNodesChanged(items("changed")),
	}
	return func() {
		for _, s := range subs {
			m.Unsubscribe(s)
		}
	}
}

// RecordRefresh records one model refresh.
func RecordRefresh(processed int, duration time.Duration) {
	refreshDuration.Observe(duration.Seconds())
	refreshedNodesTotal.Add(float64(processed))
}

// SetDirtyNodes sets the number of nodes waiting for a refresh.
func SetDirtyNodes(count int) {
	dirtyNodes.Set(float64(count))
}

// RecordWatchEvent records a filesystem event and whether it resolved to a node.
func RecordWatchEvent(resolved bool) {
	result := "resolved"
	if !resolved {
		result = "ignored"
	}
	watchEventsTotal.WithLabelValues(result).Inc()
}
