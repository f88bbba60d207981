// Package metrics holds the process-wide prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BusDroppedTotal counts events dropped at publish time, by topic and reason.
	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storagecore",
		Subsystem: "bus",
		Name:      "dropped_total",
		Help:      "Events dropped because the publish context ended.",
	}, []string{"topic", "reason"})

	// HTTPRequestsTotal counts handled HTTP requests by route and status class.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storagecore",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests.",
	}, []string{"route", "status"})

	// RuleViolationsTotal counts catalog rule violations by rule and severity.
	RuleViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storagecore",
		Subsystem: "catalog",
		Name:      "rule_violations_total",
		Help:      "Catalog rule violations observed at commit time.",
	}, []string{"rule", "severity"})
)

// IncBusDropReason records one dropped publish.
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
