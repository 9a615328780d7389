// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bookstore"

var (
	CatalogCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog_cache",
		Name:      "lookups_total",
		Help:      "Catalog page lookups by result (hit, miss).",
	}, []string{"result"})

	CatalogCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog_cache",
		Name:      "invalidations_total",
		Help:      "Whole-catalog invalidation passes.",
	})

	CatalogCacheEvictedKeys = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "catalog_cache",
		Name:      "evicted_keys_total",
		Help:      "Keys evicted by invalidation passes.",
	})

	RentalOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rentals",
		Name:      "outcomes_total",
		Help:      "Rental ledger operations by outcome.",
	}, []string{"operation", "outcome"})

	AuthOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "auth",
		Name:      "outcomes_total",
		Help:      "Authentication operations by outcome.",
	}, []string{"operation", "outcome"})
)
