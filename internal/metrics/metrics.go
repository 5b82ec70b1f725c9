// Package metrics counts what flows through the ledger. A nil *Metrics is
// valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	collectionsCreated   prometheus.Counter
	measurementsIngested prometheus.Counter
	collectionsDeleted   prometheus.Counter
	migrationSkipped     prometheus.Counter
}

// New creates the counters and registers them with registerer. A nil
// registerer leaves them unregistered.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	metrics := &Metrics{
		collectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "living_power_collections_created_total",
			Help: "Measurement collection records written, one per chunk.",
		}),
		measurementsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "living_power_measurements_ingested_total",
			Help: "Measurements written into collection records.",
		}),
		collectionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "living_power_collections_deleted_total",
			Help: "Measurement collections deleted.",
		}),
		migrationSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "living_power_migration_skipped_total",
			Help: "Legacy collections skipped during migration because they were already present.",
		}),
	}

	if registerer != nil {
		for _, collector := range metrics.collectors() {
			if err := registerer.Register(collector); err != nil {
				return nil, err
			}
		}
	}

	return metrics, nil
}

func (metrics *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		metrics.collectionsCreated,
		metrics.measurementsIngested,
		metrics.collectionsDeleted,
		metrics.migrationSkipped,
	}
}

func (metrics *Metrics) CollectionCreated(measurements int) {
	if metrics == nil {
		return
	}
	metrics.collectionsCreated.Inc()
	metrics.measurementsIngested.Add(float64(measurements))
}

func (metrics *Metrics) CollectionDeleted() {
	if metrics == nil {
		return
	}
	metrics.collectionsDeleted.Inc()
}

func (metrics *Metrics) MigrationSkipped() {
	if metrics == nil {
		return
	}
	metrics.migrationSkipped.Inc()
}
