// Package metrics records the outcome of a run as Prometheus gauges.
//
// A run is a short-lived batch job, so nothing is scraped; the gauges are
// pushed to a Pushgateway at the end of the run when one is configured.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "garoonsync"

// Recorder holds the run gauges on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	EventsFetched  prometheus.Gauge
	EventsExported prometheus.Gauge
	EventsSkipped  prometheus.Gauge
	RunDuration    prometheus.Gauge
	LastSuccess    prometheus.Gauge
}

func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		EventsFetched: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_fetched",
			Help:      "Number of events returned by Garoon in the last run",
		}),
		EventsExported: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_exported",
			Help:      "Number of events written by the last run",
		}),
		EventsSkipped: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_skipped",
			Help:      "Number of invalid events dropped by the last run",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last run in seconds",
		}),
		LastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run",
		}),
	}
}

// Observe records the counts of a finished run. LastSuccess is only
// moved when the run succeeded.
func (r *Recorder) Observe(fetched, exported, skipped int, took time.Duration, finished time.Time, ok bool) {
	r.EventsFetched.Set(float64(fetched))
	r.EventsExported.Set(float64(exported))
	r.EventsSkipped.Set(float64(skipped))
	r.RunDuration.Set(took.Seconds())
	if ok {
		r.LastSuccess.Set(float64(finished.Unix()))
	}
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// Push replaces the job's metric group on the Pushgateway at url.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
