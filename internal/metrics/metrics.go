// Package metrics exposes Prometheus collectors for mediation runs, wired in
// through lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/parley-dev/parley/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors holds the metric set for a mediation run.
type Collectors struct {
	registry *prometheus.Registry

	roundsTotal     prometheus.Counter
	turnsTotal      *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	turnDuration    *prometheus.HistogramVec
	convergenceStat prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Collectors {
	c := &Collectors{
		registry: prometheus.NewRegistry(),
		roundsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_rounds_total",
			Help: "Total number of completed discussion rounds",
		}),
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_turns_total",
			Help: "Total number of participant turns by outcome",
		}, []string{"participant", "outcome"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "parley_provider_retries_total",
			Help: "Total number of retried provider calls",
		}, []string{"participant"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "parley_turn_duration_seconds",
			Help: "Duration of provider calls per turn",
		}, []string{"participant"}),
		convergenceStat: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "parley_convergence_stat",
			Help: "Aggregate convergence statistic of the latest round",
		}),
	}

	c.registry.MustRegister(
		c.roundsTotal,
		c.turnsTotal,
		c.retriesTotal,
		c.turnDuration,
		c.convergenceStat,
	)
	return c
}

// Hooks returns lifecycle hooks that feed the collectors.
func (c *Collectors) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRoundComplete: func(ctx context.Context, e *domain.RoundEvent) {
			c.roundsTotal.Inc()
			c.convergenceStat.Set(float64(e.Stat))
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			outcome := "ok"
			if e.Failed {
				outcome = "failed"
			}
			c.turnsTotal.WithLabelValues(e.Participant, outcome).Inc()
			c.turnDuration.WithLabelValues(e.Participant).Observe(e.Duration.Seconds())
		},
		OnProviderRetry: func(ctx context.Context, e *domain.RetryEvent) {
			c.retriesTotal.WithLabelValues(e.Participant).Inc()
		},
	}
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
