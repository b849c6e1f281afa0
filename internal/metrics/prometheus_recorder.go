package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	sweepDuration      prom.Histogram
	sweepResults       *prom.CounterVec
	plantsNeedingWater prom.Gauge
	notifications      *prom.CounterVec
	sweepRetries       prom.Counter
}

// NewPrometheusRecorder registers the plantpal metrics on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		sweepDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "plantpal",
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Duration of reminder sweeps",
			Buckets:   prom.DefBuckets,
		}),
		sweepResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "plantpal",
			Name:      "reminder_sweeps_total",
			Help:      "Reminder sweeps by result",
		}, []string{"result"}),
		plantsNeedingWater: prom.NewGauge(prom.GaugeOpts{
			Namespace: "plantpal",
			Name:      "plants_needing_water",
			Help:      "Plants found needing water by the last sweep",
		}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "plantpal",
			Name:      "notifications_total",
			Help:      "Watering notifications by result",
		}, []string{"result"}),
		sweepRetries: prom.NewCounter(prom.CounterOpts{
			Namespace: "plantpal",
			Name:      "reminder_sweep_retries_total",
			Help:      "Reminder sweeps re-run after a failure",
		}),
	}
	reg.MustRegister(pr.sweepDuration, pr.sweepResults, pr.plantsNeedingWater, pr.notifications, pr.sweepRetries)
	return pr
}

func (p *PrometheusRecorder) ObserveSweepDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.sweepDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncSweepResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.sweepResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) SetPlantsNeedingWater(n int) {
	if p == nil {
		return
	}
	p.plantsNeedingWater.Set(float64(n))
}

func (p *PrometheusRecorder) IncNotificationResult(result ResultLabel) {
	if p == nil {
		return
	}
	p.notifications.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncSweepRetry() {
	if p == nil {
		return
	}
	p.sweepRetries.Inc()
}

// HTTPHandler serves the metrics registered on reg.
func HTTPHandler(reg *prom.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
