package sink

import (
	"sync"
	"time"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/autopatch/autopatch/pkg/internal/logfields"
	"github.com/autopatch/autopatch/pkg/logging"
	"github.com/autopatch/autopatch/pkg/marker"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "autopatch"

// Metrics summarises a run for node_exporter's textfile collector. The file
// is only written on Close, replacing the previous run's.
type Metrics struct {
	log  logging.Logger
	path string

	mu       sync.Mutex
	observed bool
	now      func() time.Time

	registry       *prometheus.Registry
	lastRun        prometheus.Gauge
	lastRunSuccess prometheus.Gauge
	rebootRequired prometheus.Gauge
	steps          *prometheus.GaugeVec
	services       *prometheus.GaugeVec
}

var _ event.Sink = (*Metrics)(nil)

// NewMetrics writes its textfile to path on Close.
func NewMetrics(path string) *Metrics {
	m := &Metrics{
		log:  logging.New("metrics"),
		path: path,
		now:  time.Now,

		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last maintenance run finished.",
		}),
		lastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "Whether the last maintenance run completed without a fatal step failure.",
		}),
		rebootRequired: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reboot_required",
			Help:      "Whether the reboot-required sentinel was present during the last run.",
		}),
		steps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "step_result",
			Help:      "Result of each workflow step in the last run.",
		}, []string{"action", "result"}),
		services: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "service_restart",
			Help:      "Outcome of each service restart in the last run.",
		}, []string{"service", "result"}),
	}
	m.registry.MustRegister(m.lastRun, m.lastRunSuccess, m.rebootRequired, m.steps, m.services)
	return m
}

func (m *Metrics) Write(e event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observed = true

	switch e.Action {
	case marker.ActionServiceRestart:
		m.services.WithLabelValues(e.Service, e.Result).Set(1)
		return nil
	case marker.ActionRebootCheck:
		if e.Result == marker.ResultRequired {
			m.rebootRequired.Set(1)
		} else {
			m.rebootRequired.Set(0)
		}
	}
	m.steps.WithLabelValues(e.Action, e.Result).Set(1)

	switch {
	case e.Action == marker.ActionEnd:
		m.finish(true)
	case e.Result == marker.ResultFailure && e.Action != marker.ActionReboot:
		// Update, upgrade and cleanup failures end the run.
		m.log.WithFields(logfields.Event(e)).Debug("recording failed run")
		m.finish(false)
	}
	return nil
}

func (m *Metrics) finish(success bool) {
	m.lastRun.Set(float64(m.now().Unix()))
	if success {
		m.lastRunSuccess.Set(1)
	} else {
		m.lastRunSuccess.Set(0)
	}
}

// Close writes the collected metrics. Nothing is written for a run that
// emitted no events.
func (m *Metrics) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.observed {
		return nil
	}
	return errors.Wrap(prometheus.WriteToTextfile(m.path, m.registry), "unable to write metrics textfile")
}
