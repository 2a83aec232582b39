// Package metrics отдаёт счётчики и гистограммы сервиса в Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agroscan/internal/domain/entity"
	"agroscan/internal/domain/port"
)

const namespace = "agroscan"

// Metrics держит собственный реестр, экземпляры не мешают друг другу.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	inference     prometheus.Histogram
	inferenceErrs prometheus.Counter
	diagnoses     *prometheus.CounterVec
	findings      *prometheus.CounterVec
}

// New регистрирует коллекторы в новом реестре.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		inference: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Time spent in the leaf classifier.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		inferenceErrs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_errors_total",
			Help:      "Failed classifier runs.",
		}),
		diagnoses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnoses_total",
			Help:      "Completed diagnoses by primary label; none when nothing passed the threshold.",
		}, []string{"primary"}),
		findings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Labels that passed the threshold, primary and secondary.",
		}, []string{"label"}),
	}
}

// Handler отдаёт реестр в формате Prometheus.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry возвращает реестр.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveHTTP учитывает завершённый запрос.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveInference учитывает запуск классификатора.
func (m *Metrics) ObserveInference(elapsed time.Duration, err error) {
	if err != nil {
		m.inferenceErrs.Inc()
		return
	}
	m.inference.Observe(elapsed.Seconds())
}

// ObserveDiagnosis учитывает итог анализа.
func (m *Metrics) ObserveDiagnosis(d *entity.Diagnosis) {
	primary, ok := d.Primary()
	if !ok {
		m.diagnoses.WithLabelValues("none").Inc()
		return
	}
	m.diagnoses.WithLabelValues(primary.Label).Inc()
	for _, f := range d.Findings {
		m.findings.WithLabelValues(f.Label).Inc()
	}
}

var _ port.DiagnosisObserver = (*Metrics)(nil)
