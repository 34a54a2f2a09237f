// Package metrics exposes Prometheus collectors for HTTP traffic and lesson events.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aliskhannn/lesson-engine/internal/domain/entities"
)

const namespace = "lessond"

// Metrics holds every collector of the service.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	sessionsStarted prometheus.Counter
	sessionLength   prometheus.Histogram
	answers         *prometheus.CounterVec
	sessionsDone    prometheus.Counter
	itemsLearned    prometheus.Counter
}

// New creates the collectors and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"method", "endpoint"},
		),
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Learning sessions started",
		}),
		sessionLength: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_exercises",
			Help:      "Number of planned exercises per session",
			Buckets:   prometheus.LinearBuckets(5, 5, 10),
		}),
		answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Answers recorded by exercise type and outcome",
			},
			[]string{"exercise_type", "result"},
		),
		sessionsDone: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Learning sessions answered to the end",
		}),
		itemsLearned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_learned_total",
			Help:      "Items promoted to learned",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.sessionsStarted,
		m.sessionLength,
		m.answers,
		m.sessionsDone,
		m.itemsLearned,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) SessionStarted(exercises int) {
	m.sessionsStarted.Inc()
	m.sessionLength.Observe(float64(exercises))
}

func (m *Metrics) AnswerRecorded(exType entities.ExerciseType, isCorrect bool) {
	m.answers.WithLabelValues(string(exType), string(entities.ResultOf(isCorrect))).Inc()
}

func (m *Metrics) SessionFinished() {
	m.sessionsDone.Inc()
}

func (m *Metrics) ItemLearned() {
	m.itemsLearned.Inc()
}
