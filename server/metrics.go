package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics собирает счетчики сервера. Каждый сервер держит собственный
// реестр, чтобы несколько экземпляров (например, в тестах) не
// конфликтовали при регистрации коллекторов.
type Metrics struct {
	registry *prometheus.Registry

	activeSessions   prometheus.Gauge
	connectionsTotal prometheus.Counter
	framesTotal      *prometheus.CounterVec
	messagesRouted   *prometheus.CounterVec
	errorsTotal      prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "chatd_active_sessions",
			Help: "Number of live connections",
		}),
		connectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatd_connections_total",
			Help: "Total accepted connections",
		}),
		framesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatd_frames_total",
			Help: "Frames dispatched by message type",
		}, []string{"type"}),
		messagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chatd_messages_routed_total",
			Help: "Routed chat messages by delivery path",
		}, []string{"delivery"}),
		errorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "chatd_errors_total",
			Help: "Error and rejection frames sent to clients",
		}),
	}
}

func (m *Metrics) RecordActiveSessions(n int) {
	m.activeSessions.Set(float64(n))
}

func (m *Metrics) RecordConnection() {
	m.connectionsTotal.Inc()
}

func (m *Metrics) RecordFrame(msgType uint16) {
	m.framesTotal.WithLabelValues(strconv.Itoa(int(msgType))).Inc()
}

func (m *Metrics) RecordRouted(delivery string) {
	m.messagesRouted.WithLabelValues(delivery).Inc()
}

func (m *Metrics) RecordError() {
	m.errorsTotal.Inc()
}

// Handler отдает /metrics для внутреннего HTTP-порта
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
