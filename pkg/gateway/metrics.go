package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus metrics exposed by the gateway.
type Metrics struct {
	connectionsTotal *prometheus.CounterVec
	activeConns      prometheus.Gauge
	sessionsJoined   prometheus.Counter
	roomsActive      prometheus.GaugeFunc

	registry *prometheus.Registry
}

// NewMetrics creates and registers the gateway's metrics. liveRooms is
// polled on scrape to report the current room count without the gateway
// having to push updates itself.
func NewMetrics(liveRooms func() int) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		connectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tilekeep_gateway_connections_total",
				Help: "Total WebSocket connections by outcome",
			},
			[]string{"outcome"}, // "opened", "failed", "closed"
		),
		activeConns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tilekeep_gateway_connections_active",
				Help: "Number of currently open WebSocket connections",
			},
		),
		sessionsJoined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tilekeep_gateway_sessions_joined_total",
				Help: "Total sessions that completed the join handshake",
			},
		),
		registry: registry,
	}
	m.roomsActive = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "tilekeep_gateway_rooms_active",
			Help: "Number of rooms currently held open by the registry",
		},
		func() float64 { return float64(liveRooms()) },
	)

	registry.MustRegister(m.connectionsTotal, m.activeConns, m.sessionsJoined, m.roomsActive)
	return m
}

// Handler exposes the metrics registry over HTTP for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ConnectionOpened records a successful WebSocket upgrade.
func (m *Metrics) ConnectionOpened() {
	m.connectionsTotal.WithLabelValues("opened").Inc()
	m.activeConns.Inc()
}

// ConnectionFailed records a connection that was upgraded but never
// completed the join handshake.
func (m *Metrics) ConnectionFailed() {
	m.connectionsTotal.WithLabelValues("failed").Inc()
	m.activeConns.Dec()
}

// ConnectionClosed records a connection's read/write pumps exiting.
func (m *Metrics) ConnectionClosed() {
	m.connectionsTotal.WithLabelValues("closed").Inc()
	m.activeConns.Dec()
}

// SessionJoined records a session that completed the join handshake and
// was handed to a room.
func (m *Metrics) SessionJoined() {
	m.sessionsJoined.Inc()
}
