package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	connectAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_connect_attempts_total",
		Help: "gateway session acquisition attempts",
	}, []string{"client_id", "result"})

	sessionConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "relay_session_connected",
		Help: "1 while a gateway session is live",
	})

	commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_commands_total",
		Help: "chat commands handled",
	}, []string{"command", "result"})

	orderSubmissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_order_submissions_total",
		Help: "orders submitted to the gateway",
	}, []string{"leg", "status"})
)

func init() {
	prometheus.MustRegister(connectAttempts, sessionConnected, commands, orderSubmissions)
}

func ConnectAttempt(clientID int, result string) {
	connectAttempts.WithLabelValues(strconv.Itoa(clientID), result).Inc()
}

func SessionConnected(up bool) {
	if up {
		sessionConnected.Set(1)
		return
	}
	sessionConnected.Set(0)
}

func Command(name, result string) {
	commands.WithLabelValues(name, result).Inc()
}

func OrderSubmitted(leg, status string) {
	orderSubmissions.WithLabelValues(leg, status).Inc()
}
