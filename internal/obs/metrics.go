package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var actionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "admin_actions_total",
		Help: "Administrative actions dispatched, by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// Init registers the metrics in the default registry.
func Init() {
	prometheus.MustRegister(actionsTotal)
}

// ActionProcessed counts one dispatched admin action.
func ActionProcessed(action, outcome string) {
	actionsTotal.WithLabelValues(action, outcome).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
