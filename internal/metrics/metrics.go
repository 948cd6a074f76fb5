package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onlyme",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of backend requests by outcome.",
		},
		[]string{"method", "resource", "status"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "onlyme",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "resource"},
	)

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onlyme",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of points operations by result.",
		},
		[]string{"operation", "result"},
	)

	realtimeReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "onlyme",
			Subsystem: "realtime",
			Name:      "reloads_total",
			Help:      "Total number of full reloads triggered by change notifications.",
		},
		[]string{"list"},
	)

	statusesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "onlyme",
			Subsystem: "statuses",
			Name:      "created_total",
			Help:      "Total number of statuses created.",
		},
	)
)

func init() {
	Registry.MustRegister(
		gatewayRequests,
		gatewayDuration,
		ledgerOperations,
		realtimeReloads,
		statusesCreated,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an echo handler exposing the registered metrics.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}

// ObserveGatewayRequest matches supabase.RequestObserver. Status 0 means the
// request never got a response.
func ObserveGatewayRequest(method, resource string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	gatewayRequests.WithLabelValues(method, resource, label).Inc()
	gatewayDuration.WithLabelValues(method, resource).Observe(elapsed.Seconds())
}

// RecordLedgerOperation counts a wallet or unlock operation.
func RecordLedgerOperation(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ledgerOperations.WithLabelValues(operation, result).Inc()
}

func RecordReload(list string) {
	realtimeReloads.WithLabelValues(list).Inc()
}

func RecordStatusCreated() {
	statusesCreated.Inc()
}

