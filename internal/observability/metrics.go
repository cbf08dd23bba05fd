package observability

// Metrics provides counter, gauge, and histogram recording primitives.
type Metrics interface {
	IncCounter(name string, value float64, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

var defaultMetrics Metrics = noopMetrics{}

// SetMetrics overrides the global metrics implementation used by the engine.
func SetMetrics(metrics Metrics) {
	if metrics == nil {
		defaultMetrics = noopMetrics{}
		return
	}
	defaultMetrics = metrics
}

// Telemetry returns the current global metrics collector.
func Telemetry() Metrics {
	return defaultMetrics
}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, float64, map[string]string)       {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (noopMetrics) SetGauge(string, float64, map[string]string)         {}

// Metric names emitted by the engine.
const (
	MetricFramesReceived   = "venuelink_ws_frames_received_total"
	MetricReconnects       = "venuelink_ws_reconnects_total"
	MetricUpdatesDispatch  = "venuelink_ws_updates_dispatched_total"
	MetricProtocolErrors   = "venuelink_ws_protocol_errors_total"
	MetricRESTRequests     = "venuelink_rest_requests_total"
	MetricRESTThrottleWait = "venuelink_rest_throttle_wait_seconds"
)
