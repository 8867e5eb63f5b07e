package metrics

import "time"

// StageCompleted records a stage outcome and its duration.
func StageCompleted(stage, status string, duration time.Duration) {
	StageOutcomes.WithLabelValues(stage, status).Inc()
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// PhotoUploaded records a photo upload attempt. parent is "inspection" or
// "issue".
func PhotoUploaded(parent string, err error) {
	PhotoUploads.WithLabelValues(parent, outcome(err)).Inc()
}

// GatewayCall records a property management API call.
func GatewayCall(operation string, duration time.Duration, err error) {
	GatewayCalls.WithLabelValues(operation, outcome(err)).Inc()
	GatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
