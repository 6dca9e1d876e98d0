package models

// SystemMetrics is a lightweight aggregate snapshot exposed alongside the
// Prometheus endpoint.
type SystemMetrics struct {
	RequestCount      uint64  `json:"request_count"`
	AvgRequestMs      float64 `json:"avg_request_ms"`
	CacheHitRatio     float64 `json:"cache_hit_ratio"`
	SweepRuns         uint64  `json:"sweep_runs"`
	SessionsConsumed  uint64  `json:"sessions_consumed"`
	SweepFailures     uint64  `json:"sweep_failures"`
	NotificationsSent uint64  `json:"notifications_sent"`
}
