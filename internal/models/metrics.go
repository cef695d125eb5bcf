package models

import "time"

// SystemMetrics is a lightweight aggregate snapshot exposed on the health
// surface, alongside the full Prometheus registry.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	RemoteCallCount          uint64    `json:"remote_call_count"`
	AverageRemoteCallMs      float64   `json:"average_remote_call_ms"`
	MountedConsoles          int       `json:"mounted_consoles"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
