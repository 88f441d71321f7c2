package health

import "time"

type BasicHealthResponse struct {
	Message string `json:"message"`
}

type HealthCheck struct {
	Status     string `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status     string                 `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	DurationMs int64                  `json:"duration_ms"`
	Checks     map[string]HealthCheck `json:"checks"`
}
