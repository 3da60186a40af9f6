package model

import "time"

type (
	HealthStatus string

	DependencyStatus string

	DependencyCheck struct {
		Status      DependencyStatus
		LatencyMs   uint64
		Message     string
		LastChecked time.Time
	}

	LivenessReport struct {
		Status    HealthStatus
		Timestamp time.Time
		Version   string
	}

	ReadinessReport struct {
		Status    HealthStatus
		Timestamp time.Time
		Version   string
		Checks    map[string]DependencyCheck
	}
)

const (
	HealthStatusOK       HealthStatus = "ok"
	HealthStatusDegraded HealthStatus = "degraded"
	HealthStatusDown     HealthStatus = "down"

	DependencyStatusUp   DependencyStatus = "up"
	DependencyStatusDown DependencyStatus = "down"
)
