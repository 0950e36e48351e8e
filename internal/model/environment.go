package model

import "time"

// EnvironmentHealth represents the last known health of a pooled environment.
type EnvironmentHealth string

const (
	// EnvironmentHealthUnknown indicates the environment has not been probed yet.
	EnvironmentHealthUnknown EnvironmentHealth = "unknown"
	// EnvironmentHealthHealthy indicates the environment passed its last health check.
	EnvironmentHealthHealthy EnvironmentHealth = "healthy"
	// EnvironmentHealthUnhealthy indicates the environment failed its last health check.
	EnvironmentHealthUnhealthy EnvironmentHealth = "unhealthy"
)

// Environment represents one leased-or-idle execution environment owned by
// the pool. At most one caller holds Busy=true on a given ID at a time, the
// executor borrows it for one script run and must return it on every exit
// path.
type Environment struct {
	ID         string
	Image      string
	Busy       bool
	CreatedAt  time.Time
	LastUsedAt time.Time
	Health     EnvironmentHealth
}

// EnvironmentState is the runtime-reported state of an environment, used by
// the pool's health checks.
type EnvironmentState struct {
	Running bool
	// HealthStatus is the runtime-native health status ("healthy",
	// "unhealthy", "starting") or empty when the image defines no healthcheck.
	HealthStatus string
	CreatedAt    time.Time
}
