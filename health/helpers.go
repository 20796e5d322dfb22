package health

import (
	"fmt"
	"time"
)

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   true,
		Status:    "healthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "unhealthy",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return Status{
		Component: component,
		Healthy:   false,
		Status:    "degraded",
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate creates a status by aggregating sub-statuses
// The aggregation rules are:
// - If all sub-statuses are healthy, the aggregate is healthy
// - If any sub-status is unhealthy, the aggregate is unhealthy
// - If no sub-status is unhealthy but at least one is degraded, the aggregate is degraded
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewHealthy(component, "No sub-components to aggregate")
	}

	hasUnhealthy := false
	hasDegraded := false

	for _, sub := range subStatuses {
		if sub.IsUnhealthy() {
			hasUnhealthy = true
		} else if sub.IsDegraded() {
			hasDegraded = true
		}
	}

	var status Status
	if hasUnhealthy {
		status = NewUnhealthy(component, "One or more sub-components are unhealthy")
	} else if hasDegraded {
		status = NewDegraded(component, "One or more sub-components are degraded")
	} else {
		status = NewHealthy(component, "All sub-components are healthy")
	}

	status.SubStatuses = make([]Status, len(subStatuses))
	copy(status.SubStatuses, subStatuses)

	return status
}

// FromPoolSweep converts a pool health sweep into a component status:
// all engines live is healthy, none live is unhealthy, anything in
// between is degraded.
func FromPoolSweep(component string, results []bool) Status {
	if len(results) == 0 {
		return NewUnhealthy(component, "No engines in pool")
	}

	live := 0
	for _, healthy := range results {
		if healthy {
			live++
		}
	}

	message := fmt.Sprintf("%d/%d engines healthy", live, len(results))
	switch live {
	case len(results):
		return NewHealthy(component, message)
	case 0:
		return NewUnhealthy(component, message)
	default:
		return NewDegraded(component, message)
	}
}
