// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Label values for resolution outcomes.
const (
	// OutcomeFound is recorded when a provider returned an image.
	OutcomeFound = "found"
	// OutcomeEmpty is recorded when a provider answered without an image.
	OutcomeEmpty = "empty"
	// OutcomeError is recorded when a provider call failed.
	OutcomeError = "error"

	// LabelUnknown is used when an error carries no provider kind.
	LabelUnknown = "unknown"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~16s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~20s range).
	BucketStart10ms = 0.01

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics server.
const ShutdownTimeout = 5 * time.Second
