// /internal/loadgen/throughput.go

package loadgen

import (
	"time"
)

// WorkerShare is total/threads; the remainder is dropped, not redistributed.
func WorkerShare(totalRequests int, threadCount int) int {
	return totalRequests / threadCount
}

// MaxElapsed returns the slowest duration, or zero for an empty slice.
func MaxElapsed(durations []time.Duration) time.Duration {
	var max time.Duration
	for _, duration := range durations {
		if duration > max {
			max = duration
		}
	}
	return max
}

// Throughput is totalRequests divided by the slowest worker's wall-clock time,
// in requests per second. The numerator is the configured total even when a
// worker stopped early.
func Throughput(totalRequests int, maxElapsed time.Duration) float64 {
	return float64(totalRequests) / maxElapsed.Seconds()
}
