// /internal/loadgen/config.go

package loadgen

import (
	"net/url"
	"strconv"
)

const (
	// DefaultTotalRequests and DefaultTargetURL are used when only the thread
	// count is given on the command line.
	DefaultTotalRequests = 500000
	DefaultTargetURL     = "http://localhost:8000/"
)

// RunConfiguration is built once from the process arguments and never
// modified afterwards.
type RunConfiguration struct {
	ThreadCount   int
	TotalRequests int
	TargetURL     string
}

// ParseArgs builds a RunConfiguration from <thread_count> [total_requests] [target_url].
func ParseArgs(args []string) (*RunConfiguration, error) {
	if len(args) == 0 {
		return nil, &ArgumentError{Argument: "thread_count", Reason: "missing"}
	}
	if len(args) > 3 {
		return nil, &ArgumentError{Argument: "arguments", Reason: "expected at most 3"}
	}

	threadCount, err := parseCount("thread_count", args[0])
	if err != nil {
		return nil, err
	}

	runConfiguration := &RunConfiguration{
		ThreadCount:   threadCount,
		TotalRequests: DefaultTotalRequests,
		TargetURL:     DefaultTargetURL,
	}

	if len(args) > 1 {
		if runConfiguration.TotalRequests, err = parseCount("total_requests", args[1]); err != nil {
			return nil, err
		}
	}

	if len(args) > 2 {
		runConfiguration.TargetURL = args[2]
	}

	if err := runConfiguration.Validate(); err != nil {
		return nil, err
	}

	return runConfiguration, nil
}

// Validate checks the invariants the runner relies on.
func (rc *RunConfiguration) Validate() error {
	if rc.ThreadCount <= 0 {
		return &ArgumentError{
			Argument: "thread_count",
			Value:    strconv.Itoa(rc.ThreadCount),
			Reason:   "must be greater than zero",
		}
	}

	if rc.TotalRequests <= 0 {
		return &ArgumentError{
			Argument: "total_requests",
			Value:    strconv.Itoa(rc.TotalRequests),
			Reason:   "must be greater than zero",
		}
	}

	// every worker must issue at least one request or its elapsed time is
	// meaningless as a denominator
	if rc.TotalRequests < rc.ThreadCount {
		return &ArgumentError{
			Argument: "total_requests",
			Value:    strconv.Itoa(rc.TotalRequests),
			Reason:   "must be at least thread_count",
		}
	}

	parsedURL, err := url.Parse(rc.TargetURL)
	if err != nil {
		return &ArgumentError{Argument: "target_url", Value: rc.TargetURL, Reason: err.Error()}
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ArgumentError{Argument: "target_url", Value: rc.TargetURL, Reason: "scheme must be http or https"}
	}
	if parsedURL.Host == "" {
		return &ArgumentError{Argument: "target_url", Value: rc.TargetURL, Reason: "missing host"}
	}

	return nil
}

// RequestsPerWorker is the number of requests each worker issues.
func (rc *RunConfiguration) RequestsPerWorker() int {
	return WorkerShare(rc.TotalRequests, rc.ThreadCount)
}

func parseCount(name string, value string) (int, error) {
	count, err := strconv.Atoi(value)
	if err != nil {
		return 0, &ArgumentError{Argument: name, Value: value, Reason: "not an integer"}
	}
	return count, nil
}
