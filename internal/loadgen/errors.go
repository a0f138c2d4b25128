// /internal/loadgen/errors.go

package loadgen

import (
	"fmt"
)

// ArgumentError reports a missing or malformed run argument. It is raised
// before any worker is spawned.
type ArgumentError struct {
	Argument string
	Value    string
	Reason   string
}

func (e *ArgumentError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Argument, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Argument, e.Value, e.Reason)
}

// TransportError wraps a request that never produced a response. It is fatal
// for the whole run.
type TransportError struct {
	WorkerID int
	URL      string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("worker %d: GET %s: %v", e.WorkerID, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError is a response other than 200 OK. It only ends the loop of the
// worker that received it.
type StatusError struct {
	WorkerID   int
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("worker %d: bad status code %d", e.WorkerID, e.StatusCode)
}

// IsFatal reports whether err must terminate the run.
func IsFatal(err error) bool {
	switch err.(type) {
	case nil, *StatusError:
		return false
	default:
		return true
	}
}
