// /internal/loadgen/worker.go

package loadgen

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ClientFactory returns the HTTP client a worker uses for all of its
// requests. It is called once per worker and clients are never shared.
type ClientFactory func(workerID int) *http.Client

// WorkerResult is what a worker hands back to the runner when its loop ends.
type WorkerResult struct {
	WorkerID     int
	Elapsed      time.Duration
	Completed    int
	StoppedEarly bool
}

type worker struct {
	id        int
	logger    *zap.SugaredLogger
	client    *http.Client
	targetURL string
	requests  int
	metrics   *Metrics
}

// run issues the worker's share of requests one after another. A non-200
// response ends the loop without an error; a transport failure is returned.
func (w *worker) run(ctx context.Context) (WorkerResult, error) {
	result := WorkerResult{WorkerID: w.id}

	w.metrics.ActiveWorkers.Inc()
	defer w.metrics.ActiveWorkers.Dec()

	start := time.Now()
	for i := 0; i < w.requests; i++ {
		err := w.get(ctx)
		if err == nil {
			result.Completed++
			continue
		}

		if IsFatal(err) {
			return result, err
		}

		// the request that got the bad status still counts as issued
		result.Completed++
		result.StoppedEarly = true
		w.logger.Warnw("Bad status code",
			"worker", w.id,
			"status", err.(*StatusError).StatusCode,
			"completed", result.Completed)
		break
	}
	result.Elapsed = time.Since(start)

	w.logger.Debugw("Worker done",
		"worker", w.id,
		"completed", result.Completed,
		"elapsed", result.Elapsed)

	return result, nil
}

func (w *worker) get(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.targetURL, nil)
	if err != nil {
		return &TransportError{WorkerID: w.id, URL: w.targetURL, Err: err}
	}

	t0 := time.Now()
	response, err := w.client.Do(request)
	if err != nil {
		w.metrics.TransportErrors.Inc()
		return &TransportError{WorkerID: w.id, URL: w.targetURL, Err: err}
	}

	// drain so the client can reuse the connection for the next request
	_, err = io.Copy(io.Discard, response.Body)
	response.Body.Close()
	if err != nil {
		w.metrics.TransportErrors.Inc()
		return &TransportError{WorkerID: w.id, URL: w.targetURL, Err: err}
	}

	w.metrics.observeResponse(response.StatusCode, time.Since(t0))

	if response.StatusCode != http.StatusOK {
		return &StatusError{WorkerID: w.id, StatusCode: response.StatusCode}
	}

	return nil
}
