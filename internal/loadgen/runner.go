// /internal/loadgen/runner.go

package loadgen

import (
	"context"
	"net/http"
	"time"

	"github.com/nuclio/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Result is the outcome of a completed run.
type Result struct {
	Workers    []WorkerResult
	MaxElapsed time.Duration
	Throughput float64
}

// Runner spawns one worker per configured thread and reduces their elapsed
// times to a single throughput figure.
type Runner struct {
	logger           *zap.SugaredLogger
	runConfiguration *RunConfiguration
	clientFactory    ClientFactory
	metrics          *Metrics
}

// NewRunner validates runConfiguration and creates a runner. A nil
// clientFactory selects NewClient.
func NewRunner(logger *zap.SugaredLogger,
	runConfiguration *RunConfiguration,
	clientFactory ClientFactory,
	metrics *Metrics) (*Runner, error) {

	if err := runConfiguration.Validate(); err != nil {
		return nil, err
	}

	if clientFactory == nil {
		clientFactory = NewClient
	}

	if metrics == nil {
		return nil, errors.New("Metrics are required")
	}

	return &Runner{
		logger:           logger,
		runConfiguration: runConfiguration,
		clientFactory:    clientFactory,
		metrics:          metrics,
	}, nil
}

// NewClient builds a client with a transport of its own, so workers never
// share a connection pool. There is no request timeout.
func NewClient(workerID int) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 1
	transport.MaxIdleConnsPerHost = 1
	transport.IdleConnTimeout = 30 * time.Second

	return &http.Client{Transport: transport}
}

// Run blocks until every worker has finished. The first transport error stops
// the remaining workers and is returned as is, with no result.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	threadCount := r.runConfiguration.ThreadCount
	requestsPerWorker := r.runConfiguration.RequestsPerWorker()

	r.logger.Infow("Starting run",
		"threads", threadCount,
		"totalRequests", r.runConfiguration.TotalRequests,
		"requestsPerWorker", requestsPerWorker,
		"target", r.runConfiguration.TargetURL)

	// each worker writes only its own slot
	workerResults := make([]WorkerResult, threadCount)

	group, groupCtx := errgroup.WithContext(ctx)
	for workerID := 0; workerID < threadCount; workerID++ {
		w := &worker{
			id:        workerID,
			logger:    r.logger,
			client:    r.clientFactory(workerID),
			targetURL: r.runConfiguration.TargetURL,
			requests:  requestsPerWorker,
			metrics:   r.metrics,
		}

		group.Go(func() error {
			workerResult, err := w.run(groupCtx)
			if err != nil {
				return err
			}
			workerResults[w.id] = workerResult
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return r.reduce(workerResults)
}

func (r *Runner) reduce(workerResults []WorkerResult) (*Result, error) {
	durations := make([]time.Duration, 0, len(workerResults))
	for _, workerResult := range workerResults {
		durations = append(durations, workerResult.Elapsed)
	}

	maxElapsed := MaxElapsed(durations)
	if maxElapsed <= 0 {
		return nil, errors.New("Workers finished without measurable elapsed time")
	}

	result := &Result{
		Workers:    workerResults,
		MaxElapsed: maxElapsed,
		Throughput: Throughput(r.runConfiguration.TotalRequests, maxElapsed),
	}

	r.logger.Infow("Run completed",
		"maxElapsed", result.MaxElapsed,
		"throughput", result.Throughput)

	return result, nil
}
