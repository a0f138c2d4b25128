package loadgen

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const mockTargetURL = "http://target.test/"

type RunnerTestSuite struct {
	suite.Suite
	logger  *zap.SugaredLogger
	ctx     context.Context
	metrics *Metrics
}

func (suite *RunnerTestSuite) SetupTest() {
	suite.logger = zaptest.NewLogger(suite.T()).Sugar()
	suite.ctx = context.Background()
	suite.metrics = NewMetrics(prometheus.NewRegistry())
}

func (suite *RunnerTestSuite) TestAllWorkersComplete() {
	transports := map[int]*httpmock.MockTransport{}
	result, err := suite.run(&RunConfiguration{
		ThreadCount:   3,
		TotalRequests: 10,
		TargetURL:     mockTargetURL,
	}, func(workerID int) *http.Client {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, mockTargetURL, httpmock.NewStringResponder(http.StatusOK, "ok"))
		transports[workerID] = transport
		return &http.Client{Transport: transport}
	})
	suite.Require().NoError(err)
	suite.Require().Len(result.Workers, 3)

	// one client per worker, each used for exactly its own share
	suite.Require().Len(transports, 3)
	for workerID, workerResult := range result.Workers {
		suite.Require().Equal(workerID, workerResult.WorkerID)
		suite.Require().Equal(3, workerResult.Completed)
		suite.Require().False(workerResult.StoppedEarly)
		suite.Require().Equal(3, transports[workerID].GetTotalCallCount())
	}

	// the remainder of 10/3 is dropped
	suite.Require().Equal(float64(9), testutil.ToFloat64(suite.metrics.Requests.WithLabelValues("200")))
	suite.Require().Equal(float64(0), testutil.ToFloat64(suite.metrics.ActiveWorkers))
	suite.requireReduced(10, result)
}

func (suite *RunnerTestSuite) TestBadStatusStopsOnlyThatWorker() {
	result, err := suite.run(&RunConfiguration{
		ThreadCount:   4,
		TotalRequests: 40,
		TargetURL:     mockTargetURL,
	}, func(workerID int) *http.Client {
		status := http.StatusOK
		if workerID == 0 {
			status = http.StatusServiceUnavailable
		}

		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, mockTargetURL, httpmock.NewStringResponder(status, "body"))
		return &http.Client{Transport: transport}
	})
	suite.Require().NoError(err)

	suite.Require().Equal(1, result.Workers[0].Completed)
	suite.Require().True(result.Workers[0].StoppedEarly)
	for _, workerResult := range result.Workers[1:] {
		suite.Require().Equal(10, workerResult.Completed)
		suite.Require().False(workerResult.StoppedEarly)
	}

	suite.Require().Equal(float64(1), testutil.ToFloat64(suite.metrics.Requests.WithLabelValues("503")))
	suite.Require().Equal(float64(30), testutil.ToFloat64(suite.metrics.Requests.WithLabelValues("200")))

	// the configured total stays the numerator
	suite.requireReduced(40, result)
}

func (suite *RunnerTestSuite) TestUnreachableTargetAborts() {
	for threadCount := 1; threadCount <= 4; threadCount++ {
		suite.Run(fmt.Sprintf("Threads%d", threadCount), func() {
			result, err := suite.run(&RunConfiguration{
				ThreadCount:   threadCount,
				TotalRequests: threadCount * 5,
				TargetURL:     mockTargetURL,
			}, func(workerID int) *http.Client {
				transport := httpmock.NewMockTransport()
				transport.RegisterResponder(http.MethodGet,
					mockTargetURL,
					httpmock.NewErrorResponder(errors.New("connection refused")))
				return &http.Client{Transport: transport}
			})
			suite.Require().Nil(result)
			suite.Require().Error(err)
			suite.Require().IsType(&TransportError{}, err)
			suite.Require().True(IsFatal(err))
		})
	}
}

func (suite *RunnerTestSuite) TestTransportErrorStopsOtherWorkers() {
	block := make(chan struct{})
	defer close(block)

	result, err := suite.run(&RunConfiguration{
		ThreadCount:   3,
		TotalRequests: 30,
		TargetURL:     mockTargetURL,
	}, func(workerID int) *http.Client {
		transport := httpmock.NewMockTransport()
		if workerID == 0 {
			transport.RegisterResponder(http.MethodGet,
				mockTargetURL,
				httpmock.NewErrorResponder(errors.New("connection reset")))
		} else {

			// hang until the request is canceled
			transport.RegisterResponder(http.MethodGet, mockTargetURL, func(request *http.Request) (*http.Response, error) {
				select {
				case <-request.Context().Done():
					return nil, request.Context().Err()
				case <-block:
					return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
				}
			})
		}
		return &http.Client{Transport: transport}
	})
	suite.Require().Nil(result)
	suite.Require().IsType(&TransportError{}, err)
}

func (suite *RunnerTestSuite) TestFixedLatencyTarget() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(10 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	result, err := suite.run(&RunConfiguration{
		ThreadCount:   4,
		TotalRequests: 100,
		TargetURL:     server.URL,
	}, nil)
	suite.Require().NoError(err)

	for _, workerResult := range result.Workers {
		suite.Require().Equal(25, workerResult.Completed)
		suite.Require().True(workerResult.Elapsed >= 250*time.Millisecond,
			"worker %d took %s", workerResult.WorkerID, workerResult.Elapsed)
	}

	// 25 sequential requests of at least 10ms cap each worker at 400 rps
	suite.Require().LessOrEqual(result.Throughput, float64(400))
	suite.Require().Greater(result.Throughput, float64(100))
	suite.requireReduced(100, result)
}

func (suite *RunnerTestSuite) TestNewRunnerRejectsInvalidConfiguration() {
	runner, err := NewRunner(suite.logger, &RunConfiguration{
		ThreadCount:   0,
		TotalRequests: 100,
		TargetURL:     mockTargetURL,
	}, nil, suite.metrics)
	suite.Require().Nil(runner)
	suite.Require().IsType(&ArgumentError{}, err)
}

func (suite *RunnerTestSuite) run(runConfiguration *RunConfiguration, clientFactory ClientFactory) (*Result, error) {
	runner, err := NewRunner(suite.logger, runConfiguration, clientFactory, suite.metrics)
	suite.Require().NoError(err)

	return runner.Run(suite.ctx)
}

func (suite *RunnerTestSuite) requireReduced(totalRequests int, result *Result) {
	var durations []time.Duration
	for _, workerResult := range result.Workers {
		durations = append(durations, workerResult.Elapsed)
	}

	suite.Require().Equal(MaxElapsed(durations), result.MaxElapsed)
	suite.Require().Equal(float64(totalRequests)/result.MaxElapsed.Seconds(), result.Throughput)
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}
