// /internal/command/loadgen.go

package command

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/Chinzzii/rpsbench/internal/loadgen"
	"github.com/Chinzzii/rpsbench/internal/logging"

	"github.com/nuclio/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type LoadgenCommandeer struct {
	cmd           *cobra.Command
	logger        *zap.SugaredLogger
	out           io.Writer
	verbose       bool
	metricsAddr   string
	clientFactory loadgen.ClientFactory
}

// NewLoadgenCommandeer creates the loadgen root command. The throughput is
// written to out and nothing else is.
func NewLoadgenCommandeer(out io.Writer) *LoadgenCommandeer {
	commandeer := &LoadgenCommandeer{
		out: out,
	}

	cmd := &cobra.Command{
		Use:   "loadgen <thread_count> [total_requests] [target_url]",
		Short: "Issue concurrent GET requests and print requests per second",
		Long: fmt.Sprintf(`Splits total_requests evenly across thread_count workers, each with its own
HTTP client, and prints total_requests divided by the slowest worker's elapsed
seconds. total_requests defaults to %d and target_url to %s.`,
			loadgen.DefaultTotalRequests,
			loadgen.DefaultTargetURL),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return commandeer.initialize()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			runConfiguration, err := loadgen.ParseArgs(args)
			if err != nil {
				return err
			}

			return commandeer.run(cmd.Context(), runConfiguration)
		},
	}

	cmd.Flags().BoolVarP(&commandeer.verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().StringVar(&commandeer.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")

	commandeer.cmd = cmd

	return commandeer
}

// Execute runs the command with os.Args
func (lc *LoadgenCommandeer) Execute() error {
	return lc.cmd.Execute()
}

// GetCmd returns the underlying cobra command
func (lc *LoadgenCommandeer) GetCmd() *cobra.Command {
	return lc.cmd
}

// Logger returns the logger, or nil if the command never initialized one
func (lc *LoadgenCommandeer) Logger() *zap.SugaredLogger {
	return lc.logger
}

func (lc *LoadgenCommandeer) initialize() error {
	if lc.logger != nil {
		return nil
	}

	var err error
	lc.logger, err = logging.NewLogger("loadgen", lc.verbose)
	if err != nil {
		return errors.Wrap(err, "Failed to create logger")
	}

	return nil
}

func (lc *LoadgenCommandeer) run(ctx context.Context, runConfiguration *loadgen.RunConfiguration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	registry := prometheus.NewRegistry()
	metrics := loadgen.NewMetrics(registry)

	if lc.metricsAddr != "" {
		stopMetrics, err := lc.serveMetrics(registry)
		if err != nil {
			return errors.Wrap(err, "Failed to serve metrics")
		}
		defer stopMetrics()
	}

	runner, err := loadgen.NewRunner(lc.logger, runConfiguration, lc.clientFactory, metrics)
	if err != nil {
		return errors.Wrap(err, "Failed to create runner")
	}

	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(lc.out, strconv.FormatFloat(result.Throughput, 'f', -1, 64))
	return err
}

func (lc *LoadgenCommandeer) serveMetrics(registry *prometheus.Registry) (func(), error) {
	listener, err := net.Listen("tcp", lc.metricsAddr)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to listen on %s", lc.metricsAddr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Handler: mux}

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			lc.logger.Warnw("Metrics server stopped", "err", err)
		}
	}()

	lc.logger.Infow("Serving metrics", "addr", listener.Addr().String())

	return func() { server.Close() }, nil
}
