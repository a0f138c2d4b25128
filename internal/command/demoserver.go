// /internal/command/demoserver.go

package command

import (
	"fmt"
	"net/http"
	"os"

	"github.com/Chinzzii/rpsbench/internal/demoserver"
	"github.com/Chinzzii/rpsbench/internal/logging"
	"github.com/Chinzzii/rpsbench/internal/pagestore"

	"github.com/nuclio/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type DemoServerCommandeer struct {
	cmd       *cobra.Command
	logger    *zap.SugaredLogger
	verbose   bool
	mode      string
	shardsNum int
	port      int
	dbDir     string
}

func NewDemoServerCommandeer() *DemoServerCommandeer {
	commandeer := &DemoServerCommandeer{}

	cmd := &cobra.Command{
		Use:           "demo-server",
		Short:         "Serve pages from a sqlite page store as a load-test target",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			commandeer.logger, err = logging.NewLogger("demo-server", commandeer.verbose)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return commandeer.run()
		},
	}

	cmd.Flags().BoolVarP(&commandeer.verbose, "verbose", "v", false, "Verbose output")
	cmd.Flags().StringVar(&commandeer.mode, "mode", "single", "single or sharded")
	cmd.Flags().IntVar(&commandeer.shardsNum, "shards", 3, "number of shards (if sharded)")
	cmd.Flags().IntVar(&commandeer.port, "port", 8000, "http port")
	cmd.Flags().StringVar(&commandeer.dbDir, "db-dir", os.Getenv("DEMO_DB_DIR"), "directory for the sqlite shard files")

	commandeer.cmd = cmd

	return commandeer
}

// Execute runs the command with os.Args
func (dc *DemoServerCommandeer) Execute() error {
	return dc.cmd.Execute()
}

// Logger returns the logger, or nil if the command never initialized one
func (dc *DemoServerCommandeer) Logger() *zap.SugaredLogger {
	return dc.logger
}

func (dc *DemoServerCommandeer) shardCount() (int, error) {
	switch dc.mode {
	case "single":
		return 1, nil
	case "sharded":
		return dc.shardsNum, nil
	default:
		return 0, errors.Errorf("Unknown mode %q, expected single or sharded", dc.mode)
	}
}

func (dc *DemoServerCommandeer) run() error {
	num, err := dc.shardCount()
	if err != nil {
		return err
	}

	store, err := pagestore.NewStore(dc.logger, num, dc.dbDir)
	if err != nil {
		return errors.Wrap(err, "Failed to create page store")
	}
	defer store.Close()

	if err := demoserver.SeedDefaultPages(store); err != nil {
		return errors.Wrap(err, "Failed to seed pages")
	}

	addr := fmt.Sprintf(":%d", dc.port)
	dc.logger.Infow("Starting demo-server", "mode", dc.mode, "shards", num, "addr", addr)

	return http.ListenAndServe(addr, demoserver.NewServer(dc.logger, store))
}
