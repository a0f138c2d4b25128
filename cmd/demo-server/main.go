// /cmd/demo-server/main.go

package main

import (
	"fmt"
	"os"

	"github.com/Chinzzii/rpsbench/internal/command"
)

func main() {
	commandeer := command.NewDemoServerCommandeer()

	if err := commandeer.Execute(); err != nil {
		if logger := commandeer.Logger(); logger != nil {
			logger.Errorw("Demo server failed", "err", err)
			logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
