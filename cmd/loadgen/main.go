// /cmd/loadgen/main.go

package main

import (
	"fmt"
	"os"

	"github.com/Chinzzii/rpsbench/internal/command"
)

func main() {
	commandeer := command.NewLoadgenCommandeer(os.Stdout)

	if err := commandeer.Execute(); err != nil {
		if logger := commandeer.Logger(); logger != nil {
			logger.Errorw("Load generation failed", "err", err)
			logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
