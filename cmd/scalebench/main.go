package main

import (
	"os"

	"github.com/armadaproject/scalebench/cmd/scalebench/cmd"
	"github.com/armadaproject/scalebench/internal/common"
)

func main() {
	common.ConfigureLogging()
	if err := cmd.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
