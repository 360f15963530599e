package main

import (
	"os"

	"github.com/robfig/tstmpl/cmd/tstmpl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
