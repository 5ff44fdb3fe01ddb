// Package main provides secdash-export, a command-line exporter for the SECDASH datasets.
//
// It runs the same filter/sort pipeline as the HTTP service and writes
// <dataset>-<YYYY-MM-DD>.csv files, or prints a coloured preview table with --print.
package main

import (
	"os"
	"time"
)

func main() {
	if err := newRootCmd(time.Now).Execute(); err != nil {
		os.Exit(1)
	}
}
