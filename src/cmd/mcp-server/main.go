// Package main provides the MCP server entry point for decent-ci.
// The server implements the Model Context Protocol over stdio, exposing
// archived build results through the list_results and get_result tools.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"decent-ci/src/config"
	"decent-ci/src/logger"
	"decent-ci/src/mcp"
	"decent-ci/src/pipeline"
)

// consumerGroup is the Redpanda group used when following report events.
const consumerGroup = "decent-ci-mcp"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := config.LoadViewerFromEnv()
	if err != nil {
		return err
	}

	// stdout carries the protocol; log lines go to stderr only.
	var log logger.Logger = logger.NewSilentLogger()
	if s.Verbose {
		log = logger.NewWriterLogger(os.Stderr, true)
	}

	viewer, err := pipeline.OpenLister(ctx, s, consumerGroup, log)
	if err != nil {
		return err
	}
	defer viewer.Close()

	return mcp.NewServer(viewer.Lister, log).Run()
}
