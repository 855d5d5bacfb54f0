// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"voiceeq/cmd"
	applog "voiceeq/internal/log"
	"voiceeq/pkg/build"
)

// main runs one command:
//
//  1. Startup: build info, signal handling, flag parsing
//  2. Work: decode or record a sample, take the snapshot, publish the chart
//  3. Shutdown: an interrupt cancels the context; capture sessions and
//     displays are closed before the command returns
func main() {
	// Development builds have no ldflags; that is only worth a debug line.
	if err := build.Initialize(); err != nil {
		applog.Debugf("Build info incomplete: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", build.GetBuildFlags().Name, err)
		stop()
		os.Exit(1)
	}
}
