// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"

	"go.amzn.com/bootloader/launcher/fatalerror"
	"go.amzn.com/bootloader/launcher/supervisor"

	log "github.com/sirupsen/logrus"
)

// swapped in tests
var (
	exit    = os.Exit
	reraise = supervisor.Reraise
	stderr  = io.Writer(os.Stderr)
)

// Main runs the launch for the current process and terminates it the way
// the payload terminated. It never returns.
func Main(ctx context.Context, opts Options) {
	l := NewLauncher(opts)

	result, err := l.Run(ctx, os.Args)
	if err != nil {
		reportErrorAndExit(l, err)
		return
	}

	if sig := result.Signaled(); sig != nil {
		reraise(syscall.Signal(*sig))
		return
	}
	exit(int(*result.Exited()))
}

// reportErrorAndExit is the single exit path for a launch that failed before
// the payload ran.
func reportErrorAndExit(l *Launcher, err error) {
	l.close()

	errorType := fatalerror.TypeOf(err)
	log.WithError(err).WithField("errorType", errorType).Error("Bootstrap failed")
	fmt.Fprintf(stderr, "[%d] bootloader: %v\n", os.Getpid(), err)

	exit(fatalerror.BootstrapFailureExitCode)
}
