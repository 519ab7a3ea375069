// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// forwardedSignals are relayed from the bootloader to a running child.
var forwardedSignals = []os.Signal{
	unix.SIGINT,
	unix.SIGTERM,
	unix.SIGHUP,
	unix.SIGQUIT,
	unix.SIGUSR1,
	unix.SIGUSR2,
}

var terminateSignal os.Signal = unix.SIGTERM

// reraiseTimeout bounds how long Reraise waits for its own signal to land.
const reraiseTimeout = 2 * time.Second

// Reraise terminates the bootloader with sig, restoring the default
// disposition first. Signals the Go runtime turns into a crash report
// instead of a plain kill end the process with exit status 128+sig.
// Reraise does not return.
func Reraise(sig syscall.Signal) {
	if !dumpsOnSignal(sig) {
		signal.Reset(sig)
		if err := unix.Kill(unix.Getpid(), sig); err != nil {
			log.WithError(err).WithField("signal", sig).Warn("Failed to re-raise signal")
		} else {
			time.Sleep(reraiseTimeout)
		}
	}
	os.Exit(128 + int(sig))
}

func dumpsOnSignal(sig syscall.Signal) bool {
	switch sig {
	case unix.SIGQUIT, unix.SIGABRT, unix.SIGILL, unix.SIGTRAP, unix.SIGBUS, unix.SIGFPE, unix.SIGSEGV, unix.SIGSYS:
		return true
	}
	return false
}
