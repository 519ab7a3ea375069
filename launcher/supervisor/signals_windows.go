// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"syscall"
)

// Console control events reach every process attached to the console, so
// the child gets them without help. The bootloader only has to survive them.
var forwardedSignals = []os.Signal{os.Interrupt}

var terminateSignal os.Signal = os.Kill

// Reraise ends the bootloader. Windows has no death by signal; the status
// mirrors the POSIX shell convention.
func Reraise(sig syscall.Signal) {
	os.Exit(128 + int(sig))
}
