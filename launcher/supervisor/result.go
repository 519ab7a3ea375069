// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"errors"
	"os/exec"
	"syscall"

	"go.amzn.com/bootloader/launcher/supervisor/model"

	log "github.com/sirupsen/logrus"
)

// resultFromWait converts the error returned by exec.Cmd.Wait. Errors that
// carry no exit status are returned unchanged.
func resultFromWait(err error) (*model.Result, error) {
	if err == nil {
		return model.Exited(0), nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return nil, err
	}

	status, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok {
		log.Error("Cannot convert process exit status to WaitStatus. This is unexpected. Assuming ExitStatus 1")
		return model.Exited(1), nil
	}
	if status.Signaled() {
		return model.KilledBy(status.Signal()), nil
	}
	return model.Exited(status.ExitStatus()), nil
}
