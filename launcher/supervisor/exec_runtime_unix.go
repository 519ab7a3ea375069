// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package supervisor

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// execEntrypoint replaces the process image. It only returns on failure.
func execEntrypoint(_ context.Context, path string, argv []string) (int, error) {
	log.WithField("path", path).Debug("Replacing process image with entrypoint")
	if err := unix.Exec(path, argv, os.Environ()); err != nil {
		return 0, err
	}
	return 0, nil
}
